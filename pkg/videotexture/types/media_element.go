package types

import (
	"context"
	"fmt"
	"image"
	"io"
	"time"
)

type ReadyState uint

const (
	ReadyStateHaveNothing = ReadyState(iota)
	ReadyStateHaveMetadata
	ReadyStateHaveCurrentData
	ReadyStateHaveFutureData
	ReadyStateHaveEnoughData
)

func (s ReadyState) String() string {
	switch s {
	case ReadyStateHaveNothing:
		return "have_nothing"
	case ReadyStateHaveMetadata:
		return "have_metadata"
	case ReadyStateHaveCurrentData:
		return "have_current_data"
	case ReadyStateHaveFutureData:
		return "have_future_data"
	case ReadyStateHaveEnoughData:
		return "have_enough_data"
	default:
		return fmt.Sprintf("<unexpected_value_%d>", uint(s))
	}
}

type QualityStats struct {
	DecodedFrames uint64
	DroppedFrames uint64
}

// PCMFormat describes interleaved float32 samples.
type PCMFormat struct {
	SampleRate uint32
	Channels   uint32
}

type PCMReader interface {
	io.Reader
	PCMFormat() PCMFormat
}

// MediaElement is the decode surface: it plays a stream and exposes the
// currently displayed frame.
type MediaElement interface {
	Open(ctx context.Context, url string) error
	ReadyState() ReadyState
	FrameRate() float64
	VideoSize() (width, height int)
	Paused() bool
	Ended() bool
	EndChan() <-chan struct{}
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, pos time.Duration) error
	CurrentTime() time.Duration
	CurrentFrame(ctx context.Context) (image.Image, time.Duration, error)
	AudioOutput() PCMReader
	QualityStats() QualityStats
	Close(ctx context.Context) error
}

type MediaElementFactory interface {
	NewMediaElement(ctx context.Context) (MediaElement, error)
}

type MediaElementFactoryFunc func(ctx context.Context) (MediaElement, error)

func (fn MediaElementFactoryFunc) NewMediaElement(ctx context.Context) (MediaElement, error) {
	return fn(ctx)
}
