package audio

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"
)

// PlayerPCM is an audio output backend.
type PlayerPCM interface {
	Ping(ctx context.Context) error
	PlayPCM(
		ctx context.Context,
		sampleRate uint32,
		channels uint16,
		format PCMFormat,
		bufferSize time.Duration,
		reader io.Reader,
	) error
}

type PCMFormat uint

const (
	PCMFormatUndefined = PCMFormat(iota)
	PCMFormatFloat32LE
)

func (f PCMFormat) Size() uint32 {
	switch f {
	case PCMFormatFloat32LE:
		return 4
	default:
		return math.MaxUint32
	}
}

func (f PCMFormat) String() string {
	switch f {
	case PCMFormatUndefined:
		return "<undefined>"
	case PCMFormatFloat32LE:
		return "f32le"
	default:
		return fmt.Sprintf("<unexpected_value_%d>", uint(f))
	}
}

const (
	SampleRate = 48000
	Channels   = 2
	BufferSize = 100 * time.Millisecond
	Format     = PCMFormatFloat32LE
)
