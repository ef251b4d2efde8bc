package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/videotexture/pkg/clock"
)

var (
	otoContext       *oto.Context
	otoContextLocker sync.Mutex
)

// oto allows only one context per process, so it is always created with
// the fixed parameters.
func getOtoContext() (*oto.Context, error) {
	otoContextLocker.Lock()
	defer otoContextLocker.Unlock()
	if otoContext != nil {
		return otoContext, nil
	}

	otoCtx, readyChan, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to initialize an oto context: %w", err)
	}
	<-readyChan

	otoContext = otoCtx
	return otoContext, nil
}

type PlayerOto struct{}

var _ PlayerPCM = PlayerOto{}

func NewPlayerOto() PlayerPCM {
	return PlayerOto{}
}

func (PlayerOto) Ping(context.Context) error {
	_, err := getOtoContext()
	return err
}

func (PlayerOto) PlayPCM(
	ctx context.Context,
	sampleRate uint32,
	channels uint16,
	format PCMFormat,
	bufferSize time.Duration,
	reader io.Reader,
) error {
	if sampleRate != SampleRate {
		return fmt.Errorf("the expected sample rate is %d, but received %d", SampleRate, sampleRate)
	}
	if channels != Channels {
		return fmt.Errorf("the expected number of channels is %d, but received %d", Channels, channels)
	}
	if format != Format {
		return fmt.Errorf("the expected format is %v, but received %v", Format, format)
	}

	otoCtx, err := getOtoContext()
	if err != nil {
		return fmt.Errorf("unable to get an oto context: %w", err)
	}

	player := otoCtx.NewPlayer(reader)
	player.SetBufferSize(int(bufferSize.Seconds() * SampleRate * Channels * float64(format.Size())))
	player.Play()

	t := clock.Get().Ticker(100 * time.Millisecond)
	defer t.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			logger.Debugf(ctx, "oto playback is cancelled")
			player.Pause()
			return player.Close()
		case <-t.C:
		}
	}

	if err := player.Close(); err != nil {
		return fmt.Errorf("unable to close the player: %w", err)
	}
	return nil
}
