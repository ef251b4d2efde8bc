package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/jfreymuth/pulse"
)

type PlayerPulse struct{}

var _ PlayerPCM = PlayerPulse{}

func NewPlayerPulse() PlayerPCM {
	return PlayerPulse{}
}

func (PlayerPulse) Ping(context.Context) error {
	c, err := pulse.NewClient()
	if err != nil {
		return fmt.Errorf("unable to open a client to Pulse: %w", err)
	}
	defer c.Close()
	return nil
}

func (PlayerPulse) PlayPCM(
	ctx context.Context,
	sampleRate uint32,
	channels uint16,
	format PCMFormat,
	bufferSize time.Duration,
	rawReader io.Reader,
) error {
	if format != PCMFormatFloat32LE {
		return fmt.Errorf("received an unexpected format: %v", format)
	}

	c, err := pulse.NewClient()
	if err != nil {
		return fmt.Errorf("unable to open a client to Pulse: %w", err)
	}
	defer c.Close()

	channelOpt := pulse.PlaybackStereo
	if channels == 1 {
		channelOpt = pulse.PlaybackMono
	}

	stream, err := c.NewPlayback(
		pulse.Float32Reader(float32ReaderFrom(rawReader)),
		pulse.PlaybackSampleRate(int(sampleRate)),
		channelOpt,
		pulse.PlaybackLatency(bufferSize.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("unable to initialize a playback: %w", err)
	}
	defer stream.Close()

	stream.Start()
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		stream.Drain()
	}()
	select {
	case <-ctx.Done():
		logger.Debugf(ctx, "pulse playback is cancelled")
		stream.Stop()
		return nil
	case <-drained:
	}
	if err := stream.Error(); err != nil {
		return fmt.Errorf("an error occurred during playback: %w", err)
	}
	return nil
}

// float32ReaderFrom decodes little-endian float32 samples from r.
func float32ReaderFrom(r io.Reader) func([]float32) (int, error) {
	var buf []byte
	return func(out []float32) (int, error) {
		if cap(buf) < len(out)*4 {
			buf = make([]byte, len(out)*4)
		}
		n, err := io.ReadFull(r, buf[:len(out)*4])
		samples := n / 4
		for i := 0; i < samples; i++ {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err == io.EOF {
			err = pulse.EndOfData
		}
		return samples, err
	}
}
