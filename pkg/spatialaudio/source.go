package spatialaudio

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/videotexture/pkg/observability"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
	"github.com/xaionaro-go/xsync"
)

// MediaElementSource taps the audio output of a media element. Samples are
// read in the background into a bounded FIFO; underruns render as silence
// and overruns drop the oldest samples.
type MediaElementSource struct {
	nodeBase

	fifoLocker xsync.Mutex
	fifo       []float32
	maxSamples int
	cancel     context.CancelFunc
}

func newMediaElementSource(
	ctx context.Context,
	g *Graph,
	reader types.PCMReader,
) *MediaElementSource {
	s := &MediaElementSource{
		maxSamples: SampleRate * Channels / 2,
	}
	s.nodeBase = nodeBase{g: g, self: s}
	if reader == nil {
		logger.Debugf(ctx, "the media element has no audio output")
		return s
	}
	ctx, s.cancel = context.WithCancel(ctx)
	observability.Go(ctx, func(ctx context.Context) {
		s.readLoop(ctx, reader)
	})
	return s
}

func (s *MediaElementSource) readLoop(
	ctx context.Context,
	reader types.PCMReader,
) {
	logger.Debugf(ctx, "readLoop")
	defer logger.Debugf(ctx, "/readLoop")

	channels := int(reader.PCMFormat().Channels)
	if channels <= 0 {
		channels = Channels
	}
	if rate := reader.PCMFormat().SampleRate; rate != 0 && rate != SampleRate {
		logger.Warnf(ctx, "the media element outputs %d Hz, while the graph runs at %d Hz", rate, SampleRate)
	}

	buf := make([]byte, 4*channels*480)
	for ctx.Err() == nil {
		n, err := io.ReadAtLeast(reader, buf, 4*channels)
		frames := n / (4 * channels)
		if frames > 0 {
			s.push(decodeFrames(buf[:frames*4*channels], channels))
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe), errors.Is(err, io.ErrUnexpectedEOF):
			return
		default:
			errmon.ObserveErrorCtx(ctx, err)
			return
		}
	}
}

// decodeFrames converts little-endian float32 frames into stereo.
func decodeFrames(raw []byte, channels int) []float32 {
	frames := len(raw) / (4 * channels)
	out := make([]float32, frames*Channels)
	for f := 0; f < frames; f++ {
		sample := func(ch int) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(raw[(f*channels+ch)*4:]))
		}
		left := sample(0)
		right := left
		if channels > 1 {
			right = sample(1)
		}
		out[f*Channels], out[f*Channels+1] = left, right
	}
	return out
}

func (s *MediaElementSource) push(samples []float32) {
	s.fifoLocker.Do(context.TODO(), func() {
		s.fifo = append(s.fifo, samples...)
		if overflow := len(s.fifo) - s.maxSamples; overflow > 0 {
			overflow += overflow % Channels
			s.fifo = s.fifo[overflow:]
		}
	})
}

func (s *MediaElementSource) render(out []float32) {
	s.fifoLocker.Do(context.TODO(), func() {
		n := copy(out, s.fifo)
		clear(out[n:])
		s.fifo = s.fifo[n:]
	})
}

func (s *MediaElementSource) close() {
	if s.cancel != nil {
		s.cancel()
	}
}
