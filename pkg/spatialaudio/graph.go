package spatialaudio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/videotexture/pkg/audio"
	"github.com/xaionaro-go/videotexture/pkg/clock"
	"github.com/xaionaro-go/videotexture/pkg/observability"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
	"github.com/xaionaro-go/xsync"
)

const (
	SampleRate = audio.SampleRate
	Quantum    = 10 * time.Millisecond
)

type Graph struct {
	locker      xsync.Mutex
	destination *Destination
	sources     []*MediaElementSource
	player      audio.PlayerPCM
	cancel      context.CancelFunc
	done        chan struct{}
	closed      bool
}

var _ types.AudioGraph = (*Graph)(nil)

// NewGraph creates a graph. If player is nil the graph is only rendered
// on demand via Render.
func NewGraph(player audio.PlayerPCM) *Graph {
	g := &Graph{
		player: player,
	}
	g.destination = &Destination{}
	g.destination.nodeBase = nodeBase{g: g, self: g.destination}
	return g
}

func (g *Graph) ctx() context.Context {
	return context.TODO()
}

func (g *Graph) CreateMediaElementSource(
	ctx context.Context,
	el types.MediaElement,
) (types.AudioNode, error) {
	if el == nil {
		return nil, fmt.Errorf("media element is not set")
	}
	s := newMediaElementSource(ctx, g, el.AudioOutput())
	g.locker.Do(ctx, func() {
		g.sources = append(g.sources, s)
	})
	return s, nil
}

func (g *Graph) NewGain(value float64) *Gain {
	n := &Gain{Value: value}
	n.nodeBase = nodeBase{g: g, self: n}
	return n
}

func (g *Graph) NewPanner(azimuth float64) *Panner {
	n := &Panner{Azimuth: azimuth}
	n.nodeBase = nodeBase{g: g, self: n}
	return n
}

func (g *Graph) NewAmbisonicsRenderer(azimuth, elevation float64) *AmbisonicsRenderer {
	n := &AmbisonicsRenderer{Azimuth: azimuth, Elevation: elevation}
	n.nodeBase = nodeBase{g: g, self: n}
	return n
}

func (g *Graph) Destination() types.AudioNode {
	return g.destination
}

// Render pulls len(out)/2 stereo frames through the graph.
func (g *Graph) Render(out []float32) {
	g.locker.Do(g.ctx(), func() {
		g.destination.render(out)
	})
}

// Start pumps the mix into the PCM player until Close.
func (g *Graph) Start(ctx context.Context) error {
	logger.Debugf(ctx, "Start")
	defer logger.Debugf(ctx, "/Start")
	if g.player == nil {
		return fmt.Errorf("no audio player is set")
	}
	return xsync.DoR1(ctx, &g.locker, func() error {
		if g.closed {
			return fmt.Errorf("the graph is closed")
		}
		if g.cancel != nil {
			return nil
		}
		ctx, cancel := context.WithCancel(ctx)
		g.cancel = cancel
		g.done = make(chan struct{})
		pr, pw := io.Pipe()

		observability.Go(ctx, func(ctx context.Context) {
			err := g.player.PlayPCM(ctx, SampleRate, Channels, audio.PCMFormatFloat32LE, audio.BufferSize, pr)
			if err != nil {
				logger.Errorf(ctx, "audio playback failed: %v", err)
			}
			pr.CloseWithError(io.ErrClosedPipe)
		})
		done := g.done
		observability.Go(ctx, func(ctx context.Context) {
			defer close(done)
			defer pw.Close()
			g.pump(ctx, pw)
		})
		return nil
	})
}

func (g *Graph) pump(ctx context.Context, w io.Writer) {
	logger.Debugf(ctx, "pump")
	defer logger.Debugf(ctx, "/pump")

	frames := int(SampleRate * Quantum / time.Second)
	samples := make([]float32, frames*Channels)
	raw := make([]byte, len(samples)*4)

	t := clock.Get().Ticker(Quantum)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		g.Render(samples)
		for i, v := range samples {
			binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
		}
		if _, err := w.Write(raw); err != nil {
			logger.Debugf(ctx, "the audio output is closed: %v", err)
			return
		}
	}
}

// Close stops the pump, disconnects every node and detaches the sources.
func (g *Graph) Close(ctx context.Context) error {
	logger.Debugf(ctx, "Close")
	defer logger.Debugf(ctx, "/Close")

	var (
		done    chan struct{}
		sources []*MediaElementSource
	)
	g.locker.Do(ctx, func() {
		if g.closed {
			return
		}
		g.closed = true
		if g.cancel != nil {
			g.cancel()
		}
		done = g.done
		sources = g.sources
		g.sources = nil
	})

	var mErr *multierror.Error
	for _, s := range sources {
		s.close()
		if err := s.Disconnect(); err != nil {
			mErr = multierror.Append(mErr, err)
		}
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			errmon.ObserveErrorCtx(ctx, ctx.Err())
		}
	}
	return mErr.ErrorOrNil()
}
