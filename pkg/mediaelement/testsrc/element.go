// Package testsrc is a synthetic media element: a moving test pattern with
// a sine tone, timed by the process clock. It needs no decoder, so it backs
// the CLI demo mode and the end-to-end tests.
package testsrc

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/videotexture/pkg/clock"
	"github.com/xaionaro-go/videotexture/pkg/mediaelement/pcmout"
	"github.com/xaionaro-go/videotexture/pkg/observability"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"
)

type ErrAutoplayBlocked struct{}

func (ErrAutoplayBlocked) Error() string {
	return "playback requires a user gesture"
}

type Element struct {
	Config Config

	locker        xsync.Mutex
	params        Params
	opened        bool
	closed        bool
	readyAt       time.Time
	paused        bool
	ended         bool
	endCh         chan struct{}
	basePos       time.Duration
	playStartedAt time.Time
	lastFrameIdx  int64
	lastFrame     *image.NRGBA
	stats         types.QualityStats
	tonePhase     float64
	audio         *pcmout.Output
	cancel        context.CancelFunc
	done          chan struct{}
}

var _ types.MediaElement = (*Element)(nil)

func New(opts ...Option) *Element {
	return &Element{
		Config:       Options(opts).Config(),
		paused:       true,
		endCh:        make(chan struct{}),
		lastFrameIdx: -1,
		audio:        pcmout.New(types.PCMFormat{SampleRate: SampleRate, Channels: Channels}, 32),
	}
}

// Factory creates a fresh Element per pipeline.
func Factory(opts ...Option) types.MediaElementFactory {
	return types.MediaElementFactoryFunc(func(ctx context.Context) (types.MediaElement, error) {
		return New(opts...), nil
	})
}

func (e *Element) clock() clock.Clock {
	return clock.OrGlobal(e.Config.Clock)
}

func (e *Element) Open(ctx context.Context, url string) (_err error) {
	logger.Debugf(ctx, "Open(ctx, '%s')", url)
	defer func() { logger.Debugf(ctx, "/Open(ctx, '%s'): %v", url, _err) }()

	params, err := ParseURL(url)
	if err != nil {
		return err
	}

	clk := e.clock()
	if params.OpenDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clk.After(params.OpenDelay):
		}
	}

	return xsync.DoR1(ctx, &e.locker, func() error {
		switch {
		case e.closed:
			return fmt.Errorf("the element is closed")
		case e.opened:
			return fmt.Errorf("the element is already opened")
		}
		e.params = params
		e.opened = true
		e.readyAt = clk.Now().Add(params.MetadataDelay)

		// ctx may be a timeout scoped to the open call.
		loopCtx, cancel := context.WithCancel(xcontext.DetachDone(ctx))
		done := make(chan struct{})
		e.cancel, e.done = cancel, done
		observability.Go(loopCtx, func(ctx context.Context) {
			defer close(done)
			e.loop(ctx)
		})
		return nil
	})
}

// loop advances the end-of-stream check and generates audio while playing.
func (e *Element) loop(ctx context.Context) {
	logger.Debugf(ctx, "loop")
	defer logger.Debugf(ctx, "/loop")

	tick := e.Config.AudioTick
	t := e.clock().Ticker(tick)
	defer t.Stop()
	framesPerTick := int(SampleRate * tick.Seconds())
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		e.locker.Do(ctx, func() {
			e.checkEndLocked(ctx)
			if e.paused || e.ended || e.params.ToneHz <= 0 {
				return
			}
			var chunk []byte
			chunk, e.tonePhase = generateTone(
				make([]byte, 0, framesPerTick*Channels*4),
				framesPerTick, e.params.ToneHz, e.tonePhase,
			)
			if !e.audio.Offer(chunk) {
				logger.Tracef(ctx, "the audio reader is behind, dropped a chunk")
			}
		})
	}
}

func (e *Element) checkEndLocked(ctx context.Context) {
	if e.paused || e.ended || e.params.Duration <= 0 {
		return
	}
	if e.positionLocked() < e.params.Duration {
		return
	}
	logger.Debugf(ctx, "reached the end of the stream")
	e.basePos = e.params.Duration
	e.paused = true
	e.ended = true
	close(e.endCh)
}

func (e *Element) positionLocked() time.Duration {
	if e.paused || e.ended {
		return e.basePos
	}
	pos := e.basePos + e.clock().Since(e.playStartedAt)
	if d := e.params.Duration; d > 0 && pos > d {
		pos = d
	}
	return pos
}

func (e *Element) ReadyState() types.ReadyState {
	return xsync.DoR1(context.TODO(), &e.locker, func() types.ReadyState {
		if !e.opened || e.closed || e.clock().Now().Before(e.readyAt) {
			return types.ReadyStateHaveNothing
		}
		return types.ReadyStateHaveEnoughData
	})
}

func (e *Element) FrameRate() float64 {
	return xsync.DoR1(context.TODO(), &e.locker, func() float64 {
		return e.params.FPS
	})
}

func (e *Element) VideoSize() (int, int) {
	return xsync.DoR2(context.TODO(), &e.locker, func() (int, int) {
		if !e.opened {
			return 0, 0
		}
		return e.params.Width, e.params.Height
	})
}

func (e *Element) Paused() bool {
	return xsync.DoR1(context.TODO(), &e.locker, func() bool {
		return e.paused
	})
}

func (e *Element) Ended() bool {
	return xsync.DoR1(context.TODO(), &e.locker, func() bool {
		e.checkEndLocked(context.TODO())
		return e.ended
	})
}

func (e *Element) EndChan() <-chan struct{} {
	return xsync.DoR1(context.TODO(), &e.locker, func() chan struct{} {
		return e.endCh
	})
}

func (e *Element) Play(ctx context.Context) error {
	logger.Debugf(ctx, "Play")
	return xsync.DoR1(ctx, &e.locker, func() error {
		if !e.opened || e.closed {
			return fmt.Errorf("the element is not opened")
		}
		if e.params.AutoplayBlocked {
			return ErrAutoplayBlocked{}
		}
		if e.ended {
			e.rewindLocked(0)
		}
		if !e.paused {
			return nil
		}
		e.paused = false
		e.playStartedAt = e.clock().Now()
		return nil
	})
}

func (e *Element) Pause(ctx context.Context) error {
	logger.Debugf(ctx, "Pause")
	e.locker.Do(ctx, func() {
		if e.paused {
			return
		}
		e.basePos = e.positionLocked()
		e.paused = true
	})
	return nil
}

func (e *Element) Seek(ctx context.Context, pos time.Duration) error {
	logger.Debugf(ctx, "Seek(ctx, %v)", pos)
	return xsync.DoR1(ctx, &e.locker, func() error {
		if !e.opened {
			return fmt.Errorf("the element is not opened")
		}
		e.rewindLocked(pos)
		return nil
	})
}

func (e *Element) rewindLocked(pos time.Duration) {
	pos = max(pos, 0)
	if d := e.params.Duration; d > 0 {
		pos = min(pos, d)
	}
	e.basePos = pos
	e.playStartedAt = e.clock().Now()
	if e.ended {
		e.ended = false
		e.endCh = make(chan struct{})
	}
}

func (e *Element) CurrentTime() time.Duration {
	return xsync.DoR1(context.TODO(), &e.locker, func() time.Duration {
		return e.positionLocked()
	})
}

// CurrentFrame renders the frame displayed at the current position. A new
// image is allocated per distinct frame, so callers may keep it.
func (e *Element) CurrentFrame(ctx context.Context) (image.Image, time.Duration, error) {
	return xsync.DoR3(ctx, &e.locker, func() (image.Image, time.Duration, error) {
		if !e.opened || e.closed {
			return nil, 0, fmt.Errorf("the element is not opened")
		}
		if e.clock().Now().Before(e.readyAt) {
			return nil, 0, fmt.Errorf("no frame is decoded yet")
		}
		pos := e.positionLocked()
		if d := e.params.Duration; d > 0 && pos >= d {
			pos = d - time.Nanosecond
		}
		idx := e.params.FrameIndex(pos)
		if idx != e.lastFrameIdx {
			if e.lastFrameIdx >= 0 && idx > e.lastFrameIdx+1 {
				e.stats.DroppedFrames += uint64(idx - e.lastFrameIdx - 1)
			}
			e.lastFrame = DrawPattern(e.params.Width, e.params.Height, idx)
			e.lastFrameIdx = idx
			e.stats.DecodedFrames++
		}
		return e.lastFrame, e.params.FrameTimestamp(idx), nil
	})
}

func (e *Element) AudioOutput() types.PCMReader {
	return e.audio
}

func (e *Element) QualityStats() types.QualityStats {
	return xsync.DoR1(context.TODO(), &e.locker, func() types.QualityStats {
		return e.stats
	})
}

func (e *Element) Close(ctx context.Context) error {
	logger.Debugf(ctx, "Close")
	defer logger.Debugf(ctx, "/Close")
	done := xsync.DoR1(ctx, &e.locker, func() chan struct{} {
		if e.closed {
			return nil
		}
		e.closed = true
		e.paused = true
		if e.cancel != nil {
			e.cancel()
		}
		e.audio.Close()
		return e.done
	})
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
