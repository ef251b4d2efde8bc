// Package pacing drives a capture callback at a target cadence, shortening
// the next wait by however much the previous callback overran.
package pacing

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/videotexture/pkg/clock"
	"github.com/xaionaro-go/videotexture/pkg/observability"
	"github.com/xaionaro-go/xsync"
)

type Callback func(ctx context.Context)

type Controller struct {
	Config   Config
	Callback Callback

	locker     xsync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	inCallback atomic.Bool
}

func New(callback Callback, opts ...Option) *Controller {
	return &Controller{
		Config:   Options(opts).Config(),
		Callback: callback,
	}
}

func (c *Controller) clock() clock.Clock {
	return clock.OrGlobal(c.Config.Clock)
}

// Start begins invoking the callback every targetInterval. It is a no-op
// if the controller is already running.
func (c *Controller) Start(ctx context.Context, targetInterval time.Duration) {
	logger.Debugf(ctx, "Start(ctx, %v)", targetInterval)
	defer logger.Debugf(ctx, "/Start(ctx, %v)", targetInterval)
	c.locker.Do(ctx, func() {
		if c.cancel != nil {
			logger.Debugf(ctx, "already running")
			return
		}
		ctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		c.cancel, c.done = cancel, done
		pacer := NewPacer(targetInterval)
		tick := TickInterval(targetInterval, c.Config.MaxTick)
		observability.Go(ctx, func(ctx context.Context) {
			defer close(done)
			c.loop(ctx, pacer, tick)
		})
	})
}

// Stop never blocks, so it may be called from inside the callback. Use
// Wait to block until the loop has exited.
func (c *Controller) Stop() {
	ctx := context.TODO()
	c.locker.Do(ctx, func() {
		if c.cancel == nil {
			return
		}
		c.cancel()
		c.cancel = nil
	})
}

func (c *Controller) IsRunning() bool {
	return xsync.DoR1(context.TODO(), &c.locker, func() bool {
		return c.cancel != nil
	})
}

// Wait blocks until the most recently started loop exits. While the
// callback is running it returns immediately: the loop cannot exit before
// the callback returns, so waiting from inside the callback would never end.
func (c *Controller) Wait(ctx context.Context) error {
	if c.inCallback.Load() {
		logger.Debugf(ctx, "Wait: called while the callback is running, not waiting")
		return nil
	}
	done := xsync.DoR1(ctx, &c.locker, func() chan struct{} {
		return c.done
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

func (c *Controller) loop(
	ctx context.Context,
	pacer *Pacer,
	tick time.Duration,
) {
	logger.Debugf(ctx, "loop: interval:%v tick:%v", pacer.TargetInterval, tick)
	defer logger.Debugf(ctx, "/loop")
	clk := c.clock()
	ticker := clk.Ticker(tick)
	defer ticker.Stop()

	for {
		c.tryFire(ctx, clk, pacer)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Controller) tryFire(
	ctx context.Context,
	clk clock.Clock,
	pacer *Pacer,
) {
	if ctx.Err() != nil {
		return
	}
	startedAt := clk.Now()
	elapsed, ok := pacer.Due(startedAt)
	if !ok {
		return
	}
	c.inCallback.Store(true)
	observability.CallSafe(ctx, func() {
		c.Callback(ctx)
	})
	c.inCallback.Store(false)
	finishedAt := clk.Now()
	pacer.Done(finishedAt, elapsed, finishedAt.Sub(startedAt))
	logger.Tracef(ctx, "fired: elapsed:%v process:%v delay:%v", elapsed, finishedAt.Sub(startedAt), pacer.FrameDelay)
}
