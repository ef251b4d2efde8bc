package videotexture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/videotexture/pkg/observability"
	"github.com/xaionaro-go/videotexture/pkg/pacing"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"
)

const readyStatePollInterval = 10 * time.Millisecond

// Initialize opens the manifest and waits for the media metadata. It is a
// no-op once Ready (or any later state) has been reached.
func (p *Pipeline) Initialize(
	ctx context.Context,
	cfg InitConfig,
) (_err error) {
	ctx = p.ctx(ctx)
	logger.Debugf(ctx, "Initialize(ctx, %#+v)", cfg)
	defer func() { logger.Debugf(ctx, "/Initialize(ctx, %#+v): %v", cfg, _err) }()

	initCtx, proceed, err := p.beginInitialize(ctx, cfg)
	if !proceed || err != nil {
		return err
	}

	el, err := p.openMediaElement(initCtx, cfg.ManifestURL)
	return p.finishInitialize(ctx, el, err)
}

func (p *Pipeline) beginInitialize(
	ctx context.Context,
	cfg InitConfig,
) (context.Context, bool, error) {
	var (
		initCtx context.Context
		proceed bool
		err     error
	)
	p.locker.Do(ctx, func() {
		switch state := p.State(); state {
		case types.StateUninitialized:
		case types.StateInitializing:
			err = types.ErrNotReady{State: state}
			return
		default:
			return
		}
		if cfg.TextureRequirements != nil {
			req := *cfg.TextureRequirements
			p.textureRequirements = &req
		}
		var cancel context.CancelFunc
		initCtx, cancel = context.WithCancel(ctx)
		p.initCancel = cancel
		p.setStateLocked(ctx, types.StateInitializing)
		proceed = true
	})
	return initCtx, proceed, err
}

func (p *Pipeline) openMediaElement(
	ctx context.Context,
	url string,
) (types.MediaElement, error) {
	if p.Factory == nil {
		return nil, fmt.Errorf("media element factory is not set")
	}
	el, err := p.Factory.NewMediaElement(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to create a media element: %w", err)
	}

	clk := p.clock()
	openCtx, cancel := clk.WithTimeout(ctx, p.Config.ManifestTimeout)
	err = el.Open(openCtx, url)
	timedOut := errors.Is(openCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil || timedOut {
		errmon.ObserveErrorCtx(ctx, el.Close(ctx))
		if timedOut {
			return nil, types.ErrManifestTimeout{URL: url}
		}
		return nil, fmt.Errorf("unable to open '%s': %w", url, err)
	}

	if err := p.waitReadyState(ctx, el, types.ReadyStateHaveMetadata); err != nil {
		errmon.ObserveErrorCtx(ctx, el.Close(ctx))
		return nil, err
	}
	return el, nil
}

func (p *Pipeline) waitReadyState(
	ctx context.Context,
	el types.MediaElement,
	want types.ReadyState,
) error {
	clk := p.clock()
	waitCtx, cancel := clk.WithTimeout(ctx, p.Config.MetadataTimeout)
	defer cancel()

	t := clk.Ticker(readyStatePollInterval)
	defer t.Stop()
	for el.ReadyState() < want {
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return types.ErrMetadataTimeout{}
		case <-t.C:
		}
	}
	return nil
}

func (p *Pipeline) finishInitialize(
	ctx context.Context,
	el types.MediaElement,
	initErr error,
) error {
	var err error
	p.locker.Do(ctx, func() {
		if p.initCancel != nil {
			p.initCancel()
			p.initCancel = nil
		}
		if p.State() != types.StateInitializing {
			// disposed while waiting
			if el != nil {
				errmon.ObserveErrorCtx(ctx, el.Close(ctx))
			}
			err = types.ErrInitializationFailed{Err: context.Canceled}
			return
		}
		if initErr != nil {
			p.setStateLocked(ctx, types.StateUninitialized)
			err = types.ErrInitializationFailed{Err: initErr}
			return
		}
		p.element = el
		p.pacingCtx = xcontext.DetachDone(ctx)
		p.setStateLocked(ctx, types.StateReady)
	})
	return err
}

// Play starts (or resumes) playback and the capture cadence. An autoplay
// refusal is returned as types.ErrAutoplayBlocked and leaves the state as is.
func (p *Pipeline) Play(ctx context.Context) (_err error) {
	ctx = p.ctx(ctx)
	logger.Debugf(ctx, "Play")
	defer func() { logger.Debugf(ctx, "/Play: %v", _err) }()
	return xsync.DoR1(ctx, &p.locker, func() error {
		switch state := p.State(); state {
		case types.StateDisposed, types.StatePlaying:
			return nil
		case types.StateReady, types.StatePaused, types.StateEnded:
		default:
			return types.ErrNotReady{State: state}
		}

		if p.element.Ended() {
			if err := p.element.Seek(ctx, 0); err != nil {
				return fmt.Errorf("unable to rewind: %w", err)
			}
			p.hasLastCapture = false
		}
		if err := p.element.Play(ctx); err != nil {
			var errAutoplay types.ErrAutoplayBlocked
			if errors.As(err, &errAutoplay) {
				return errAutoplay
			}
			return fmt.Errorf("unable to start playback: %w", err)
		}
		p.setStateLocked(ctx, types.StatePlaying)
		p.startEndWatcherLocked(ctx)
		p.startPacingLocked(ctx)
		return nil
	})
}

func (p *Pipeline) startPacingLocked(ctx context.Context) {
	interval := pacing.IntervalForFrameRate(p.element.FrameRate(), p.Config.DefaultFrameRate)
	pacingCtx := p.pacingCtx
	if pacingCtx == nil {
		pacingCtx = xcontext.DetachDone(ctx)
	}
	p.pacing.Start(pacingCtx, interval)
}

func (p *Pipeline) startEndWatcherLocked(ctx context.Context) {
	if p.endWatcherCancel != nil {
		p.endWatcherCancel()
	}
	endCh := p.element.EndChan()
	if endCh == nil {
		return
	}
	ctx, cancel := context.WithCancel(xcontext.DetachDone(ctx))
	p.endWatcherCancel = cancel
	observability.Go(ctx, func(ctx context.Context) {
		select {
		case <-ctx.Done():
			return
		case <-endCh:
		}
		p.locker.Do(ctx, func() {
			if ctx.Err() != nil || p.State() != types.StatePlaying {
				return
			}
			logger.Debugf(ctx, "the stream has ended")
			p.pacing.Stop()
			p.setStateLocked(ctx, types.StateEnded)
		})
	})
}

func (p *Pipeline) stopEndWatcherLocked() {
	if p.endWatcherCancel != nil {
		p.endWatcherCancel()
		p.endWatcherCancel = nil
	}
}

// Pause is a no-op unless playing.
func (p *Pipeline) Pause(ctx context.Context) (_err error) {
	ctx = p.ctx(ctx)
	logger.Debugf(ctx, "Pause")
	defer func() { logger.Debugf(ctx, "/Pause: %v", _err) }()
	return xsync.DoR1(ctx, &p.locker, func() error {
		if p.State() != types.StatePlaying {
			return nil
		}
		return p.pauseLocked(ctx)
	})
}

func (p *Pipeline) pauseLocked(ctx context.Context) error {
	p.pacing.Stop()
	p.stopEndWatcherLocked()
	p.setStateLocked(ctx, types.StatePaused)
	if err := p.element.Pause(ctx); err != nil {
		return fmt.Errorf("unable to pause: %w", err)
	}
	return nil
}

// Stop pauses and rewinds to the beginning.
func (p *Pipeline) Stop(ctx context.Context) (_err error) {
	ctx = p.ctx(ctx)
	logger.Debugf(ctx, "Stop")
	defer func() { logger.Debugf(ctx, "/Stop: %v", _err) }()
	return xsync.DoR1(ctx, &p.locker, func() error {
		state := p.State()
		if !state.IsReady() {
			return nil
		}
		var mErr *multierror.Error
		if state == types.StatePlaying || state == types.StateEnded {
			if err := p.pauseLocked(ctx); err != nil {
				mErr = multierror.Append(mErr, err)
			}
		}
		if err := p.element.Seek(ctx, 0); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to rewind: %w", err))
		}
		p.hasLastCapture = false
		return mErr.ErrorOrNil()
	})
}

// Seek moves the media element; it never resumes the capture cadence.
// Before the element is ready there is nothing to move and Seek is a no-op.
func (p *Pipeline) Seek(ctx context.Context, pos time.Duration) (_err error) {
	ctx = p.ctx(ctx)
	logger.Debugf(ctx, "Seek(ctx, %v)", pos)
	defer func() { logger.Debugf(ctx, "/Seek(ctx, %v): %v", pos, _err) }()
	return xsync.DoR1(ctx, &p.locker, func() error {
		if state := p.State(); !state.IsReady() {
			logger.Tracef(ctx, "Seek: nothing to move in state %s", state)
			return nil
		}
		if err := p.element.Seek(ctx, pos); err != nil {
			return fmt.Errorf("unable to seek to %v: %w", pos, err)
		}
		p.hasLastCapture = false
		return nil
	})
}

func (p *Pipeline) CurrentTime(ctx context.Context) time.Duration {
	return xsync.DoR1(ctx, &p.locker, func() time.Duration {
		if p.element == nil {
			return 0
		}
		return p.element.CurrentTime()
	})
}

// Dispose tears everything down and moves to Disposed. Any later call on
// the pipeline is a no-op. It may be called from a video frame listener.
func (p *Pipeline) Dispose(ctx context.Context) (_err error) {
	ctx = p.ctx(ctx)
	logger.Debugf(ctx, "Dispose")
	defer func() { logger.Debugf(ctx, "/Dispose: %v", _err) }()

	var (
		mErr     *multierror.Error
		disposed bool
	)
	p.locker.Do(ctx, func() {
		if p.isDisposed() {
			return
		}
		disposed = true
		p.setStateLocked(ctx, types.StateDisposed)
		p.pacing.Stop()
		p.stopEndWatcherLocked()
		if p.initCancel != nil {
			p.initCancel()
			p.initCancel = nil
		}

		if err := p.converter.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to close the converter: %w", err))
		}
		p.detachListeners(ctx)
		if p.element != nil {
			if err := p.element.Close(ctx); err != nil {
				mErr = multierror.Append(mErr, fmt.Errorf("unable to close the media element: %w", err))
			}
			p.element = nil
		}
		if err := p.audio.Close(ctx); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to close the audio router: %w", err))
		}
		p.binding.Store(nil)
	})
	if !disposed {
		return nil
	}

	if err := p.pacing.Wait(ctx); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("unable to wait for the capture loop: %w", err))
	}
	return mErr.ErrorOrNil()
}
