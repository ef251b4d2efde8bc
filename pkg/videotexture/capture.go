package videotexture

import (
	"context"
	"image"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/videotexture/pkg/frameconv"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
	"github.com/xaionaro-go/xsync"
)

// onTick is the pacing callback.
func (p *Pipeline) onTick(ctx context.Context) {
	frame, ok := xsync.DoR2(ctx, &p.locker, func() (types.VideoFrame, bool) {
		if ctx.Err() != nil {
			// the cadence was stopped while this tick waited for the lock
			return types.VideoFrame{}, false
		}
		return p.captureLocked(ctx)
	})
	if !ok {
		return
	}
	p.dispatch(ctx, frame)
}

func (p *Pipeline) skip(ctx context.Context, reason string) (types.VideoFrame, bool) {
	logger.Tracef(ctx, "capture skipped: %s", reason)
	p.stats.skipped.Add(1)
	return types.VideoFrame{}, false
}

func (p *Pipeline) captureLocked(ctx context.Context) (types.VideoFrame, bool) {
	el := p.element
	if el == nil {
		return p.skip(ctx, "no media element")
	}
	if el.Paused() || el.Ended() {
		return p.skip(ctx, "paused or ended")
	}
	if el.ReadyState() < types.ReadyStateHaveCurrentData {
		return p.skip(ctx, "not enough data")
	}
	srcW, srcH := el.VideoSize()
	if srcW <= 0 || srcH <= 0 {
		return p.skip(ctx, "zero source dimensions")
	}

	img, ts, err := el.CurrentFrame(ctx)
	if err != nil {
		logger.Debugf(ctx, "unable to get the current frame: %v", err)
		return p.skip(ctx, "no current frame")
	}
	if img == nil {
		return p.skip(ctx, "no current frame")
	}
	if p.hasLastCapture {
		// a negative delta is a backward seek and is always accepted
		if delta := ts - p.lastCaptureTime; delta >= 0 && delta < p.Config.MinCaptureSpacing {
			return p.skip(ctx, "duplicate source time")
		}
	}

	target, hasTarget := p.effectiveTargetLocked()
	frame := p.drawLocked(img, srcW, srcH, target, hasTarget, ts)
	p.lastCaptureTime, p.hasLastCapture = ts, true
	p.stats.captured.Add(1)

	if !hasTarget {
		return types.VideoFrame{
			Data:      frame.Pixels,
			Width:     frame.Width,
			Height:    frame.Height,
			Format:    types.PixelFormatRGBA,
			Timestamp: ts,
		}, true
	}

	if target.Matches(frame.Width, frame.Height, types.PixelFormatRGBA) &&
		len(frame.Pixels) == target.FrameByteSize {
		return types.VideoFrame{
			Data:      frame.Pixels,
			Width:     frame.Width,
			Height:    frame.Height,
			Format:    target.Format,
			Timestamp: ts,
		}, true
	}

	data, err := p.converter.Convert(ctx, frame, target)
	if err != nil {
		p.stats.convertErrors.Add(1)
		logger.Debugf(ctx, "unable to convert the frame to %s: %v", target, err)
		return p.skip(ctx, "conversion failed")
	}
	p.stats.converted.Add(1)
	return types.VideoFrame{
		Data:      data,
		Width:     target.Width,
		Height:    target.Height,
		Format:    target.Format,
		Timestamp: ts,
	}, true
}

// effectiveTargetLocked returns the bound texture format, falling back to
// the texture requirements given at initialization.
func (p *Pipeline) effectiveTargetLocked() (types.TargetSpec, bool) {
	if b := p.binding.Load(); b != nil {
		return b.Target, true
	}
	if p.textureRequirements != nil && p.textureRequirements.Validate() == nil {
		return *p.textureRequirements, true
	}
	return types.TargetSpec{}, false
}

// drawLocked renders the decode surface according to the capture policy.
// Letterboxing needs a target; without one the surface is drawn as-is.
func (p *Pipeline) drawLocked(
	img image.Image,
	srcW, srcH int,
	target types.TargetSpec,
	hasTarget bool,
	ts time.Duration,
) *types.Frame {
	var drawn *image.NRGBA
	switch {
	case p.Config.CapturePolicy == types.CapturePolicyLetterbox && hasTarget:
		drawn = frameconv.DrawLetterbox(img, target.Width, target.Height)
	default:
		drawn = frameconv.DrawStretch(img)
	}
	return frameconv.NewFrame(drawn, srcW, srcH, ts)
}
