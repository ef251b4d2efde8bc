// Package framefeed admits converted frames into a bound ring buffer,
// evicting the oldest resident frame when the binding is full.
package framefeed

import (
	"context"
	"errors"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
	"github.com/xaionaro-go/xsync"
)

type Feed struct {
	locker  xsync.Mutex
	discard []byte
	metrics *metrics
}

func New(constLabels prometheus.Labels) *Feed {
	return &Feed{
		metrics: newMetrics(constLabels),
	}
}

// Admit pushes one payload. Rejected payloads are returned as typed errors
// and counted; they never affect the resident frames.
func (f *Feed) Admit(
	ctx context.Context,
	binding *types.RingBufferBinding,
	payload types.VideoFrame,
) (_err error) {
	logger.Tracef(ctx, "Admit(ctx, binding, %dx%d@%v)", payload.Width, payload.Height, payload.Timestamp)
	defer func() {
		if _err != nil {
			f.metrics.incDropped(dropReason(_err))
			logger.Debugf(ctx, "dropped a frame at %v: %v", payload.Timestamp, _err)
		}
	}()

	return xsync.DoR1(ctx, &f.locker, func() error {
		return f.admitLocked(ctx, binding, payload)
	})
}

func (f *Feed) admitLocked(
	ctx context.Context,
	binding *types.RingBufferBinding,
	payload types.VideoFrame,
) error {
	if binding == nil || binding.Buffer == nil {
		return types.ErrNoBuffer{}
	}
	target := binding.Target
	if len(payload.Data) != target.FrameByteSize {
		return types.ErrPayloadSizeMismatch{
			Expected: target.FrameByteSize,
			Actual:   len(payload.Data),
		}
	}
	if payload.Width != target.Width || payload.Height != target.Height {
		return types.ErrDimensionsMismatch{
			Expected: target,
			Width:    payload.Width,
			Height:   payload.Height,
		}
	}

	size := target.FrameByteSize
	if binding.Count() >= MaxFrames(binding) {
		f.evictOne(ctx, binding)
	}

	if avail := binding.Buffer.AvailableWrite(); avail < size {
		return types.ErrNoRoom{Needed: size, Available: avail}
	}
	binding.IncCount()
	if n := binding.Buffer.Push(payload.Data); n != size {
		binding.DecCount()
		return fmt.Errorf("pushed %d bytes out of %d", n, size)
	}
	f.metrics.incAdmitted()
	return nil
}

func (f *Feed) evictOne(
	ctx context.Context,
	binding *types.RingBufferBinding,
) {
	size := binding.Target.FrameByteSize
	if cap(f.discard) < size {
		f.discard = make([]byte, size)
	}
	if binding.ReadFrame(f.discard[:size]) == 0 {
		// the consumer drained it in the meantime
		return
	}
	f.metrics.incEvicted()
	logger.Tracef(ctx, "evicted the oldest frame of '%s'", binding.SourceID)
}

// MaxFrames is the effective admission cap of a binding: the configured
// value, bounded by what the buffer can physically hold.
func MaxFrames(binding *types.RingBufferBinding) int {
	size := binding.Target.FrameByteSize
	if size <= 0 {
		return 0
	}
	physical := binding.Buffer.Capacity() / size
	if binding.MaxFrames <= 0 || binding.MaxFrames > physical {
		return physical
	}
	return binding.MaxFrames
}

func (f *Feed) Stats() Stats {
	return f.metrics.stats()
}

func (f *Feed) Collectors() []prometheus.Collector {
	return f.metrics.collectors()
}

func dropReason(err error) DropReason {
	var (
		errNoBuffer types.ErrNoBuffer
		errSize     types.ErrPayloadSizeMismatch
		errDims     types.ErrDimensionsMismatch
		errRoom     types.ErrNoRoom
	)
	switch {
	case errors.As(err, &errNoBuffer):
		return DropReasonNoBuffer
	case errors.As(err, &errSize):
		return DropReasonSizeMismatch
	case errors.As(err, &errDims):
		return DropReasonDimensionsMismatch
	case errors.As(err, &errRoom):
		return DropReasonNoRoom
	default:
		return DropReasonPushFailed
	}
}
