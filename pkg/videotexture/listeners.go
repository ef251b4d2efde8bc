package videotexture

import (
	"context"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/videotexture/pkg/observability"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
	"github.com/xaionaro-go/xsync"
)

const feedListenerID = types.ListenerID(0)

type listener struct {
	ID       types.ListenerID
	Callback types.FuncVideoFrameListener
}

// AddVideoFrameListener registers fn to be called synchronously, in
// registration order, once per accepted capture.
func (p *Pipeline) AddVideoFrameListener(fn types.FuncVideoFrameListener) types.ListenerID {
	return xsync.DoR1(context.TODO(), &p.listenersLocker, func() types.ListenerID {
		id := p.nextListenerID
		p.nextListenerID++
		p.listeners = append(p.listeners, listener{ID: id, Callback: fn})
		return id
	})
}

func (p *Pipeline) RemoveVideoFrameListener(id types.ListenerID) bool {
	if id == feedListenerID {
		return false
	}
	return xsync.DoR1(context.TODO(), &p.listenersLocker, func() bool {
		for idx, l := range p.listeners {
			if l.ID == id {
				p.listeners = append(p.listeners[:idx:idx], p.listeners[idx+1:]...)
				return true
			}
		}
		return false
	})
}

func (p *Pipeline) detachListeners(ctx context.Context) {
	p.listenersLocker.Do(ctx, func() {
		p.listeners = nil
	})
}

// dispatch runs outside of the pipeline lock, so listeners may call back
// into the pipeline. A panicking listener does not affect the others.
func (p *Pipeline) dispatch(ctx context.Context, frame types.VideoFrame) {
	listeners := xsync.DoR1(ctx, &p.listenersLocker, func() []listener {
		return p.listeners
	})
	for _, l := range listeners {
		if p.isDisposed() || ctx.Err() != nil {
			logger.Tracef(ctx, "stopped dispatching: disposed or stopped")
			return
		}
		if observability.CallSafe(ctx, func() { l.Callback(ctx, frame) }) {
			logger.Errorf(ctx, "video frame listener %d panicked", l.ID)
		}
	}
	p.stats.emitted.Add(1)
}

// admit is the internal listener that feeds the bound ring buffer.
func (p *Pipeline) admit(ctx context.Context, frame types.VideoFrame) {
	binding := p.binding.Load()
	if binding == nil {
		return
	}
	if err := p.feed.Admit(ctx, binding, frame); err != nil {
		p.stats.admissionDrops.Add(1)
	}
}
