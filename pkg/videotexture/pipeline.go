// Package videotexture is the pipeline orchestrator: it owns the media
// element, paces frame captures, converts them to the bound texture format,
// notifies listeners and feeds the bound ring buffer.
package videotexture

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xaionaro-go/videotexture/pkg/audiorouter"
	"github.com/xaionaro-go/videotexture/pkg/clock"
	"github.com/xaionaro-go/videotexture/pkg/frameconv"
	"github.com/xaionaro-go/videotexture/pkg/framefeed"
	"github.com/xaionaro-go/videotexture/pkg/pacing"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
	"github.com/xaionaro-go/xsync"
)

type InitConfig struct {
	ManifestURL string

	// TextureRequirements is used for letterboxing until a texture is bound.
	TextureRequirements *types.TargetSpec
}

type Pipeline struct {
	ID      uuid.UUID
	Config  types.Config
	Factory types.MediaElementFactory

	locker              xsync.Mutex
	state               atomic.Uint32
	element             types.MediaElement
	textureRequirements *types.TargetSpec
	lastCaptureTime     time.Duration
	hasLastCapture      bool
	initCancel          context.CancelFunc
	endWatcherCancel    context.CancelFunc
	pacingCtx           context.Context

	binding atomic.Pointer[types.RingBufferBinding]

	pacing    *pacing.Controller
	converter *frameconv.Converter
	feed      *framefeed.Feed
	audio     *audiorouter.Router

	listenersLocker xsync.Mutex
	listeners       []listener
	nextListenerID  types.ListenerID

	stats pipelineStats
}

type pipelineStats struct {
	captured       atomic.Uint64
	skipped        atomic.Uint64
	converted      atomic.Uint64
	convertErrors  atomic.Uint64
	emitted        atomic.Uint64
	admissionDrops atomic.Uint64
}

type Stats struct {
	State          types.State
	Captured       uint64
	Skipped        uint64
	Converted      uint64
	ConvertErrors  uint64
	Emitted        uint64
	AdmissionDrops uint64
	Feed           framefeed.Stats
	Media          types.QualityStats
}

func New(
	factory types.MediaElementFactory,
	opts ...types.Option,
) *Pipeline {
	p := &Pipeline{
		ID:      uuid.New(),
		Config:  types.Options(opts).Config(),
		Factory: factory,
	}
	p.converter = frameconv.New(p.Config.ColorModel)
	p.feed = framefeed.New(prometheus.Labels{"pipeline": p.ID.String()})
	p.audio = audiorouter.New()
	p.pacing = pacing.New(
		p.onTick,
		pacing.OptionMaxTick(p.Config.MaxSchedulerTick),
		pacing.OptionClock{Clock: p.Config.Clock},
	)
	p.nextListenerID = feedListenerID + 1
	p.listeners = []listener{{ID: feedListenerID, Callback: p.admit}}
	return p
}

func (p *Pipeline) ctx(ctx context.Context) context.Context {
	return belt.WithField(ctx, "pipeline_id", p.ID.String())
}

func (p *Pipeline) clock() clock.Clock {
	return clock.OrGlobal(p.Config.Clock)
}

func (p *Pipeline) State() types.State {
	return types.State(p.state.Load())
}

func (p *Pipeline) setStateLocked(ctx context.Context, s types.State) {
	old := types.State(p.state.Swap(uint32(s)))
	if old != s {
		logger.Debugf(ctx, "state: %s -> %s", old, s)
	}
}

func (p *Pipeline) isDisposed() bool {
	return p.State() == types.StateDisposed
}

// Binding returns the currently installed ring buffer binding, if any.
func (p *Pipeline) Binding() *types.RingBufferBinding {
	return p.binding.Load()
}

// Collectors returns the prometheus collectors of the frame feed.
func (p *Pipeline) Collectors() []prometheus.Collector {
	return p.feed.Collectors()
}

func (p *Pipeline) Stats(ctx context.Context) Stats {
	s := Stats{
		State:          p.State(),
		Captured:       p.stats.captured.Load(),
		Skipped:        p.stats.skipped.Load(),
		Converted:      p.stats.converted.Load(),
		ConvertErrors:  p.stats.convertErrors.Load(),
		Emitted:        p.stats.emitted.Load(),
		AdmissionDrops: p.stats.admissionDrops.Load(),
		Feed:           p.feed.Stats(),
	}
	p.locker.Do(ctx, func() {
		if p.element != nil {
			s.Media = p.element.QualityStats()
		}
	})
	return s
}
