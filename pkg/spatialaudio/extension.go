package spatialaudio

import (
	"context"

	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
	"github.com/xaionaro-go/xsync"
)

// Extension is a map-backed set of spatial audio sources on one graph.
type Extension struct {
	locker  xsync.Mutex
	graph   *Graph
	sources map[types.SourceID]*types.AudioSourceDescriptor
}

var _ types.AudioExtension = (*Extension)(nil)

func NewExtension(g *Graph) *Extension {
	return &Extension{
		graph:   g,
		sources: map[types.SourceID]*types.AudioSourceDescriptor{},
	}
}

func (e *Extension) Graph() types.AudioGraph {
	return e.graph
}

func (e *Extension) Source(id types.SourceID) (*types.AudioSourceDescriptor, bool) {
	return xsync.DoR2(context.TODO(), &e.locker, func() (*types.AudioSourceDescriptor, bool) {
		d, ok := e.sources[id]
		return d, ok
	})
}

func (e *Extension) AddObjectSource(
	id types.SourceID,
	gain float64,
	azimuth float64,
) *types.AudioSourceDescriptor {
	return e.add(&types.AudioSourceDescriptor{
		ID:     id,
		Type:   types.AudioSourceTypeObject,
		Gain:   e.graph.NewGain(gain),
		Panner: e.graph.NewPanner(azimuth),
	})
}

func (e *Extension) AddAmbisonicsSource(
	id types.SourceID,
	gain float64,
	azimuth, elevation float64,
) *types.AudioSourceDescriptor {
	return e.add(&types.AudioSourceDescriptor{
		ID:         id,
		Type:       types.AudioSourceTypeHigherOrderAmbisonics,
		Gain:       e.graph.NewGain(gain),
		Ambisonics: e.graph.NewAmbisonicsRenderer(azimuth, elevation),
	})
}

func (e *Extension) add(d *types.AudioSourceDescriptor) *types.AudioSourceDescriptor {
	e.locker.Do(context.TODO(), func() {
		e.sources[d.ID] = d
	})
	return d
}
