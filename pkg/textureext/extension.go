// Package textureext is a map-backed texture extension: texture metadata
// and ring buffer sources keyed by source ID, plus a consumer that drains a
// source the way a texture uploader would.
package textureext

import (
	"context"
	"fmt"
	"sort"

	"github.com/xaionaro-go/videotexture/pkg/ringbuffer"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
	"github.com/xaionaro-go/xsync"
)

type Extension struct {
	locker   xsync.Mutex
	textures map[types.SourceID]*types.Texture
	sources  map[types.SourceID]*types.TextureSource
}

var _ types.TextureExtension = (*Extension)(nil)

func New() *Extension {
	return &Extension{
		textures: map[types.SourceID]*types.Texture{},
		sources:  map[types.SourceID]*types.TextureSource{},
	}
}

// AddTexture registers a texture and allocates a ring buffer large enough
// for bufferFrames frames of it.
func (e *Extension) AddTexture(
	id types.SourceID,
	texture types.Texture,
	bufferFrames int,
	maxFrames int,
) (*types.TextureSource, error) {
	target := texture.TargetSpec()
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("invalid texture '%s': %w", id, err)
	}
	if bufferFrames <= 0 {
		return nil, fmt.Errorf("the ring buffer of '%s' must hold at least one frame", id)
	}
	src := &types.TextureSource{
		RingBuffer: ringbuffer.New(uint(bufferFrames * target.FrameByteSize)),
		MaxFrames:  maxFrames,
	}
	e.locker.Do(context.TODO(), func() {
		e.textures[id] = &texture
		e.sources[id] = src
	})
	return src, nil
}

func (e *Extension) Remove(id types.SourceID) {
	e.locker.Do(context.TODO(), func() {
		delete(e.textures, id)
		delete(e.sources, id)
	})
}

func (e *Extension) IDs() []types.SourceID {
	return xsync.DoR1(context.TODO(), &e.locker, func() []types.SourceID {
		ids := make([]types.SourceID, 0, len(e.textures))
		for id := range e.textures {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		return ids
	})
}

func (e *Extension) Texture(id types.SourceID) (*types.Texture, bool) {
	return xsync.DoR2(context.TODO(), &e.locker, func() (*types.Texture, bool) {
		t, ok := e.textures[id]
		return t, ok
	})
}

func (e *Extension) Source(id types.SourceID) (*types.TextureSource, bool) {
	return xsync.DoR2(context.TODO(), &e.locker, func() (*types.TextureSource, bool) {
		s, ok := e.sources[id]
		return s, ok
	})
}
