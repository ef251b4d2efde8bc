package types

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Texture is the target metadata a texture consumer publishes for a source.
type Texture struct {
	Width  int
	Height int
	Format PixelFormat
}

func (t Texture) TargetSpec() TargetSpec {
	return NewTargetSpec(t.Width, t.Height, t.Format)
}

// TextureSource carries (or will carry) the ring buffer a consumer drains.
type TextureSource struct {
	RingBuffer RingBuffer
	MaxFrames  int

	binding atomic.Pointer[RingBufferBinding]
}

// Binding returns the binding published by the pipeline on connect, or nil.
func (s *TextureSource) Binding() *RingBufferBinding {
	return s.binding.Load()
}

func (s *TextureSource) SetBinding(b *RingBufferBinding) {
	s.binding.Store(b)
}

type TextureExtension interface {
	Texture(id SourceID) (*Texture, bool)
	Source(id SourceID) (*TextureSource, bool)
}

type AudioSourceType uint

const (
	UndefinedAudioSourceType = AudioSourceType(iota)
	AudioSourceTypeObject
	AudioSourceTypeHigherOrderAmbisonics
	EndOfAudioSourceType
)

func (t AudioSourceType) String() string {
	switch t {
	case UndefinedAudioSourceType:
		return "<undefined>"
	case AudioSourceTypeObject:
		return "object"
	case AudioSourceTypeHigherOrderAmbisonics:
		return "hoa"
	default:
		return fmt.Sprintf("<unexpected_value_%d>", uint(t))
	}
}

func ParseAudioSourceType(s string) AudioSourceType {
	for t := UndefinedAudioSourceType + 1; t < EndOfAudioSourceType; t++ {
		if t.String() == s {
			return t
		}
	}
	return UndefinedAudioSourceType
}

type AudioNode interface {
	Connect(dst AudioNode) error
	Disconnect() error
}

type AudioGraph interface {
	CreateMediaElementSource(ctx context.Context, el MediaElement) (AudioNode, error)
	Destination() AudioNode
	Close(ctx context.Context) error
}

// AudioSourceDescriptor describes the routing nodes of one spatial source.
// Panner is required for Object sources, Ambisonics for HOA sources.
type AudioSourceDescriptor struct {
	ID         SourceID
	Type       AudioSourceType
	Gain       AudioNode
	Panner     AudioNode
	Ambisonics AudioNode
}

type AudioExtension interface {
	Graph() AudioGraph
	Source(id SourceID) (*AudioSourceDescriptor, bool)
}

// AudioBinding is the routing chain installed for a source:
// tap -> gain -> panner or ambisonics renderer -> destination.
type AudioBinding struct {
	SourceID SourceID
	Type     AudioSourceType
	Nodes    []AudioNode
}
