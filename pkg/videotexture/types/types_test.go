package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPixelFormat_String(t *testing.T) {
	for f := PixelFormatUndefined + 1; f < EndOfPixelFormat; f++ {
		assert.NotContains(t, f.String(), "unexpected", "PixelFormat %d does not have a proper string defined", f)
		parsed, err := ParsePixelFormat(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
		assert.NotZero(t, f.BytesPerPixel())
	}
}

func TestState_String(t *testing.T) {
	for s := StateUninitialized; s <= StateDisposed; s++ {
		assert.NotContains(t, s.String(), "unexpected", "State %d does not have a proper string defined", s)
	}
}

func TestCapturePolicy_Text(t *testing.T) {
	for p := UndefinedCapturePolicy + 1; p < EndOfCapturePolicy; p++ {
		b, err := p.MarshalText()
		require.NoError(t, err)
		var parsed CapturePolicy
		require.NoError(t, parsed.UnmarshalText(b))
		assert.Equal(t, p, parsed)
	}
	var p CapturePolicy
	require.Error(t, p.UnmarshalText([]byte("zoom")))
}

func TestTargetSpec_Validate(t *testing.T) {
	s := NewTargetSpec(640, 360, PixelFormatRGBA)
	require.Equal(t, 921600, s.FrameByteSize)
	require.NoError(t, s.Validate())

	s.FrameByteSize = 900000
	var errInvalid ErrInvalidTarget
	require.ErrorAs(t, s.Validate(), &errInvalid)

	require.Error(t, NewTargetSpec(0, 360, PixelFormatRGBA).Validate())
	require.Error(t, NewTargetSpec(640, 360, PixelFormatUndefined).Validate())
}

type sliceRing struct {
	data []byte
	cap  int
}

func (r *sliceRing) Push(b []byte) int {
	n := min(len(b), r.cap-len(r.data))
	r.data = append(r.data, b[:n]...)
	return n
}

func (r *sliceRing) Pop(dst []byte) int {
	n := copy(dst, r.data)
	r.data = r.data[n:]
	return n
}

func (r *sliceRing) AvailableWrite() int { return r.cap - len(r.data) }
func (r *sliceRing) AvailableRead() int  { return len(r.data) }
func (r *sliceRing) Capacity() int       { return r.cap }

func TestRingBufferBinding_ReadFrame(t *testing.T) {
	target := NewTargetSpec(2, 1, PixelFormatRGB)
	ring := &sliceRing{cap: 64}
	b := NewRingBufferBinding("src", ring, 3, target)

	dst := make([]byte, target.FrameByteSize)
	require.Zero(t, b.ReadFrame(dst))

	ring.Push([]byte{1, 2, 3, 4, 5, 6})
	b.IncCount()
	require.Equal(t, 1, b.Count())

	require.Equal(t, 6, b.ReadFrame(dst))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, dst)
	assert.Zero(t, b.Count())

	b.DecCount()
	assert.Zero(t, b.Count())
}
