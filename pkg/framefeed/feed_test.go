package framefeed

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/videotexture/pkg/ringbuffer"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
)

func payload(target types.TargetSpec, fill byte) types.VideoFrame {
	data := make([]byte, target.FrameByteSize)
	for i := range data {
		data[i] = fill
	}
	return types.VideoFrame{
		Data:   data,
		Width:  target.Width,
		Height: target.Height,
		Format: target.Format,
	}
}

func TestAdmitEvictsOldest(t *testing.T) {
	ctx := context.Background()
	target := types.NewTargetSpec(4, 2, types.PixelFormatRGBA)
	ring := ringbuffer.New(uint(4 * target.FrameByteSize))
	binding := types.NewRingBufferBinding("cam", ring, 3, target)
	feed := New(nil)

	for i := byte(1); i <= 4; i++ {
		require.NoError(t, feed.Admit(ctx, binding, payload(target, i)))
		require.LessOrEqual(t, binding.Count(), binding.MaxFrames)
	}
	require.Equal(t, 3, binding.Count())

	dst := make([]byte, target.FrameByteSize)
	for _, expected := range []byte{2, 3, 4} {
		require.Equal(t, target.FrameByteSize, binding.ReadFrame(dst))
		assert.Equal(t, expected, dst[0])
		assert.Equal(t, expected, dst[len(dst)-1])
	}
	require.Zero(t, binding.Count())
	require.Zero(t, binding.ReadFrame(dst))

	stats := feed.Stats()
	assert.Equal(t, uint64(4), stats.Admitted)
	assert.Equal(t, uint64(1), stats.Evicted)
	assert.Zero(t, stats.DroppedTotal())
}

func TestAdmitNeverExceedsMaxFrames(t *testing.T) {
	ctx := context.Background()
	target := types.NewTargetSpec(3, 3, types.PixelFormatRGB)
	ring := ringbuffer.New(uint(10 * target.FrameByteSize))
	binding := types.NewRingBufferBinding("cam", ring, 5, target)
	feed := New(nil)

	dst := make([]byte, target.FrameByteSize)
	for i := 0; i < 100; i++ {
		require.NoError(t, feed.Admit(ctx, binding, payload(target, byte(i))))
		require.LessOrEqual(t, binding.Count(), 5)
		require.Equal(t, binding.Count()*target.FrameByteSize, ring.AvailableRead())
		if i%7 == 0 {
			binding.ReadFrame(dst)
		}
	}
	assert.Equal(t, uint64(100), feed.Stats().Admitted)
}

// interleavedRing lets a consumer read right after a push lands, before
// Admit returns.
type interleavedRing struct {
	*ringbuffer.RingBuffer
	afterPush func()
}

func (r *interleavedRing) Push(b []byte) int {
	n := r.RingBuffer.Push(b)
	if fn := r.afterPush; fn != nil {
		r.afterPush = nil
		fn()
	}
	return n
}

func TestAdmitConsumerReadsDuringPush(t *testing.T) {
	ctx := context.Background()
	target := types.NewTargetSpec(2, 2, types.PixelFormatRGBA)
	ring := &interleavedRing{RingBuffer: ringbuffer.New(uint(2 * target.FrameByteSize))}
	binding := types.NewRingBufferBinding("cam", ring, 1, target)
	feed := New(nil)

	dst := make([]byte, target.FrameByteSize)
	ring.afterPush = func() {
		require.Equal(t, target.FrameByteSize, binding.ReadFrame(dst))
	}
	require.NoError(t, feed.Admit(ctx, binding, payload(target, 1)))
	require.Zero(t, binding.Count())
	require.Zero(t, ring.AvailableRead())

	require.NoError(t, feed.Admit(ctx, binding, payload(target, 2)))
	require.Equal(t, 1, binding.Count())
	require.Equal(t, target.FrameByteSize, ring.AvailableRead())

	require.NoError(t, feed.Admit(ctx, binding, payload(target, 3)))
	require.Equal(t, 1, binding.Count())
	require.Equal(t, target.FrameByteSize, binding.ReadFrame(dst))
	assert.Equal(t, byte(3), dst[0])
}

func TestAdmitWithConcurrentConsumer(t *testing.T) {
	ctx := context.Background()
	target := types.NewTargetSpec(4, 4, types.PixelFormatRGBA)
	ring := ringbuffer.New(uint(3 * target.FrameByteSize))
	binding := types.NewRingBufferBinding("cam", ring, 2, target)
	feed := New(nil)

	var (
		wg       sync.WaitGroup
		stop     atomic.Bool
		consumed atomic.Int64
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		dst := make([]byte, target.FrameByteSize)
		for !stop.Load() {
			if binding.ReadFrame(dst) > 0 {
				consumed.Add(1)
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		require.NoError(t, feed.Admit(ctx, binding, payload(target, byte(i))))
		require.LessOrEqual(t, binding.Count(), binding.MaxFrames)
	}
	stop.Store(true)
	wg.Wait()

	require.LessOrEqual(t, binding.Count(), binding.MaxFrames)
	require.Equal(t, binding.Count()*target.FrameByteSize, ring.AvailableRead())
	stats := feed.Stats()
	assert.Equal(t, uint64(2000), stats.Admitted)
	assert.Equal(t, int64(stats.Admitted)-int64(stats.Evicted)-consumed.Load(), int64(binding.Count()))
}

func TestAdmitDropsSizeMismatch(t *testing.T) {
	ctx := context.Background()
	target := types.NewTargetSpec(640, 360, types.PixelFormatRGBA)
	require.Equal(t, 921600, target.FrameByteSize)
	ring := ringbuffer.New(uint(2 * target.FrameByteSize))
	binding := types.NewRingBufferBinding("cam", ring, 2, target)
	feed := New(nil)

	err := feed.Admit(ctx, binding, types.VideoFrame{
		Data:   make([]byte, 900000),
		Width:  640,
		Height: 360,
	})
	var errSize types.ErrPayloadSizeMismatch
	require.ErrorAs(t, err, &errSize)
	assert.Equal(t, 921600, errSize.Expected)
	assert.Equal(t, 900000, errSize.Actual)
	require.Zero(t, binding.Count())
	require.Zero(t, ring.AvailableRead())
	assert.Equal(t, uint64(1), feed.Stats().Dropped[DropReasonSizeMismatch])
}

func TestAdmitDropsDimensionsMismatch(t *testing.T) {
	ctx := context.Background()
	target := types.NewTargetSpec(4, 4, types.PixelFormatRGBA)
	ring := ringbuffer.New(uint(2 * target.FrameByteSize))
	binding := types.NewRingBufferBinding("cam", ring, 2, target)
	feed := New(nil)

	p := payload(types.NewTargetSpec(8, 2, types.PixelFormatRGBA), 1)
	require.Len(t, p.Data, target.FrameByteSize)
	err := feed.Admit(ctx, binding, p)
	var errDims types.ErrDimensionsMismatch
	require.ErrorAs(t, err, &errDims)
	require.Zero(t, binding.Count())
	assert.Equal(t, uint64(1), feed.Stats().Dropped[DropReasonDimensionsMismatch])
}

func TestAdmitWithoutBuffer(t *testing.T) {
	ctx := context.Background()
	target := types.NewTargetSpec(2, 2, types.PixelFormatRGBA)
	feed := New(nil)

	var errNoBuffer types.ErrNoBuffer
	require.ErrorAs(t, feed.Admit(ctx, nil, payload(target, 1)), &errNoBuffer)
	require.ErrorAs(t, feed.Admit(ctx, types.NewRingBufferBinding("cam", nil, 1, target), payload(target, 1)), &errNoBuffer)
	assert.Equal(t, uint64(2), feed.Stats().Dropped[DropReasonNoBuffer])
}

func TestMaxFramesBoundedByCapacity(t *testing.T) {
	target := types.NewTargetSpec(2, 2, types.PixelFormatRGBA)
	ring := ringbuffer.New(uint(3*target.FrameByteSize + 5))
	assert.Equal(t, 3, MaxFrames(types.NewRingBufferBinding("cam", ring, 10, target)))
	assert.Equal(t, 3, MaxFrames(types.NewRingBufferBinding("cam", ring, 0, target)))
	assert.Equal(t, 2, MaxFrames(types.NewRingBufferBinding("cam", ring, 2, target)))

	ctx := context.Background()
	binding := types.NewRingBufferBinding("cam", ring, 10, target)
	feed := New(nil)
	for i := 0; i < 5; i++ {
		require.NoError(t, feed.Admit(ctx, binding, payload(target, byte(i))))
	}
	require.Equal(t, 3, binding.Count())
}
