package videotexture

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
)

// readyForCapture makes the element look like it is playing without
// starting the cadence, so ticks can be driven by hand.
func readyForCapture(t *testing.T, env *testEnv) {
	env.initialize(t)
	env.el.set(func(e *fakeElement) { e.paused = false })
}

func TestCaptureGuards(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.p.onTick(ctx)
	require.Zero(t, env.frames.count(), "no media element yet")

	readyForCapture(t, env)
	for _, breakGuard := range []func(e *fakeElement){
		func(e *fakeElement) { e.paused = true },
		func(e *fakeElement) { e.ended = true },
		func(e *fakeElement) { e.readyState = types.ReadyStateHaveMetadata },
		func(e *fakeElement) { e.width = 0 },
	} {
		env.el.set(breakGuard)
		env.p.onTick(ctx)
		env.el.set(func(e *fakeElement) {
			e.paused, e.ended = false, false
			e.readyState = types.ReadyStateHaveEnoughData
			e.width = 160
		})
	}
	require.Zero(t, env.frames.count())
	require.Equal(t, uint64(5), env.p.Stats(ctx).Skipped)

	env.p.onTick(ctx)
	require.Equal(t, 1, env.frames.count())
}

func TestCaptureDeduplicatesBySourceTime(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	readyForCapture(t, env)

	env.p.onTick(ctx)
	env.advance(10 * time.Millisecond)
	env.p.onTick(ctx)
	require.Equal(t, 1, env.frames.count(), "captures closer than 1/60s are the same frame")

	env.advance(10 * time.Millisecond)
	env.p.onTick(ctx)
	require.Equal(t, 2, env.frames.count())
	assert.Equal(t, 20*time.Millisecond, env.frames.last().Timestamp)

	// a backward jump is a new frame
	env.el.set(func(e *fakeElement) { e.position = 5 * time.Millisecond })
	env.p.onTick(ctx)
	require.Equal(t, 3, env.frames.count())

	// seeking resets the de-duplication
	require.NoError(t, env.p.Seek(ctx, 10*time.Millisecond))
	env.p.onTick(ctx)
	require.Equal(t, 4, env.frames.count())
}

func TestCaptureWithoutTargetUsesSourceSize(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	readyForCapture(t, env)

	env.p.onTick(ctx)
	require.Equal(t, 1, env.frames.count())
	frame := env.frames.last()
	assert.Equal(t, 160, frame.Width)
	assert.Equal(t, 90, frame.Height)
	assert.Len(t, frame.Data, 160*90*4)
}

func TestCaptureLetterboxUsesTextureRequirements(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	req := types.NewTargetSpec(64, 64, types.PixelFormatRGBA)
	require.NoError(t, env.p.Initialize(ctx, InitConfig{
		ManifestURL:         "http://example.invalid/live.m3u8",
		TextureRequirements: &req,
	}))
	env.el.set(func(e *fakeElement) { e.paused = false })

	env.p.onTick(ctx)
	require.Equal(t, 1, env.frames.count())
	frame := env.frames.last()
	require.Equal(t, 64, frame.Width)
	require.Equal(t, 64, frame.Height)
	// 160x90 into 64x64: content rows are 14..49, the rest is black
	assert.Equal(t, byte(0), frame.Data[(2*64+32)*4])
	assert.Equal(t, byte(255), frame.Data[(32*64+32)*4])
	assert.Zero(t, env.p.Stats(ctx).Converted, "letterboxed to the target, no conversion needed")
}

func TestCaptureStretchConverts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, types.OptionCapturePolicy(types.CapturePolicyStretch))
	readyForCapture(t, env)
	env.ext.add("screen", 40, 40, 2)
	env.ext.textures["screen"].Format = types.PixelFormatRGB
	require.NoError(t, env.p.ConnectVideoTexture(ctx, env.ext, "screen"))

	env.p.onTick(ctx)
	require.Equal(t, 1, env.frames.count())
	frame := env.frames.last()
	assert.Equal(t, 40, frame.Width)
	assert.Equal(t, types.PixelFormatRGB, frame.Format)
	assert.Len(t, frame.Data, 40*40*3)
	assert.Equal(t, uint64(1), env.p.Stats(ctx).Converted)
}

func TestListenersOrderRemovalAndPanics(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	readyForCapture(t, env)

	var order []string
	env.p.AddVideoFrameListener(func(ctx context.Context, frame types.VideoFrame) {
		order = append(order, "panicking")
		panic("listener failure")
	})
	id := env.p.AddVideoFrameListener(func(ctx context.Context, frame types.VideoFrame) {
		order = append(order, "second")
	})
	env.p.AddVideoFrameListener(func(ctx context.Context, frame types.VideoFrame) {
		order = append(order, "third")
	})

	env.p.onTick(ctx)
	require.Equal(t, []string{"panicking", "second", "third"}, order)
	require.Equal(t, 1, env.frames.count())

	require.True(t, env.p.RemoveVideoFrameListener(id))
	require.False(t, env.p.RemoveVideoFrameListener(id))
	require.False(t, env.p.RemoveVideoFrameListener(feedListenerID))

	order = nil
	env.advance(time.Second)
	env.p.onTick(ctx)
	require.Equal(t, []string{"panicking", "third"}, order)
}

func TestDisposeFromAnyState(t *testing.T) {
	ctx := context.Background()
	for _, reach := range map[string]func(t *testing.T, env *testEnv){
		"uninitialized": func(t *testing.T, env *testEnv) {},
		"ready":         func(t *testing.T, env *testEnv) { env.initialize(t) },
		"playing": func(t *testing.T, env *testEnv) {
			env.initialize(t)
			require.NoError(t, env.p.Play(ctx))
			env.waitFrames(t, 1)
		},
		"paused": func(t *testing.T, env *testEnv) {
			env.initialize(t)
			require.NoError(t, env.p.Play(ctx))
			require.NoError(t, env.p.Pause(ctx))
		},
		"ended": func(t *testing.T, env *testEnv) {
			env.initialize(t)
			require.NoError(t, env.p.Play(ctx))
			env.el.end()
			require.Eventually(t, func() bool { return env.p.State() == types.StateEnded }, waitFor, time.Millisecond)
		},
	} {
		env := newTestEnv(t)
		env.ext.add("screen", 16, 16, 2)
		reach(t, env)

		require.NoError(t, env.p.Dispose(ctx))
		require.Equal(t, types.StateDisposed, env.p.State())
		require.False(t, env.p.pacing.IsRunning())

		emitted := env.frames.count()
		for i := 0; i < 10; i++ {
			env.advance(100 * time.Millisecond)
			env.mock.Add(100 * time.Millisecond)
		}
		env.p.onTick(ctx)
		require.Equal(t, emitted, env.frames.count())

		// everything after Dispose is a no-op
		require.NoError(t, env.p.Initialize(ctx, InitConfig{}))
		require.NoError(t, env.p.Play(ctx))
		require.NoError(t, env.p.ConnectVideoTexture(ctx, env.ext, "screen"))
		require.NoError(t, env.p.Seek(ctx, time.Second))
		require.NoError(t, env.p.Dispose(ctx))
		require.Equal(t, types.StateDisposed, env.p.State())
		require.Nil(t, env.p.Binding())
	}
}

func TestDisposeFromListener(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.initialize(t)

	var calls atomic.Int64
	env.p.AddVideoFrameListener(func(ctx context.Context, frame types.VideoFrame) {
		calls.Add(1)
		require.NoError(t, env.p.Dispose(ctx))
	})
	env.p.AddVideoFrameListener(func(ctx context.Context, frame types.VideoFrame) {
		t.Errorf("must not be called after Dispose")
	})

	require.NoError(t, env.p.Play(ctx))
	require.Eventually(t, func() bool { return env.p.State() == types.StateDisposed }, waitFor, time.Millisecond)
	require.NoError(t, env.p.pacing.Wait(ctx))
	require.Equal(t, int64(1), calls.Load())
	require.True(t, env.el.closed)
}

func TestDisposeFromListenerWithOwnContext(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.initialize(t)

	var once atomic.Bool
	returned := make(chan struct{})
	env.p.AddVideoFrameListener(func(_ context.Context, frame types.VideoFrame) {
		if !once.CompareAndSwap(false, true) {
			return
		}
		require.NoError(t, env.p.Dispose(context.Background()))
		close(returned)
	})

	require.NoError(t, env.p.Play(ctx))
	require.Eventually(t, func() bool {
		select {
		case <-returned:
			return true
		default:
			env.mock.Add(10 * time.Millisecond)
			return false
		}
	}, waitFor, time.Millisecond)

	require.Equal(t, types.StateDisposed, env.p.State())
	waitCtx, cancel := context.WithTimeout(ctx, waitFor)
	defer cancel()
	require.NoError(t, env.p.pacing.Wait(waitCtx))
	require.False(t, env.p.pacing.IsRunning())
}
