package testsrc

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/videotexture/pkg/clock"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
)

func TestParseURL(t *testing.T) {
	p, err := ParseURL("testsrc://")
	require.NoError(t, err)
	require.Equal(t, DefaultParams(), p)

	p, err = ParseURL("testsrc://?width=320&height=240&fps=25&duration=3s&tone=0&open_delay=1s&metadata_delay=2s&autoplay_blocked=true")
	require.NoError(t, err)
	require.Equal(t, Params{
		Width:           320,
		Height:          240,
		FPS:             25,
		Duration:        3 * time.Second,
		OpenDelay:       time.Second,
		MetadataDelay:   2 * time.Second,
		AutoplayBlocked: true,
	}, p)

	for _, bad := range []string{
		"http://example.com/stream.m3u8",
		"testsrc://?width=0",
		"testsrc://?fps=abc",
		"testsrc://?duration=-1s",
		"testsrc://?autoplay_blocked=maybe",
	} {
		_, err := ParseURL(bad)
		require.Error(t, err, bad)
	}
}

func TestFrameIndex(t *testing.T) {
	p := Params{FPS: 30}
	require.Equal(t, int64(0), p.FrameIndex(0))
	require.Equal(t, int64(30), p.FrameIndex(time.Second))
	require.Equal(t, time.Second, p.FrameTimestamp(30))
	require.Zero(t, Params{}.FrameIndex(time.Second))
}

func TestDrawPattern(t *testing.T) {
	img := DrawPattern(32, 4, 0)
	require.Equal(t, 32, img.Bounds().Dx())
	require.Equal(t, 4, img.Bounds().Dy())
	require.Equal(t, []uint8{0xff, 0xff, 0xff, 0xff}, img.Pix[0:4])
	off := 20 * 4
	require.Equal(t, []uint8{uint8(20 * 255 / 31), 0, 0, 0xff}, img.Pix[off:off+4])

	moved := DrawPattern(32, 4, 3)
	require.Equal(t, uint8(3), moved.Pix[2])
	barOff := 3 * barWidth / 2 * 4
	require.Equal(t, []uint8{0xff, 0xff, 0xff, 0xff}, moved.Pix[barOff:barOff+4])
}

func newMockElement(t *testing.T) (*Element, *clock.Mock) {
	mock := clock.NewMock()
	e := New(OptionClock{Clock: mock})
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e, mock
}

func TestElementPlayback(t *testing.T) {
	ctx := context.Background()
	e, mock := newMockElement(t)

	require.Equal(t, types.ReadyStateHaveNothing, e.ReadyState())
	require.Error(t, e.Play(ctx))

	require.NoError(t, e.Open(ctx, "testsrc://?width=64&height=36&fps=30&metadata_delay=500ms&tone=0"))
	require.Error(t, e.Open(ctx, "testsrc://"))
	require.Equal(t, types.ReadyStateHaveNothing, e.ReadyState())
	_, _, err := e.CurrentFrame(ctx)
	require.Error(t, err)

	mock.Add(500 * time.Millisecond)
	require.Equal(t, types.ReadyStateHaveEnoughData, e.ReadyState())
	w, h := e.VideoSize()
	require.Equal(t, 64, w)
	require.Equal(t, 36, h)
	require.Equal(t, float64(30), e.FrameRate())
	require.True(t, e.Paused())

	require.NoError(t, e.Play(ctx))
	require.False(t, e.Paused())
	mock.Add(time.Second)
	require.Equal(t, time.Second, e.CurrentTime())

	img, ts, err := e.CurrentFrame(ctx)
	require.NoError(t, err)
	require.Equal(t, time.Second, ts)
	require.Equal(t, 64, img.Bounds().Dx())

	again, _, err := e.CurrentFrame(ctx)
	require.NoError(t, err)
	require.Same(t, img, again)
	require.Equal(t, types.QualityStats{DecodedFrames: 1}, e.QualityStats())

	mock.Add(100 * time.Millisecond)
	_, ts, err = e.CurrentFrame(ctx)
	require.NoError(t, err)
	require.Equal(t, e.params.FrameTimestamp(33), ts)
	require.Equal(t, types.QualityStats{DecodedFrames: 2, DroppedFrames: 2}, e.QualityStats())

	require.NoError(t, e.Pause(ctx))
	paused := e.CurrentTime()
	mock.Add(time.Second)
	require.Equal(t, paused, e.CurrentTime())

	require.NoError(t, e.Seek(ctx, 250*time.Millisecond))
	require.Equal(t, 250*time.Millisecond, e.CurrentTime())
}

func TestElementEnd(t *testing.T) {
	ctx := context.Background()
	e, mock := newMockElement(t)
	require.NoError(t, e.Open(ctx, "testsrc://?width=8&height=8&duration=2s&tone=0"))
	require.NoError(t, e.Play(ctx))

	endCh := e.EndChan()
	mock.Add(3 * time.Second)
	require.True(t, e.Ended())
	require.True(t, e.Paused())
	require.Equal(t, 2*time.Second, e.CurrentTime())
	select {
	case <-endCh:
	default:
		t.Fatal("the end channel is not closed")
	}

	_, ts, err := e.CurrentFrame(ctx)
	require.NoError(t, err)
	require.Less(t, ts, 2*time.Second)

	require.NoError(t, e.Play(ctx))
	require.False(t, e.Ended())
	require.Zero(t, e.CurrentTime())
	require.NotEqual(t, endCh, e.EndChan())
}

func TestElementAutoplayBlocked(t *testing.T) {
	ctx := context.Background()
	e, _ := newMockElement(t)
	require.NoError(t, e.Open(ctx, "testsrc://?autoplay_blocked=1"))
	require.ErrorAs(t, e.Play(ctx), &ErrAutoplayBlocked{})
	require.True(t, e.Paused())
}

func TestElementOpenDelay(t *testing.T) {
	e := New()
	defer e.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, e.Open(ctx, "testsrc://?open_delay=1h"), context.DeadlineExceeded)
	require.Equal(t, types.ReadyStateHaveNothing, e.ReadyState())
}

func TestElementAudio(t *testing.T) {
	ctx := context.Background()
	e, mock := newMockElement(t)
	require.NoError(t, e.Open(ctx, "testsrc://?width=8&height=8&tone=1000"))
	require.NoError(t, e.Play(ctx))

	out := e.AudioOutput()
	require.Equal(t, types.PCMFormat{SampleRate: SampleRate, Channels: Channels}, out.PCMFormat())

	type result struct {
		buf []byte
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		buf := make([]byte, 8*4)
		_, err := io.ReadFull(out, buf)
		resultCh <- result{buf: buf, err: err}
	}()

	var r result
	require.Eventually(t, func() bool {
		mock.Add(10 * time.Millisecond)
		select {
		case r = <-resultCh:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, r.err)

	sample := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(r.buf[i*4:]))
	}
	require.Zero(t, sample(0))
	require.Equal(t, sample(2), sample(3))
	require.InDelta(t, toneAmplitude*math.Sin(2*math.Pi*1000/SampleRate), sample(2), 1e-6)

	require.NoError(t, e.Close(ctx))
	var err error
	for err == nil {
		_, err = out.Read(make([]byte, 4096))
	}
	require.ErrorIs(t, err, io.EOF)
}
