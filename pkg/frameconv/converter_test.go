package frameconv

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
)

func solidFrame(w, h int, c color.RGBA) *types.Frame {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i+0], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
	return &types.Frame{
		Pixels:       pix,
		Width:        w,
		Height:       h,
		SourceWidth:  w,
		SourceHeight: h,
	}
}

func TestConvertFullHDToQHD(t *testing.T) {
	ctx := context.Background()
	c := New(types.ColorModelRGB)
	defer c.Close()

	target := types.NewTargetSpec(640, 360, types.PixelFormatRGBA)
	require.Equal(t, 921600, target.FrameByteSize)

	out, err := c.Convert(ctx, solidFrame(1920, 1080, color.RGBA{R: 10, G: 20, B: 30, A: 255}), target)
	require.NoError(t, err)
	require.Len(t, out, 921600)
	require.Zero(t, c.ScratchInUse())
}

func TestConvertOutputLengthForEveryFormat(t *testing.T) {
	ctx := context.Background()
	c := New(types.ColorModelRGB)
	frame := solidFrame(33, 17, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	for format := types.PixelFormatUndefined + 1; format < types.EndOfPixelFormat; format++ {
		for _, size := range []image.Point{{1, 1}, {16, 9}, {33, 17}, {100, 7}} {
			target := types.NewTargetSpec(size.X, size.Y, format)
			out, err := c.Convert(ctx, frame, target)
			require.NoError(t, err, "%s", target)
			require.Len(t, out, target.FrameByteSize, "%s", target)
		}
	}
	require.Zero(t, c.ScratchInUse())
}

func TestConvertPacking(t *testing.T) {
	ctx := context.Background()
	c := New(types.ColorModelRGB)
	frame := solidFrame(4, 4, color.RGBA{R: 200, G: 100, B: 50, A: 7})

	out, err := c.Convert(ctx, frame, types.NewTargetSpec(2, 2, types.PixelFormatRGBA))
	require.NoError(t, err)
	assert.Equal(t, []byte{200, 100, 50, 255}, out[:4], "alpha is expected to be dropped")

	out, err = c.Convert(ctx, frame, types.NewTargetSpec(2, 2, types.PixelFormatBGRA))
	require.NoError(t, err)
	assert.Equal(t, []byte{50, 100, 200, 255}, out[:4])

	out, err = c.Convert(ctx, frame, types.NewTargetSpec(2, 2, types.PixelFormatRGB))
	require.NoError(t, err)
	assert.Equal(t, []byte{200, 100, 50, 200, 100, 50}, out[:6])

	out, err = c.Convert(ctx, solidFrame(4, 4, color.RGBA{R: 255, G: 255, B: 255, A: 255}), types.NewTargetSpec(2, 2, types.PixelFormatLuminance))
	require.NoError(t, err)
	assert.Equal(t, []byte{255, 255, 255, 255}, out)

	withAlpha := New(types.ColorModelRGBA)
	out, err = withAlpha.Convert(ctx, frame, types.NewTargetSpec(2, 2, types.PixelFormatRGBA))
	require.NoError(t, err)
	assert.Equal(t, byte(7), out[3])
}

func TestConvertRejectsInvalidTarget(t *testing.T) {
	ctx := context.Background()
	c := New(types.ColorModelRGB)
	frame := solidFrame(8, 8, color.RGBA{A: 255})

	for _, target := range []types.TargetSpec{
		{},
		types.NewTargetSpec(0, 10, types.PixelFormatRGBA),
		types.NewTargetSpec(10, 0, types.PixelFormatRGBA),
		{Width: 10, Height: 10, Format: types.PixelFormatRGBA, FrameByteSize: 5},
	} {
		out, err := c.Convert(ctx, frame, target)
		var errInvalid types.ErrInvalidTarget
		require.ErrorAs(t, err, &errInvalid)
		require.Nil(t, out)
		require.Zero(t, c.ScratchInUse())
	}

	out, err := c.Convert(ctx, &types.Frame{Width: 8, Height: 8}, types.NewTargetSpec(2, 2, types.PixelFormatRGBA))
	require.Error(t, err)
	require.Nil(t, out)
	require.Zero(t, c.ScratchInUse())
}

func TestConvertAfterClose(t *testing.T) {
	ctx := context.Background()
	c := New(types.ColorModelRGB)
	require.NoError(t, c.Close())
	out, err := c.Convert(ctx, solidFrame(8, 8, color.RGBA{A: 255}), types.NewTargetSpec(4, 4, types.PixelFormatRGBA))
	require.NoError(t, err)
	require.Len(t, out, 64)
}
