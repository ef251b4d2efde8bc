package frameconv

import (
	"image"
	"image/color"
	"time"

	"github.com/disintegration/imaging"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
)

// DrawLetterbox fits src into a width x height canvas keeping its aspect
// ratio and pads the rest with black.
func DrawLetterbox(src image.Image, width, height int) *image.NRGBA {
	canvas := imaging.New(width, height, color.Black)
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 || width <= 0 || height <= 0 {
		return canvas
	}
	drawW, drawH := LetterboxSize(b.Dx(), b.Dy(), width, height)
	fitted := imaging.Resize(src, drawW, drawH, imaging.Linear)
	return imaging.PasteCenter(canvas, fitted)
}

// LetterboxSize returns the largest size with the source aspect ratio that
// fits into the target.
func LetterboxSize(srcW, srcH, dstW, dstH int) (int, int) {
	if srcW*dstH > dstW*srcH {
		return dstW, max(1, (srcH*dstW+srcW/2)/srcW)
	}
	return max(1, (srcW*dstH+srcH/2)/srcH), dstH
}

// DrawStretch copies src at its native resolution.
func DrawStretch(src image.Image) *image.NRGBA {
	return imaging.Clone(src)
}

// NewFrame wraps a drawn canvas into a Frame, recording the decode surface
// size separately from the drawn size.
func NewFrame(
	drawn *image.NRGBA,
	sourceWidth, sourceHeight int,
	ts time.Duration,
) *types.Frame {
	w, h := drawn.Rect.Dx(), drawn.Rect.Dy()
	pix := drawn.Pix
	if drawn.Stride != w*types.FrameChannels || len(pix) != w*h*types.FrameChannels {
		pix = make([]byte, w*h*types.FrameChannels)
		for y := 0; y < h; y++ {
			copy(pix[y*w*4:(y+1)*w*4], drawn.Pix[drawn.PixOffset(drawn.Rect.Min.X, drawn.Rect.Min.Y+y):])
		}
	}
	return &types.Frame{
		Pixels:       pix,
		Width:        w,
		Height:       h,
		SourceWidth:  sourceWidth,
		SourceHeight: sourceHeight,
		Timestamp:    ts,
	}
}
