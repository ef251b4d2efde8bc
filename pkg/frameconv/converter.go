// Package frameconv turns captured frames into payloads of a given
// TargetSpec, and draws decode surfaces according to a capture policy.
package frameconv

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"sync/atomic"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/nfnt/resize"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
	"github.com/xaionaro-go/xsync"
)

type Converter struct {
	ColorModel types.ColorModel

	poolLocker xsync.Mutex
	pool       *scratchPool
	inUse      atomic.Int64
}

func New(colorModel types.ColorModel) *Converter {
	c := &Converter{
		ColorModel: colorModel,
	}
	c.pool = newScratchPool()
	return c
}

// Convert produces exactly target.FrameByteSize bytes. The aspect ratio is
// not preserved: the frame is stretched to the target dimensions.
func (c *Converter) Convert(
	ctx context.Context,
	frame *types.Frame,
	target types.TargetSpec,
) (_ret []byte, _err error) {
	logger.Tracef(ctx, "Convert(ctx, frame, %s)", target)
	defer func() { logger.Tracef(ctx, "/Convert(ctx, frame, %s): %v", target, _err) }()

	s := c.acquire()
	defer c.release(s)
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		_ret, _err = nil, fmt.Errorf("got panic while converting: %v", r)
	}()

	if err := target.Validate(); err != nil {
		return nil, err
	}
	if !frame.IsValid() {
		return nil, types.ErrInvalidFrame{Reason: "empty or inconsistent pixel buffer"}
	}

	src := c.prepareSource(frame, s)
	resized := resize.Resize(uint(target.Width), uint(target.Height), src, resize.Bilinear)
	rgba := asRGBA(resized)
	if rgba.Rect.Dx() != target.Width || rgba.Rect.Dy() != target.Height {
		return nil, fmt.Errorf(
			"resized to %dx%d instead of %dx%d",
			rgba.Rect.Dx(), rgba.Rect.Dy(), target.Width, target.Height,
		)
	}

	out := make([]byte, target.FrameByteSize)
	if err := pack(out, rgba, target.Format); err != nil {
		return nil, err
	}
	return out, nil
}

// prepareSource drops alpha into the scratch buffer when the color model
// is opaque, otherwise it wraps the frame pixels as-is.
func (c *Converter) prepareSource(frame *types.Frame, s *scratch) *image.RGBA {
	rect := image.Rect(0, 0, frame.Width, frame.Height)
	stride := frame.Width * types.FrameChannels
	if c.ColorModel == types.ColorModelRGBA {
		return &image.RGBA{Pix: frame.Pixels, Stride: stride, Rect: rect}
	}

	if cap(s.Pix) < len(frame.Pixels) {
		s.Pix = make([]byte, len(frame.Pixels))
	}
	s.Pix = s.Pix[:len(frame.Pixels)]
	copy(s.Pix, frame.Pixels)
	for i := 3; i < len(s.Pix); i += 4 {
		s.Pix[i] = 0xff
	}
	return &image.RGBA{Pix: s.Pix, Stride: stride, Rect: rect}
}

func (c *Converter) acquire() *scratch {
	c.inUse.Add(1)
	return xsync.DoR1(context.TODO(), &c.poolLocker, func() *scratch {
		return c.pool.Get()
	})
}

func (c *Converter) release(s *scratch) {
	c.poolLocker.Do(context.TODO(), func() {
		c.pool.Put(s)
	})
	c.inUse.Add(-1)
}

// ScratchInUse returns the number of scratch buffers currently acquired.
func (c *Converter) ScratchInUse() int {
	return int(c.inUse.Load())
}

// Close drops all pooled scratch buffers.
func (c *Converter) Close() error {
	c.poolLocker.Do(context.TODO(), func() {
		c.pool = newScratchPool()
	})
	return nil
}

func asRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	return rgba
}

func pack(out []byte, src *image.RGBA, format types.PixelFormat) error {
	bpp := format.BytesPerPixel()
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if len(out) != w*h*bpp {
		return fmt.Errorf("output buffer is %d bytes, need %d", len(out), w*h*bpp)
	}

	for y := 0; y < h; y++ {
		row := src.Pix[src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y):]
		dst := out[y*w*bpp : (y+1)*w*bpp]
		switch format {
		case types.PixelFormatRGBA:
			copy(dst, row[:w*4])
		case types.PixelFormatBGRA:
			for x := 0; x < w; x++ {
				p := row[x*4 : x*4+4]
				dst[x*4+0] = p[2]
				dst[x*4+1] = p[1]
				dst[x*4+2] = p[0]
				dst[x*4+3] = p[3]
			}
		case types.PixelFormatRGB:
			for x := 0; x < w; x++ {
				copy(dst[x*3:x*3+3], row[x*4:x*4+3])
			}
		case types.PixelFormatLuminance:
			for x := 0; x < w; x++ {
				p := row[x*4 : x*4+4]
				dst[x] = uint8((19595*uint32(p[0]) + 38470*uint32(p[1]) + 7471*uint32(p[2]) + 1<<15) >> 16)
			}
		default:
			return fmt.Errorf("unsupported pixel format %s", format)
		}
	}
	return nil
}
