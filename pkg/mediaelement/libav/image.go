package libav

import (
	"fmt"
	"image"

	"github.com/asticode/go-astiav"
)

type ErrPixelFormatNotSupported struct {
	PixelFormat astiav.PixelFormat
}

func (e ErrPixelFormatNotSupported) Error() string {
	return fmt.Sprintf("support of pixel format %v is not implemented", e.PixelFormat)
}

// imageConverter copies decoded pictures into Go images. Formats the
// image package can represent directly are copied as-is; everything else
// goes through swscale into RGBA first.
type imageConverter struct {
	scaler      *astiav.SoftwareScaleContext
	scalerKey   scalerKey
	scaledFrame *astiav.Frame
}

type scalerKey struct {
	width  int
	height int
	format astiav.PixelFormat
}

func (c *imageConverter) Close() {
	if c.scaler != nil {
		c.scaler.Free()
		c.scaler = nil
	}
	if c.scaledFrame != nil {
		c.scaledFrame.Free()
		c.scaledFrame = nil
	}
}

// toImage returns a fresh image with a copy of the frame's pixels.
func (c *imageConverter) toImage(frame *astiav.Frame) (image.Image, error) {
	if img, err := frame.Data().GuessImageFormat(); err == nil {
		if err := frame.Data().ToImage(img); err != nil {
			return nil, fmt.Errorf("unable to copy the picture: %w", err)
		}
		return img, nil
	}

	scaled, err := c.scale(frame)
	if err != nil {
		return nil, err
	}
	img, err := scaled.Data().GuessImageFormat()
	if err != nil {
		return nil, fmt.Errorf("unable to guess the image format after conversion: %w", err)
	}
	if err := scaled.Data().ToImage(img); err != nil {
		return nil, fmt.Errorf("unable to copy the converted picture: %w", err)
	}
	return img, nil
}

func (c *imageConverter) scale(frame *astiav.Frame) (*astiav.Frame, error) {
	key := scalerKey{
		width:  frame.Width(),
		height: frame.Height(),
		format: frame.PixelFormat(),
	}
	if c.scaler == nil || c.scalerKey != key {
		c.Close()
		scaler, err := astiav.CreateSoftwareScaleContext(
			key.width, key.height, key.format,
			key.width, key.height, astiav.PixelFormatRgba,
			astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
		)
		if err != nil {
			return nil, ErrPixelFormatNotSupported{PixelFormat: key.format}
		}
		c.scaler, c.scalerKey = scaler, key
		c.scaledFrame = astiav.AllocFrame()
	}

	c.scaledFrame.Unref()
	if err := c.scaler.ScaleFrame(frame, c.scaledFrame); err != nil {
		return nil, fmt.Errorf("unable to convert %v into RGBA: %w", key.format, err)
	}
	return c.scaledFrame, nil
}
