package types

import (
	"fmt"
)

// TargetSpec is the output contract a texture consumer requires. It is fixed
// for the lifetime of a binding.
type TargetSpec struct {
	Width         int         `yaml:"width"`
	Height        int         `yaml:"height"`
	Format        PixelFormat `yaml:"format"`
	FrameByteSize int         `yaml:"frame_byte_size,omitempty"`
}

func NewTargetSpec(width, height int, format PixelFormat) TargetSpec {
	return TargetSpec{
		Width:         width,
		Height:        height,
		Format:        format,
		FrameByteSize: width * height * format.BytesPerPixel(),
	}
}

func (s TargetSpec) String() string {
	return fmt.Sprintf("%dx%d/%s(%dB)", s.Width, s.Height, s.Format, s.FrameByteSize)
}

func (s TargetSpec) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

func (s TargetSpec) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return ErrInvalidTarget{Target: s, Reason: "zero or negative dimensions"}
	}
	bpp := s.Format.BytesPerPixel()
	if bpp == 0 {
		return ErrInvalidTarget{Target: s, Reason: "unknown pixel format"}
	}
	if s.FrameByteSize != s.Width*s.Height*bpp {
		return ErrInvalidTarget{
			Target: s,
			Reason: fmt.Sprintf("frame byte size must be %d", s.Width*s.Height*bpp),
		}
	}
	return nil
}

// Matches reports whether a payload with the given geometry fits this spec.
func (s TargetSpec) Matches(width, height int, format PixelFormat) bool {
	return s.Width == width && s.Height == height && s.Format == format
}
