package types

import (
	"fmt"
	"strings"
)

type PixelFormat uint

const (
	PixelFormatUndefined = PixelFormat(iota)
	PixelFormatRGBA
	PixelFormatBGRA
	PixelFormatRGB
	PixelFormatLuminance
	EndOfPixelFormat
)

// BytesPerPixel returns 0 for unknown formats.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGBA, PixelFormatBGRA:
		return 4
	case PixelFormatRGB:
		return 3
	case PixelFormatLuminance:
		return 1
	default:
		return 0
	}
}

func (f PixelFormat) HasAlpha() bool {
	return f == PixelFormatRGBA || f == PixelFormatBGRA
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatUndefined:
		return "<undefined>"
	case PixelFormatRGBA:
		return "rgba"
	case PixelFormatBGRA:
		return "bgra"
	case PixelFormatRGB:
		return "rgb"
	case PixelFormatLuminance:
		return "luminance"
	default:
		return fmt.Sprintf("<unexpected_value_%d>", uint(f))
	}
}

func ParsePixelFormat(s string) (PixelFormat, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f := PixelFormatUndefined + 1; f < EndOfPixelFormat; f++ {
		if f.String() == s {
			return f, nil
		}
	}
	return PixelFormatUndefined, fmt.Errorf("unknown pixel format '%s'", s)
}

func (f PixelFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *PixelFormat) UnmarshalText(b []byte) error {
	v, err := ParsePixelFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
