package types

import (
	"context"
	"fmt"
	"time"

	"github.com/xaionaro-go/videotexture/pkg/clock"
)

type CapturePolicy uint

const (
	UndefinedCapturePolicy = CapturePolicy(iota)
	CapturePolicyLetterbox
	CapturePolicyStretch
	EndOfCapturePolicy
)

func (p CapturePolicy) String() string {
	switch p {
	case UndefinedCapturePolicy:
		return "<undefined>"
	case CapturePolicyLetterbox:
		return "letterbox"
	case CapturePolicyStretch:
		return "stretch"
	default:
		return fmt.Sprintf("<unexpected_value_%d>", uint(p))
	}
}

func ParseCapturePolicy(s string) CapturePolicy {
	for p := UndefinedCapturePolicy + 1; p < EndOfCapturePolicy; p++ {
		if p.String() == s {
			return p
		}
	}
	return UndefinedCapturePolicy
}

func (p CapturePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *CapturePolicy) UnmarshalText(b []byte) error {
	v := ParseCapturePolicy(string(b))
	if v == UndefinedCapturePolicy {
		return fmt.Errorf("unknown capture policy '%s'", b)
	}
	*p = v
	return nil
}

// ColorModel selects whether the converter treats the source as opaque RGB
// (dropping alpha) or carries alpha through.
type ColorModel uint

const (
	ColorModelRGB = ColorModel(iota)
	ColorModelRGBA
)

func (m ColorModel) String() string {
	switch m {
	case ColorModelRGB:
		return "rgb"
	case ColorModelRGBA:
		return "rgba"
	default:
		return fmt.Sprintf("<unexpected_value_%d>", uint(m))
	}
}

func (m ColorModel) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *ColorModel) UnmarshalText(b []byte) error {
	switch string(b) {
	case "rgb":
		*m = ColorModelRGB
	case "rgba":
		*m = ColorModelRGBA
	default:
		return fmt.Errorf("unknown color model '%s'", b)
	}
	return nil
}

type Config struct {
	CapturePolicy     CapturePolicy
	ColorModel        ColorModel
	ManifestTimeout   time.Duration
	MetadataTimeout   time.Duration
	MinCaptureSpacing time.Duration
	DefaultFrameRate  float64
	MaxSchedulerTick  time.Duration
	Clock             clock.Clock
}

type Option interface {
	Apply(cfg *Config)
}

type Options []Option

func (s Options) Config() Config {
	cfg := DefaultConfig(context.Background())
	s.apply(&cfg)
	return cfg
}

func (s Options) apply(cfg *Config) {
	for _, opt := range s {
		opt.Apply(cfg)
	}
}

var DefaultConfig = func(ctx context.Context) Config {
	return Config{
		CapturePolicy:     CapturePolicyLetterbox,
		ColorModel:        ColorModelRGB,
		ManifestTimeout:   30 * time.Second,
		MetadataTimeout:   10 * time.Second,
		MinCaptureSpacing: time.Second / 60,
		DefaultFrameRate:  30,
		MaxSchedulerTick:  16700 * time.Microsecond,
	}
}

type OptionCapturePolicy CapturePolicy

func (s OptionCapturePolicy) Apply(cfg *Config) {
	cfg.CapturePolicy = CapturePolicy(s)
}

type OptionColorModel ColorModel

func (s OptionColorModel) Apply(cfg *Config) {
	cfg.ColorModel = ColorModel(s)
}

type OptionManifestTimeout time.Duration

func (s OptionManifestTimeout) Apply(cfg *Config) {
	cfg.ManifestTimeout = time.Duration(s)
}

type OptionMetadataTimeout time.Duration

func (s OptionMetadataTimeout) Apply(cfg *Config) {
	cfg.MetadataTimeout = time.Duration(s)
}

type OptionMinCaptureSpacing time.Duration

func (s OptionMinCaptureSpacing) Apply(cfg *Config) {
	cfg.MinCaptureSpacing = time.Duration(s)
}

type OptionDefaultFrameRate float64

func (s OptionDefaultFrameRate) Apply(cfg *Config) {
	cfg.DefaultFrameRate = float64(s)
}

type OptionMaxSchedulerTick time.Duration

func (s OptionMaxSchedulerTick) Apply(cfg *Config) {
	cfg.MaxSchedulerTick = time.Duration(s)
}

type OptionClock struct {
	clock.Clock
}

func (s OptionClock) Apply(cfg *Config) {
	cfg.Clock = s.Clock
}
