package pacing

import (
	"context"
	"time"

	"github.com/xaionaro-go/videotexture/pkg/clock"
)

const DefaultFrameRate = 30

type Config struct {
	MaxTick time.Duration
	Clock   clock.Clock
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
		MaxTick: 16700 * time.Microsecond,
	}
}

type OptionMaxTick time.Duration

func (s OptionMaxTick) Apply(cfg *Config) {
	cfg.MaxTick = time.Duration(s)
}

type OptionClock struct {
	clock.Clock
}

func (s OptionClock) Apply(cfg *Config) {
	cfg.Clock = s.Clock
}
