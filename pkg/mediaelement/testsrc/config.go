package testsrc

import (
	"time"

	"github.com/xaionaro-go/videotexture/pkg/clock"
)

type Config struct {
	Clock clock.Clock

	// AudioTick is the granularity of the generated audio.
	AudioTick time.Duration
}

var DefaultConfig = Config{
	AudioTick: 10 * time.Millisecond,
}

type Option interface {
	Apply(*Config)
}

type Options []Option

func (s Options) Config() Config {
	cfg := DefaultConfig
	for _, opt := range s {
		opt.Apply(&cfg)
	}
	return cfg
}

type OptionClock struct{ clock.Clock }

func (opt OptionClock) Apply(cfg *Config) {
	cfg.Clock = opt.Clock
}

type OptionAudioTick time.Duration

func (opt OptionAudioTick) Apply(cfg *Config) {
	cfg.AudioTick = time.Duration(opt)
}
