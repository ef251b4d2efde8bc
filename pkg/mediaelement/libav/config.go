package libav

import (
	"time"

	"github.com/xaionaro-go/videotexture/pkg/clock"
)

type CustomOption struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

type Config struct {
	Clock clock.Clock

	// VideoQueueSize is how many decoded frames may wait for display.
	VideoQueueSize int

	// Lookahead is how far ahead of the playback position decoding may run.
	Lookahead time.Duration

	// CustomOptions are passed to the demuxer as-is.
	CustomOptions []CustomOption
}

var DefaultConfig = Config{
	VideoQueueSize: 16,
	Lookahead:      500 * time.Millisecond,
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

type OptionVideoQueueSize int

func (opt OptionVideoQueueSize) Apply(cfg *Config) {
	cfg.VideoQueueSize = int(opt)
}

type OptionLookahead time.Duration

func (opt OptionLookahead) Apply(cfg *Config) {
	cfg.Lookahead = time.Duration(opt)
}

type OptionCustomOptions []CustomOption

func (opt OptionCustomOptions) Apply(cfg *Config) {
	cfg.CustomOptions = append(cfg.CustomOptions, opt...)
}
