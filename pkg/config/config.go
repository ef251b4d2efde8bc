// Package config is the YAML configuration file of the videotexture CLI.
package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
)

type PipelineConfig struct {
	ManifestURL         string              `yaml:"manifest_url"`
	CapturePolicy       types.CapturePolicy `yaml:"capture_policy"`
	ColorModel          types.ColorModel    `yaml:"color_model"`
	ManifestTimeout     time.Duration       `yaml:"manifest_timeout"`
	MetadataTimeout     time.Duration       `yaml:"metadata_timeout"`
	DefaultFrameRate    float64             `yaml:"default_frame_rate"`
	TextureRequirements *types.TargetSpec   `yaml:"texture_requirements,omitempty"`
	VideoSource         types.SourceID      `yaml:"video_source"`
	AudioSource         types.SourceID      `yaml:"audio_source,omitempty"`
	Loop                bool                `yaml:"loop"`
}

// Options converts the file settings into pipeline options.
func (c PipelineConfig) Options() types.Options {
	var opts types.Options
	if c.CapturePolicy != types.UndefinedCapturePolicy {
		opts = append(opts, types.OptionCapturePolicy(c.CapturePolicy))
	}
	opts = append(opts, types.OptionColorModel(c.ColorModel))
	if c.ManifestTimeout > 0 {
		opts = append(opts, types.OptionManifestTimeout(c.ManifestTimeout))
	}
	if c.MetadataTimeout > 0 {
		opts = append(opts, types.OptionMetadataTimeout(c.MetadataTimeout))
	}
	if c.DefaultFrameRate > 0 {
		opts = append(opts, types.OptionDefaultFrameRate(c.DefaultFrameRate))
	}
	return opts
}

type TextureConfig struct {
	ID           types.SourceID    `yaml:"id"`
	Width        int               `yaml:"width"`
	Height       int               `yaml:"height"`
	Format       types.PixelFormat `yaml:"format"`
	BufferFrames int               `yaml:"buffer_frames"`
	MaxFrames    int               `yaml:"max_frames"`
}

func (c TextureConfig) Texture() types.Texture {
	return types.Texture{Width: c.Width, Height: c.Height, Format: c.Format}
}

type AudioSourceConfig struct {
	ID        types.SourceID `yaml:"id"`
	Type      string         `yaml:"type"`
	Gain      float64        `yaml:"gain"`
	Azimuth   float64        `yaml:"azimuth"`
	Elevation float64        `yaml:"elevation"`
}

func (c AudioSourceConfig) SourceType() types.AudioSourceType {
	return types.ParseAudioSourceType(c.Type)
}

type DecoderOption struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

type ConsumerConfig struct {
	FrameRate       float64 `yaml:"frame_rate"`
	SnapshotDir     string  `yaml:"snapshot_dir,omitempty"`
	SnapshotEvery   uint64  `yaml:"snapshot_every"`
	SnapshotQuality float32 `yaml:"snapshot_quality"`
}

type config struct {
	Pipeline          PipelineConfig      `yaml:"pipeline"`
	Textures          []TextureConfig     `yaml:"textures"`
	AudioSources      []AudioSourceConfig `yaml:"audio_sources"`
	AudioBackend      string              `yaml:"audio_backend"`
	DecoderOptions    []DecoderOption     `yaml:"decoder_options,omitempty"`
	Consumer          ConsumerConfig      `yaml:"consumer"`
	MetricsListenAddr string              `yaml:"metrics_listen_addr,omitempty"`
	StatsInterval     time.Duration       `yaml:"stats_interval"`
}

type Config config

func NewConfig() Config {
	return Config{
		Pipeline: PipelineConfig{
			ManifestURL:      "testsrc://?width=1280&height=720&fps=30",
			CapturePolicy:    types.CapturePolicyLetterbox,
			ColorModel:       types.ColorModelRGB,
			ManifestTimeout:  30 * time.Second,
			MetadataTimeout:  10 * time.Second,
			DefaultFrameRate: 30,
			VideoSource:      "screen",
		},
		Textures: []TextureConfig{{
			ID:           "screen",
			Width:        640,
			Height:       360,
			Format:       types.PixelFormatRGBA,
			BufferFrames: 4,
			MaxFrames:    3,
		}},
		AudioBackend: "none",
		Consumer: ConsumerConfig{
			FrameRate:       60,
			SnapshotEvery:   300,
			SnapshotQuality: 80,
		},
		StatsInterval: 5 * time.Second,
	}
}

// NewSampleConfig is NewConfig plus a spatial audio source, for
// generate-config.
func NewSampleConfig() Config {
	cfg := NewConfig()
	cfg.Pipeline.AudioSource = "speaker"
	cfg.AudioSources = []AudioSourceConfig{{
		ID:      "speaker",
		Type:    types.AudioSourceTypeObject.String(),
		Gain:    1,
		Azimuth: 30,
	}}
	cfg.AudioBackend = "auto"
	return cfg
}

func (cfg Config) Validate() error {
	if cfg.Pipeline.ManifestURL == "" {
		return fmt.Errorf("pipeline.manifest_url is empty")
	}
	seen := map[types.SourceID]struct{}{}
	for _, t := range cfg.Textures {
		if _, ok := seen[t.ID]; ok {
			return fmt.Errorf("texture '%s' is defined twice", t.ID)
		}
		seen[t.ID] = struct{}{}
		if err := t.Texture().TargetSpec().Validate(); err != nil {
			return fmt.Errorf("texture '%s': %w", t.ID, err)
		}
		if t.BufferFrames <= 0 {
			return fmt.Errorf("texture '%s': buffer_frames must be positive", t.ID)
		}
	}
	if id := cfg.Pipeline.VideoSource; id != "" {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("video source '%s' is not among the textures", id)
		}
	}
	for _, a := range cfg.AudioSources {
		if a.SourceType() == types.UndefinedAudioSourceType {
			return fmt.Errorf("audio source '%s': unknown type '%s'", a.ID, a.Type)
		}
	}
	return nil
}

func ReadConfigFromPath(
	ctx context.Context,
	cfgPath string,
	cfg *Config,
) error {
	b, err := os.ReadFile(cfgPath)
	if err != nil {
		return fmt.Errorf("unable to read file '%s': %w", cfgPath, err)
	}

	_, err = cfg.Read(b)
	return err
}

func WriteConfigToPath(
	ctx context.Context,
	cfgPath string,
	cfg Config,
) error {
	pathNew := cfgPath + ".new"
	f, err := os.OpenFile(pathNew, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0640)
	if err != nil {
		return fmt.Errorf("unable to open the config file '%s': %w", pathNew, err)
	}
	_, err = cfg.WriteTo(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("unable to write the config to file '%s': %w", pathNew, err)
	}
	err = os.Rename(pathNew, cfgPath)
	if err != nil {
		return fmt.Errorf("cannot move '%s' to '%s': %w", pathNew, cfgPath, err)
	}
	logger.Infof(ctx, "wrote the config to '%s'", cfgPath)
	return nil
}
