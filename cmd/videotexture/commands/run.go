package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/cobra"
	"github.com/xaionaro-go/videotexture/pkg/audio"
	"github.com/xaionaro-go/videotexture/pkg/clock"
	"github.com/xaionaro-go/videotexture/pkg/config"
	"github.com/xaionaro-go/videotexture/pkg/spatialaudio"
	"github.com/xaionaro-go/videotexture/pkg/textureext"
	"github.com/xaionaro-go/videotexture/pkg/videotexture"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
	"golang.org/x/sync/errgroup"
)

const endPollInterval = 100 * time.Millisecond

func run(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	assertNoError(ctx, err)

	if v := stringFlag(ctx, cmd, "manifest-url"); v != "" {
		cfg.Pipeline.ManifestURL = v
	}
	if v := stringFlag(ctx, cmd, "metrics-listen-addr"); v != "" {
		cfg.MetricsListenAddr = v
	}

	duration, err := cmd.Flags().GetDuration("duration")
	assertNoError(ctx, err)
	if duration > 0 {
		var cancelFn context.CancelFunc
		ctx, cancelFn = clock.Get().WithTimeout(ctx, duration)
		defer cancelFn()
	}

	err = runPipeline(ctx, cfg)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Debugf(ctx, "interrupted: %v", err)
	default:
		assertNoError(ctx, err)
	}
}

func runPipeline(
	ctx context.Context,
	cfg config.Config,
) (_err error) {
	logger.Debugf(ctx, "runPipeline")
	defer func() { logger.Debugf(ctx, "/runPipeline: %v", _err) }()

	textures, err := newTextureExtension(cfg.Textures)
	if err != nil {
		return err
	}

	player, err := audio.NewPlayer(ctx, audio.Backend(cfg.AudioBackend))
	if err != nil {
		return err
	}
	graph := spatialaudio.NewGraph(player)
	defer func() { errmon.ObserveErrorCtx(ctx, graph.Close(context.WithoutCancel(ctx))) }()
	sounds := newAudioExtension(graph, cfg.AudioSources)

	pipeline := videotexture.New(
		mediaElementFactory(cfg.Pipeline.ManifestURL, cfg.DecoderOptions),
		cfg.Pipeline.Options()...,
	)
	defer func() { errmon.ObserveErrorCtx(ctx, pipeline.Dispose(context.WithoutCancel(ctx))) }()

	err = pipeline.Initialize(ctx, videotexture.InitConfig{
		ManifestURL:         cfg.Pipeline.ManifestURL,
		TextureRequirements: cfg.Pipeline.TextureRequirements,
	})
	if err != nil {
		return err
	}

	if id := cfg.Pipeline.VideoSource; id != "" {
		if err := pipeline.ConnectVideoTexture(ctx, textures, id); err != nil {
			return fmt.Errorf("unable to connect the video texture '%s': %w", id, err)
		}
	}
	if id := cfg.Pipeline.AudioSource; id != "" {
		if err := pipeline.ConnectAudioSource(ctx, sounds, id); err != nil {
			return fmt.Errorf("unable to connect the audio source '%s': %w", id, err)
		}
		if err := graph.Start(ctx); err != nil {
			return fmt.Errorf("unable to start the audio graph: %w", err)
		}
	}

	if err := pipeline.Play(ctx); err != nil {
		return fmt.Errorf("unable to start the playback: %w", err)
	}

	errG, ctx := errgroup.WithContext(ctx)
	for _, id := range textures.IDs() {
		src, _ := textures.Source(id)
		consumer := textureext.NewConsumer(
			src,
			frameInterval(cfg.Consumer.FrameRate),
			newSnapshotter(
				id,
				cfg.Consumer.SnapshotDir,
				cfg.Consumer.SnapshotEvery,
				cfg.Consumer.SnapshotQuality,
			).Upload,
		)
		errG.Go(func() error {
			return consumer.Serve(ctx)
		})
	}
	errG.Go(func() error {
		return watchEnd(ctx, pipeline, cfg.Pipeline.Loop)
	})
	if cfg.StatsInterval > 0 {
		errG.Go(func() error {
			return logStats(ctx, pipeline, textures, cfg.StatsInterval)
		})
	}
	if cfg.MetricsListenAddr != "" {
		errG.Go(func() error {
			return serveMetrics(ctx, cfg.MetricsListenAddr, pipeline.Collectors()...)
		})
	}

	err = errG.Wait()
	if errors.Is(err, errEnded) {
		return nil
	}
	return err
}

var errEnded = errors.New("the stream has ended")

func newTextureExtension(textures []config.TextureConfig) (*textureext.Extension, error) {
	ext := textureext.New()
	for _, t := range textures {
		_, err := ext.AddTexture(t.ID, t.Texture(), t.BufferFrames, t.MaxFrames)
		if err != nil {
			return nil, fmt.Errorf("unable to add texture '%s': %w", t.ID, err)
		}
	}
	return ext, nil
}

func newAudioExtension(
	graph *spatialaudio.Graph,
	sources []config.AudioSourceConfig,
) *spatialaudio.Extension {
	ext := spatialaudio.NewExtension(graph)
	for _, s := range sources {
		switch s.SourceType() {
		case types.AudioSourceTypeObject:
			ext.AddObjectSource(s.ID, s.Gain, s.Azimuth)
		case types.AudioSourceTypeHigherOrderAmbisonics:
			ext.AddAmbisonicsSource(s.ID, s.Gain, s.Azimuth, s.Elevation)
		}
	}
	return ext
}

func frameInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

// watchEnd restarts an ended playback when loop is set, otherwise it returns
// errEnded to stop the other goroutines.
func watchEnd(
	ctx context.Context,
	pipeline *videotexture.Pipeline,
	loop bool,
) error {
	t := clock.Get().Ticker(endPollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if pipeline.State() != types.StateEnded {
			continue
		}
		if !loop {
			logger.Infof(ctx, "the stream has ended")
			return errEnded
		}
		logger.Debugf(ctx, "the stream has ended, restarting")
		if err := pipeline.Play(ctx); err != nil {
			return fmt.Errorf("unable to restart the playback: %w", err)
		}
	}
}
