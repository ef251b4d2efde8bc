package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xaionaro-go/videotexture/pkg/clock"
	"github.com/xaionaro-go/videotexture/pkg/observability"
	"github.com/xaionaro-go/videotexture/pkg/textureext"
	"github.com/xaionaro-go/videotexture/pkg/videotexture"
)

func logStats(
	ctx context.Context,
	pipeline *videotexture.Pipeline,
	textures *textureext.Extension,
	interval time.Duration,
) error {
	t := clock.Get().Ticker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}

		s := pipeline.Stats(ctx)
		logger.Infof(ctx,
			"state:%s t:%v captured:%d skipped:%d emitted:%d convert_errors:%d feed_admitted:%d feed_dropped:%d media_decoded:%d media_dropped:%d",
			s.State, pipeline.CurrentTime(ctx).Round(time.Millisecond),
			s.Captured, s.Skipped, s.Emitted, s.ConvertErrors,
			s.Feed.Admitted, s.Feed.DroppedTotal(),
			s.Media.DecodedFrames, s.Media.DroppedFrames,
		)
		for _, id := range textures.IDs() {
			src, ok := textures.Source(id)
			if !ok {
				continue
			}
			binding := src.Binding()
			if binding == nil || binding.Buffer == nil {
				continue
			}
			logger.Infof(ctx, "texture '%s': %s, %d/%d frames resident (%s buffer)",
				id, binding.Target,
				binding.Count(), binding.MaxFrames,
				humanize.Bytes(uint64(binding.Buffer.Capacity())),
			)
		}
	}
}

func serveMetrics(
	ctx context.Context,
	listenAddr string,
	collectors ...prometheus.Collector,
) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors...)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:    listenAddr,
		Handler: mux,
	}

	observability.Go(ctx, func(ctx context.Context) {
		<-ctx.Done()
		logger.Debugf(ctx, "closing the metrics server")
		srv.Close()
	})

	logger.Infof(ctx, "starting to listen for metrics requests at '%s'", listenAddr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return ctx.Err()
	}
	return err
}
