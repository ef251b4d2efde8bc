package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/spf13/cobra"
	"github.com/xaionaro-go/videotexture/pkg/clock"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
)

const probePollInterval = 20 * time.Millisecond

type probeResult struct {
	URL         string             `json:"url"`
	ReadyState  string             `json:"ready_state"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	FrameRate   float64            `json:"frame_rate"`
	AudioFormat *types.PCMFormat   `json:"audio_format,omitempty"`
	Quality     types.QualityStats `json:"quality"`
}

func probe(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	manifestURL := args[0]

	cfg, err := loadConfig(cmd)
	assertNoError(ctx, err)

	timeout, err := cmd.Flags().GetDuration("timeout")
	assertNoError(ctx, err)
	if timeout <= 0 {
		timeout = cfg.Pipeline.ManifestTimeout + cfg.Pipeline.MetadataTimeout
	}

	ctx, cancelFn := clock.Get().WithTimeout(ctx, timeout)
	defer cancelFn()

	el, err := mediaElementFactory(manifestURL, cfg.DecoderOptions).NewMediaElement(ctx)
	assertNoError(ctx, err)
	defer func() { errmon.ObserveErrorCtx(ctx, el.Close(ctx)) }()

	err = el.Open(ctx, manifestURL)
	assertNoError(ctx, err)

	err = waitMetadata(ctx, el)
	assertNoError(ctx, err)

	w, h := el.VideoSize()
	result := probeResult{
		URL:        manifestURL,
		ReadyState: el.ReadyState().String(),
		Width:      w,
		Height:     h,
		FrameRate:  el.FrameRate(),
		Quality:    el.QualityStats(),
	}
	if out := el.AudioOutput(); out != nil {
		f := out.PCMFormat()
		result.AudioFormat = &f
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", " ")
	assertNoError(ctx, enc.Encode(result))
}

func waitMetadata(ctx context.Context, el types.MediaElement) error {
	t := clock.Get().Ticker(probePollInterval)
	defer t.Stop()
	for el.ReadyState() < types.ReadyStateHaveMetadata {
		select {
		case <-ctx.Done():
			return fmt.Errorf("the metadata did not arrive: %w", ctx.Err())
		case <-t.C:
		}
	}
	return nil
}
