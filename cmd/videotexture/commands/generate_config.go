package commands

import (
	"github.com/spf13/cobra"
	"github.com/xaionaro-go/videotexture/pkg/config"
	"github.com/xaionaro-go/videotexture/pkg/xpath"
)

func generateConfig(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	cfg := config.NewSampleConfig()

	outPath := stringFlag(ctx, cmd, "output")
	if outPath == "" {
		_, err := cfg.WriteTo(cmd.OutOrStdout())
		assertNoError(ctx, err)
		return
	}

	outPath, err := xpath.Expand(outPath)
	assertNoError(ctx, err)

	err = config.WriteConfigToPath(ctx, outPath, cfg)
	assertNoError(ctx, err)
}
