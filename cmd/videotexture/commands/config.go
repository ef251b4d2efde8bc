package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/cobra"
	"github.com/xaionaro-go/videotexture/pkg/config"
	"github.com/xaionaro-go/videotexture/pkg/xpath"
)

// loadConfig returns the defaults when --config-path is not set or points to
// a file that does not exist yet.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	ctx := cmd.Context()
	cfg := config.NewConfig()

	cfgPath, err := cmd.Flags().GetString("config-path")
	if err != nil {
		return cfg, fmt.Errorf("unable to get the value of the flag 'config-path': %w", err)
	}
	if cfgPath == "" {
		return cfg, nil
	}

	rawPath := cfgPath
	cfgPath, err = xpath.Expand(rawPath)
	if err != nil {
		return cfg, fmt.Errorf("unable to expand path '%s': %w", rawPath, err)
	}

	err = config.ReadConfigFromPath(ctx, cfgPath, &cfg)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		logger.Warnf(ctx, "config '%s' does not exist, using the defaults", cfgPath)
	default:
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config '%s': %w", cfgPath, err)
	}
	return cfg, nil
}

func stringFlag(ctx context.Context, cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	assertNoError(ctx, err)
	return v
}
