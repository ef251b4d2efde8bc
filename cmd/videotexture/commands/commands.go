package commands

import (
	"context"
	"os"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/cobra"
	"github.com/xaionaro-go/videotexture/pkg/astiavlogger"
	"github.com/xaionaro-go/videotexture/pkg/observability"
)

var (
	// Access these variables only from a main package:

	Root = &cobra.Command{
		Use: os.Args[0],
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			observability.LogLevelFilter.SetLevel(LoggerLevel)
			astiavlogger.Install(logger.CtxWithLogger(ctx, logger.FromCtx(ctx).WithLevel(LoggerLevel)))
			logger.Debugf(ctx, "log-level: %v", LoggerLevel)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			logger.Debug(ctx, "end")
		},
	}

	Run = &cobra.Command{
		Use:   "run",
		Short: "play a manifest into the configured textures and audio sources",
		Args:  cobra.ExactArgs(0),
		Run:   run,
	}

	Probe = &cobra.Command{
		Use:   "probe <manifest-url>",
		Short: "open a manifest and print its metadata",
		Args:  cobra.ExactArgs(1),
		Run:   probe,
	}

	GenerateConfig = &cobra.Command{
		Use:   "generate-config",
		Short: "print (or write) a sample config",
		Args:  cobra.ExactArgs(0),
		Run:   generateConfig,
	}

	Version = &cobra.Command{
		Use:   "version",
		Short: "print the build information",
		Args:  cobra.ExactArgs(0),
		Run:   version,
	}

	LoggerLevel = logger.LevelWarning
)

func init() {
	Root.AddCommand(Run)
	Root.AddCommand(Probe)
	Root.AddCommand(GenerateConfig)
	Root.AddCommand(Version)

	Root.PersistentFlags().Var(&LoggerLevel, "log-level", "")
	Root.PersistentFlags().String("config-path", "", "the path to the config file")

	Run.PersistentFlags().String("manifest-url", "", "overrides pipeline.manifest_url of the config")
	Run.PersistentFlags().String("metrics-listen-addr", "", "overrides metrics_listen_addr of the config")
	Run.PersistentFlags().Duration("duration", 0, "stop after this long (0 means until interrupted or ended)")

	Probe.PersistentFlags().Duration("timeout", 0, "give up opening the manifest after this long (0 means the config value)")

	GenerateConfig.PersistentFlags().String("output", "", "write the config to this path instead of stdout")
}

func assertNoError(ctx context.Context, err error) {
	if err != nil {
		logger.Panic(ctx, err)
	}
}
