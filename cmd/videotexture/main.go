package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/facebookincubator/go-belt"
	xruntime "github.com/facebookincubator/go-belt/pkg/runtime"
	"github.com/facebookincubator/go-belt/tool/logger"
	xlogrus "github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/sirupsen/logrus"
	"github.com/xaionaro-go/videotexture/cmd/videotexture/commands"
	"github.com/xaionaro-go/videotexture/pkg/observability"
)

func main() {
	xruntime.DefaultCallerPCFilter = observability.CallerPCFilter(xruntime.DefaultCallerPCFilter)

	ll := xlogrus.DefaultLogrusLogger()
	ll.Formatter.(*logrus.TextFormatter).ForceColors = true
	l := xlogrus.New(ll).WithLevel(logger.LevelTrace).WithPreHooks(observability.LogLevelFilter)
	logger.Default = func() logger.Logger {
		return l
	}

	ctx := logger.CtxWithLogger(context.Background(), l)
	defer belt.Flush(ctx)

	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelFn()

	err := commands.Root.ExecuteContext(ctx)
	if err != nil {
		logger.Panic(ctx, err)
	}
}
