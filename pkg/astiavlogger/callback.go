package astiavlogger

import (
	"context"
	"strings"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt/tool/logger"
)

// Callback formats libav messages, prefixed with the emitting class chain,
// into l.
func Callback(l logger.Logger) astiav.LogCallback {
	var locker sync.Mutex
	return func(c astiav.Classer, level astiav.LogLevel, format, msg string) {
		msg = strings.TrimSpace(msg)
		if msg == "" {
			return
		}
		locker.Lock()
		defer locker.Unlock()
		if chain := classChain(c); chain != "" {
			l.Logf(LogLevelFromAstiav(level), "%s: %s", chain, msg)
			return
		}
		l.Logf(LogLevelFromAstiav(level), "%s", msg)
	}
}

// Install makes libav log through the logger of ctx, at the matching level.
func Install(ctx context.Context) {
	l := logger.FromCtx(ctx)
	astiav.SetLogLevel(LogLevelToAstiav(l.Level()))
	astiav.SetLogCallback(Callback(l))
}
