// Package astiavlogger routes libav log lines into a go-belt logger.
package astiavlogger

import (
	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt/tool/logger"
)

// levelMap is shifted by one step below Info, so that libav's verbose
// output shows up only in debug mode and its debug output only in trace mode.
var levelMap = []struct {
	Belt   logger.Level
	Astiav astiav.LogLevel
}{
	{logger.LevelUndefined, astiav.LogLevelQuiet},
	{logger.LevelPanic, astiav.LogLevelPanic},
	{logger.LevelFatal, astiav.LogLevelFatal},
	{logger.LevelError, astiav.LogLevelError},
	{logger.LevelWarning, astiav.LogLevelWarning},
	{logger.LevelInfo, astiav.LogLevelInfo},
	{logger.LevelDebug, astiav.LogLevelVerbose},
	{logger.LevelTrace, astiav.LogLevelDebug},
}

func LogLevelToAstiav(level logger.Level) astiav.LogLevel {
	for _, m := range levelMap {
		if m.Belt == level {
			return m.Astiav
		}
	}
	return astiav.LogLevelWarning
}

func LogLevelFromAstiav(level astiav.LogLevel) logger.Level {
	for _, m := range levelMap {
		if m.Astiav == level {
			return m.Belt
		}
	}
	return logger.LevelWarning
}
