package observability

import (
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/pkg/field"
	logger "github.com/facebookincubator/go-belt/tool/logger/types"
	"github.com/sasha-s/go-deadlock"
)

// LogLevelFilter lets the CLI keep the logger itself at trace level and
// change the effective level at runtime.
var LogLevelFilter = NewLogLevelFilter(logger.LevelWarning)

type LogLevelFilterT struct {
	locker deadlock.RWMutex
	level  logger.Level
}

var _ logger.PreHook = (*LogLevelFilterT)(nil)

func NewLogLevelFilter(level logger.Level) *LogLevelFilterT {
	return &LogLevelFilterT{level: level}
}

func (h *LogLevelFilterT) GetLevel() logger.Level {
	h.locker.RLock()
	defer h.locker.RUnlock()
	return h.level
}

func (h *LogLevelFilterT) SetLevel(level logger.Level) {
	h.locker.Lock()
	defer h.locker.Unlock()
	h.level = level
}

func (h *LogLevelFilterT) result(level logger.Level) logger.PreHookResult {
	return logger.PreHookResult{Skip: level > h.GetLevel()}
}

func (h *LogLevelFilterT) ProcessInput(
	_ belt.TraceIDs,
	level logger.Level,
	_ ...any,
) logger.PreHookResult {
	return h.result(level)
}

func (h *LogLevelFilterT) ProcessInputf(
	_ belt.TraceIDs,
	level logger.Level,
	_ string,
	_ ...any,
) logger.PreHookResult {
	return h.result(level)
}

func (h *LogLevelFilterT) ProcessInputFields(
	_ belt.TraceIDs,
	level logger.Level,
	_ string,
	_ field.AbstractFields,
) logger.PreHookResult {
	return h.result(level)
}
