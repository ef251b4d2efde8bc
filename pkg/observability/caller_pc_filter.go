package observability

import (
	"runtime"
	"strings"
)

// CallerPCFilter wraps a caller filter so that log lines are attributed to
// the code calling into locking and logging helpers rather than to the
// helpers themselves.
func CallerPCFilter(
	originalPCFilter func(uintptr) bool,
) func(uintptr) bool {
	return func(pc uintptr) bool {
		if !originalPCFilter(pc) {
			return false
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			return true
		}
		funcName := fn.Name()
		for _, pkg := range []string{
			"xaionaro-go/xsync",
			"pkg/observability",
			"pkg/astiavlogger",
		} {
			if strings.Contains(funcName, pkg) {
				return false
			}
		}
		return true
	}
}
