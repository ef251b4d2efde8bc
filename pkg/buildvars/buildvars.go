// Package buildvars holds the values injected with
// -ldflags "-X github.com/xaionaro-go/videotexture/pkg/buildvars.Version=...".
package buildvars

import (
	"runtime/debug"
	"strconv"
	"time"
)

var (
	GitCommit       string
	Version         string
	BuildDateString string
	BuildDate       *time.Time
)

func init() {
	unixTS, err := strconv.ParseInt(BuildDateString, 10, 64)
	if err == nil {
		t := time.Unix(unixTS, 0)
		BuildDate = &t
	}
	if Version != "" {
		return
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		Version = bi.Main.Version
	}
}
