package commands

import (
	"encoding/json"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/xaionaro-go/videotexture/pkg/buildvars"
)

type versionInfo struct {
	Version   string     `json:"version,omitempty"`
	GitCommit string     `json:"git_commit,omitempty"`
	BuildDate *time.Time `json:"build_date,omitempty"`
	GoVersion string     `json:"go_version"`
}

func version(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", " ")
	err := enc.Encode(versionInfo{
		Version:   buildvars.Version,
		GitCommit: buildvars.GitCommit,
		BuildDate: buildvars.BuildDate,
		GoVersion: runtime.Version(),
	})
	assertNoError(ctx, err)
}
