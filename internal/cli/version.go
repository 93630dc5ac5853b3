package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IgorPritula/entity-ref-dependency/internal/buildinfo"
)

const defaultModulePath = "github.com/IgorPritula/entity-ref-dependency"

type versionInfo struct {
	Version    string `json:"version"`
	ModulePath string `json:"module_path"`
	Commit     string `json:"commit,omitempty"`
	CommitTime string `json:"commit_time,omitempty"`
	Modified   bool   `json:"modified"`
	GoVersion  string `json:"go_version"`
	GOOS       string `json:"goos"`
	GOARCH     string `json:"goarch"`
}

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show erdep version and build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentVersionInfo()
		if isJSONOutput() {
			outputSuccess(info, nil)
			return nil
		}

		fmt.Printf("erdep %s (%s/%s, %s)\n", info.Version, info.GOOS, info.GOARCH, info.GoVersion)
		if info.Commit != "" {
			commit := info.Commit
			if info.Modified {
				commit += "-dirty"
			}
			fmt.Printf("commit %s %s\n", commit, info.CommitTime)
		}
		return nil
	},
}

// currentVersionInfo prefers the module build info and falls back to the
// values stamped into buildinfo by the release build.
func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:    "devel",
		ModulePath: defaultModulePath,
		GoVersion:  runtime.Version(),
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
	}

	if bi, ok := readBuildInfo(); ok && bi != nil {
		settings := make(map[string]string, len(bi.Settings))
		for _, s := range bi.Settings {
			settings[s.Key] = s.Value
		}
		if bi.Main.Path != "" {
			info.ModulePath = bi.Main.Path
		}
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			info.Version = v
		}
		if bi.GoVersion != "" {
			info.GoVersion = bi.GoVersion
		}
		if v := settings["GOOS"]; v != "" {
			info.GOOS = v
		}
		if v := settings["GOARCH"]; v != "" {
			info.GOARCH = v
		}
		info.Commit = settings["vcs.revision"]
		info.CommitTime = settings["vcs.time"]
		info.Modified = strings.EqualFold(settings["vcs.modified"], "true")
	}

	if info.Version == "devel" {
		info.Version = buildinfo.VersionOr("devel")
	}
	if info.Commit == "" {
		info.Commit = buildinfo.Commit
	}
	if info.CommitTime == "" {
		info.CommitTime = buildinfo.Date
	}
	return info
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
