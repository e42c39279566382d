// Package misc keeps build time information about the program.
package misc

import (
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X sc2sx/misc.version=... -X sc2sx/misc.gitHash=...".
var (
	appName = "sc2sx"
	version = ""
	gitHash = ""
)

func GetAppName() string {
	return appName
}

// GetVersion returns linked version, falls back to module build info.
func GetVersion() string {
	if len(version) > 0 {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && len(bi.Main.Version) > 0 && bi.Main.Version != "(devel)" {
		return strings.TrimPrefix(bi.Main.Version, "v")
	}
	return "dev"
}

func GetGitHash() string {
	if len(gitHash) > 0 {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
