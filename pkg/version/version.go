// Package version identifies the client build to the backend and in logs.
//
// The commit comes from -ldflags when set, otherwise from the VCS stamp in
// debug.BuildInfo, otherwise "dev". Builds from a modified tree get a
// "-dirty" suffix.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// AppName prefixes every version string.
const AppName = "drafter"

// commitLen is how much of the revision hash is kept.
const commitLen = 8

// gitCommitOverride is set with -ldflags "-X .../version.gitCommitOverride=<sha>"
// for builds without a .git directory.
var gitCommitOverride string

// GitCommit is the short commit of this build, or "dev".
var GitCommit = resolveCommit(gitCommitOverride, readSettings())

func readSettings() map[string]string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	return settings
}

func resolveCommit(override string, settings map[string]string) string {
	if override != "" {
		return shorten(override)
	}
	rev := settings["vcs.revision"]
	if rev == "" {
		return "dev"
	}
	commit := shorten(rev)
	if settings["vcs.modified"] == "true" {
		commit += "-dirty"
	}
	return commit
}

func shorten(rev string) string {
	if len(rev) > commitLen {
		return rev[:commitLen]
	}
	return rev
}

// Full returns "drafter/<commit>".
func Full() string {
	return AppName + "/" + GitCommit
}

// UserAgent is sent on the websocket handshake and on REST calls, e.g.
// "drafter/a3f8c2d1 (go1.25.6; linux/amd64)".
func UserAgent() string {
	return fmt.Sprintf("%s (%s; %s/%s)", Full(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
