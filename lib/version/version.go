// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time.
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// Info returns the one-line form used by --version.
func Info() string {
	return format(GitCommit, GitDirty, BuildTime, buildSettings())
}

// Full adds the Go version and platform to Info.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func buildSettings() map[string]string {
	settings := make(map[string]string)
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			settings[setting.Key] = setting.Value
		}
	}
	return settings
}

// format fills unset ldflags values from the embedded VCS settings.
func format(commit, dirty, buildTime string, settings map[string]string) string {
	if commit == "unknown" {
		if revision := settings["vcs.revision"]; revision != "" {
			commit = revision[:min(len(revision), 12)]
			dirty = settings["vcs.modified"]
		}
	}
	if buildTime == "unknown" && settings["vcs.time"] != "" {
		buildTime = settings["vcs.time"]
	}
	suffix := ""
	if dirty == "true" {
		suffix = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, commit, suffix, buildTime)
}
