// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// WireFormat is the revision of the byte layout this build reads and
// writes. It changes only when the encoding of an existing value kind
// changes, never when kinds are added.
const WireFormat = 1

// Build describes the running binary.
type Build struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	Dirty      bool   `json:"dirty"`
	BuildTime  string `json:"build_time"`
	Go         string `json:"go"`
	Platform   string `json:"platform"`
	WireFormat int    `json:"wire_format"`
}

// Current returns the build information of this binary.
func Current() Build {
	return Build{
		Version:    Version,
		Commit:     GitCommit,
		Dirty:      GitDirty == "true",
		BuildTime:  BuildTime,
		Go:         runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		WireFormat: WireFormat,
	}
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, GitCommit, dirty, BuildTime)
}

// Full returns detailed version information including the Go version
// and wire format revision.
func Full() string {
	build := Current()
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s\n  Wire format: %d",
		Info(), build.Go, build.Platform, build.WireFormat)
}

// Short returns just the version number.
func Short() string {
	return Version
}
