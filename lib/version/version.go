// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
)

// Build stamps for ydocsync. Release builds override them with -X.
var (
	// GitCommit identifies the source revision the binary was built
	// from. It distinguishes two builds that share a Version.
	GitCommit = "unknown"

	// GitDirty is "true" for a binary built from a modified tree, whose
	// chunking or storage behaviour may not match GitCommit.
	GitDirty = "false"

	// BuildTime is when the binary was linked, in UTC.
	BuildTime = "unknown"

	// Version names the release. Stored documents do not record it, so
	// it only matters for bug reports.
	Version = "0.1.0-dev"
)

// Info is the line ydocsync --version prints after the program name,
// for example "0.1.0-dev (3f2a9c1-dirty, 2026-10-01T12:00:00Z)".
func Info() string {
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, GitCommit, dirty, BuildTime)
}

// Full is Info with the toolchain and target appended, one per line,
// for attaching to bug reports about a particular store file.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
