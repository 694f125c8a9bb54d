// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

// Package version provides build version information for the plugin.
// Values are injected at build time via -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// These variables are set at build time via -ldflags.
// Example: go build -ldflags "-X jsbridge/internal/version.Version=1.0.0"
var (
	// Version is the semantic version (e.g., "0.9.0" or "0.9.0-dev")
	Version = "dev"

	// GitCommit is the git commit hash (short form)
	GitCommit = "unknown"

	// BuildTime is the build timestamp in RFC3339 format
	BuildTime = "unknown"
)

// String returns a formatted version string suitable for --version output.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, %s/%s)",
		Version, GitCommit, BuildTime, runtime.GOOS, runtime.GOARCH)
}

// Descriptor returns the statement published into the interpreter globals
// so scripts can inspect the bridge version.
func Descriptor() string {
	return fmt.Sprintf("var JSBRIDGE_VERSION = %q;", String())
}
