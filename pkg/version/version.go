// Package version exposes build information for memvaultd.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = runtime.Version()
)

// String returns a single-line version summary suitable for logs.
func String() string {
	return fmt.Sprintf("memvaultd %s (commit %s, built %s, %s)", Version, GitCommit, BuildTime, GoVersion)
}
