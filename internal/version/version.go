// Package version holds build metadata injected with -ldflags.
package version

import "fmt"

// Set at build time, e.g.
// go build -ldflags "-X sessiond/internal/version.Version=v1.0.0 -X sessiond/internal/version.Commit=$(git rev-parse --short HEAD)"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a single-line description of the build.
func Info() string {
	return fmt.Sprintf("sessiond %s (commit %s, built %s)", Version, Commit, Date)
}
