// Package version holds build metadata injected via ldflags:
//
//	-X github.com/kailas-cloud/viewdex/internal/version.Version=v1.2.0
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the metadata for the version command and startup log.
func String() string {
	return fmt.Sprintf("viewdex %s (commit %s, built %s)", Version, Commit, Date)
}
