// Package version holds the build metadata stamped into the binary.
package version

import "fmt"

// Build metadata, set with -ldflags "-X github.com/Sumatoshi-tech/smellscan/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the metadata for the version command.
func String() string {
	return fmt.Sprintf("smellscan %s (commit: %s, built: %s)", Version, Commit, Date)
}
