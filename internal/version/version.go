// Package version carries build metadata injected via -ldflags.
package version

import "fmt"

var (
	// Version is the semantic version of the binary.
	Version = "dev"
	// Commit is the git commit hash the binary was built from.
	Commit = "unknown"
	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// String renders the full build identification line.
func String() string {
	return fmt.Sprintf("streamsight %s (commit %s, built %s)", Version, Commit, BuildDate)
}
