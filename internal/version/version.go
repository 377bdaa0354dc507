// Package version carries build metadata set with -ldflags.
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Full returns a one-line description of the build.
func Full() string {
	return fmt.Sprintf("crash-video %s, commit %s, built at %s", Version, Commit, Date)
}
