package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag, set with -ldflags "-X .../internal/version.Version=...".
	Version = "0.1.0-dev"
	// Commit is the short git SHA of the build.
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns the release tag.
func Short() string {
	return Version
}

// Full returns the release tag with commit, build time and toolchain.
func Full() string {
	return fmt.Sprintf(
		"mqtt-stat %s (commit %s, built %s, %s %s/%s)",
		Version, Commit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH,
	)
}
