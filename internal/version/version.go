// Package version carries the build-stamped identity the CLI's
// -version flag prints. The variables are overridden at link time:
//
//	go build -ldflags "-X .../internal/version.Version=v1.2.0 ..."
package version

import "fmt"

var (
	// Version is the release tag, or "dev" for local builds.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String formats the identity the way the CLI prints it.
func String() string {
	return fmt.Sprintf("geocore %s (%s, built %s)", Version, GitSHA, BuildTime)
}
