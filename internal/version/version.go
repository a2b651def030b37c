// Package version carries build metadata injected via -ldflags.
package version

var (
	// Version is the release tag of this build
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata as a single line.
func String() string {
	return Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
