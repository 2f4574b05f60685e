package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the current version of chatpane.
	// This will be set at build time using -ldflags
	Version = "dev"

	// CommitHash is the git commit hash
	CommitHash = "unknown"

	// BuildDate is the build date
	BuildDate = "unknown"
)

// Info is the build information reported by the version command and the
// health endpoints.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns the build information of the running binary.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    CommitHash,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetVersionString returns the full version string
func GetVersionString() string {
	return fmt.Sprintf("chatpane version: %s (commit: %s, built: %s)", Version, CommitHash, BuildDate)
}

// GetShortVersion returns just the version number
func GetShortVersion() string {
	return Version
}
