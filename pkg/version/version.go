package version

import "fmt"

var (
	// Version is the current version of the plugin collection
	Version = "0.1.0-dev"

	// GitCommit is the git commit hash (set during build)
	GitCommit = "unknown"

	// BuildDate is the build date (set during build)
	BuildDate = "unknown"
)

// Info returns formatted version information for a plugin
func Info(progname string) string {
	return fmt.Sprintf("%s version %s (commit: %s, built: %s)",
		progname, Version, GitCommit, BuildDate)
}

// Short returns just the version number
func Short() string {
	return Version
}
