// Package misc keeps build time information about the program.
package misc

// values are overwritten at link time with -ldflags "-X canvasx/misc.version=..."
var (
	version = "dev"
	gitHash = "unknown"
	appName = "canvasx"
)

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns git commit the program was built from.
func GetGitHash() string {
	return gitHash
}

// GetAppName returns program name used for logs, reports and panic files.
func GetAppName() string {
	return appName
}
