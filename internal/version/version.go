// Package version provides build-time version information.
// These variables are set via ldflags at build time.
package version

var (
	// Version is the semantic version (e.g., "1.0.0")
	Version = "dev"

	// Commit is the git commit SHA
	Commit = "none"

	// Date is the build date in RFC3339 format
	Date = "unknown"
)

// Full returns the full version string for display.
func Full() string {
	if Version == "dev" {
		return "cencli version dev (built from source)"
	}
	s := "cencli version " + Version
	if Commit != "none" {
		s += " (" + shortCommit() + ", " + Date + ")"
	}
	return s
}

// UserAgent returns the user agent string sent with every Central request.
func UserAgent() string {
	return "cencli/" + Version + " (+https://github.com/Pack3tL0ss/central-api-cli)"
}

func shortCommit() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}
	return Commit
}
