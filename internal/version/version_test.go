package version

import "testing"

func TestFull(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	Version = "dev"
	if got := Full(); got != "cencli version dev (built from source)" {
		t.Errorf("Full() with dev = %q", got)
	}

	Version, Commit = "1.2.3", "none"
	if got := Full(); got != "cencli version 1.2.3" {
		t.Errorf("Full() with 1.2.3 = %q", got)
	}

	Version, Commit, Date = "1.2.3", "0123456789abcdef", "2026-01-02T00:00:00Z"
	if got := Full(); got != "cencli version 1.2.3 (0123456, 2026-01-02T00:00:00Z)" {
		t.Errorf("Full() with commit = %q", got)
	}
}

func TestUserAgent(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	Version = "dev"
	if got := UserAgent(); got != "cencli/dev (+https://github.com/Pack3tL0ss/central-api-cli)" {
		t.Errorf("UserAgent() with dev = %q", got)
	}

	Version = "1.0.0"
	if got := UserAgent(); got != "cencli/1.0.0 (+https://github.com/Pack3tL0ss/central-api-cli)" {
		t.Errorf("UserAgent() with 1.0.0 = %q", got)
	}
}
