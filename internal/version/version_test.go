package version_test

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/fatih/color"

	"firopt/internal/version"
)

func TestVersionIsSemver(t *testing.T) {
	if _, err := semver.NewVersion(version.Version); err != nil {
		t.Errorf("Version %q is not semver: %v", version.Version, err)
	}
}

func TestBanner(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	orig := [3]string{version.Version, version.GitCommit, version.BuildDate}
	t.Cleanup(func() {
		version.Version, version.GitCommit, version.BuildDate = orig[0], orig[1], orig[2]
	})

	tests := []struct {
		version, commit, date string
		want                  string
	}{
		{"0.1.0-dev", "", "", "firopt 0.1.0-dev"},
		{"1.2.3", "abc123def4567890", "2026-01-15", "firopt 1.2.3 (abc123def456, 2026-01-15)"},
	}
	for _, tt := range tests {
		version.Version, version.GitCommit, version.BuildDate = tt.version, tt.commit, tt.date
		if got := version.Banner(); got != tt.want {
			t.Errorf("Banner() = %q, want %q", got, tt.want)
		}
	}
}
