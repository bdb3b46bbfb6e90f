package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestVersion_ColoredKeepsText(t *testing.T) {
	origNoColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = origNoColor }()

	for _, v := range []string{"0.1.0", "1.2.3-rc.1", "2.0.0-alpha", "weird"} {
		origVersion := Version
		Version = v
		if got := Colored(); got != v {
			t.Errorf("Colored() with %q = %q", v, got)
		}
		Version = origVersion
	}
}

func TestVersion_Describe(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate }()

	Version = "1.2.3"
	GitCommit = ""
	BuildDate = ""
	if got := Describe(false); got != "lensctl 1.2.3" {
		t.Errorf("Describe() = %q", got)
	}

	GitCommit = "abc123"
	BuildDate = "2024-01-15T10:30:00Z"
	if got, want := Describe(false), "lensctl 1.2.3 (abc123) built 2024-01-15T10:30:00Z"; got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
}
