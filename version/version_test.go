package version

import (
	"strings"
	"testing"
	"time"
)

func saveAndRestore() func() {
	origVersion, origCommit, origBuildTime := Version, GitCommit, BuildTime
	return func() {
		Version = origVersion
		GitCommit = origCommit
		BuildTime = origBuildTime
	}
}

func TestGetUsesLinkerFlags(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.2.0"
	GitCommit = "abc1234def"
	BuildTime = "2024-01-15T10:30:00Z"

	info := Get()
	if info.Version != "1.2.0" {
		t.Errorf("expected '1.2.0', got %q", info.Version)
	}
	if info.GitCommit != "abc1234" {
		t.Errorf("expected the commit to be shortened, got %q", info.GitCommit)
	}
	if info.BuildDate.Year() != 2024 {
		t.Errorf("expected build year 2024, got %d", info.BuildDate.Year())
	}
}

func TestIsRelease(t *testing.T) {
	cases := []struct {
		info Info
		want bool
	}{
		{Info{Version: "dev"}, false},
		{Info{Version: "1.0.0"}, true},
		{Info{Version: "1.0.0", Dirty: true}, false},
		{Info{Version: "1.0.0-dirty"}, false},
	}
	for _, tc := range cases {
		if got := tc.info.IsRelease(); got != tc.want {
			t.Errorf("%+v: expected %v, got %v", tc.info, tc.want, got)
		}
	}
}

func TestShort(t *testing.T) {
	if got := (Info{Version: "dev"}).Short(); got != "dev" {
		t.Errorf("expected 'dev', got %q", got)
	}
	if got := (Info{Version: "1.0.0", GitCommit: "abc1234", Dirty: true}).Short(); got != "1.0.0-abc1234-dirty" {
		t.Errorf("unexpected short version %q", got)
	}
}

func TestString(t *testing.T) {
	info := Info{
		Version:   "1.0.0",
		GitCommit: "abc1234",
		GoVersion: "go1.25.0",
		BuildDate: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}
	got := info.String()
	for _, want := range []string{"cmdflow 1.0.0-abc1234", "built 2024-01-15T10:30:00Z", "go1.25.0"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}
