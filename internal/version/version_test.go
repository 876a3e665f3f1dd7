package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if want := runtime.GOOS + "/" + runtime.GOARCH; info.Platform != want {
		t.Errorf("Platform = %q, want %q", info.Platform, want)
	}
}

func TestString(t *testing.T) {
	info := Info{Version: "1.2.0", GitCommit: "abc123", BuildDate: "2026-10-01", GoVersion: "go1.24.4", Platform: "linux/arm64"}

	got := info.String()
	if !strings.HasPrefix(got, "rgbnode 1.2.0 ") {
		t.Errorf("String() = %q", got)
	}
	for _, part := range []string{"abc123", "2026-10-01", "linux/arm64"} {
		if !strings.Contains(got, part) {
			t.Errorf("String() = %q, missing %q", got, part)
		}
	}
}
