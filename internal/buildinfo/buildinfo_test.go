package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestInfo_Keys(t *testing.T) {
	info := Info()
	for _, key := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch", "uptime"} {
		if _, ok := info[key]; !ok {
			t.Errorf("Info() missing key %q", key)
		}
	}
}

func TestString(t *testing.T) {
	if got := String(); !strings.HasPrefix(got, "secretary "+Version) {
		t.Errorf("String() = %q, want secretary %s prefix", got, Version)
	}
}

func TestUserAgent(t *testing.T) {
	if got := UserAgent(); !strings.HasPrefix(got, "secretary/") {
		t.Errorf("UserAgent() = %q, want secretary/ prefix", got)
	}
}

func TestFillFrom(t *testing.T) {
	oldV, oldC, oldT := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldV, oldC, oldT })

	Version, GitCommit, BuildTime = "dev", "unknown", "unknown"
	fillFrom(&debug.BuildInfo{
		Main: debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})
	if Version != "v1.2.3" || GitCommit != "0123456789ab-dirty" || BuildTime != "2026-01-02T03:04:05Z" {
		t.Errorf("got %s %s %s", Version, GitCommit, BuildTime)
	}

	// Stamped values win.
	Version, GitCommit = "v9.0.0", "stamped"
	fillFrom(&debug.BuildInfo{
		Main:     debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	})
	if Version != "v9.0.0" || GitCommit != "stamped" {
		t.Errorf("stamped values overwritten: %s %s", Version, GitCommit)
	}
}
