// Package buildinfo reports the version of the running binary.
//
// Release builds stamp the variables below with -ldflags, e.g.
//
//	-X github.com/campuskit/secretary/internal/buildinfo.Version=v0.3.0
//
// A plain "go build" or "go install" leaves them unset; the VCS revision
// and module version recorded by the Go toolchain fill the gaps.
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var startTime = time.Now()

var fillOnce sync.Once

// fill copies toolchain-recorded metadata into any variable ldflags left
// at its default.
func fill() {
	fillOnce.Do(func() {
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		fillFrom(bi)
	})
}

func fillFrom(bi *debug.BuildInfo) {
	if Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		Version = bi.Main.Version
	}
	dirty := false
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if GitCommit == "unknown" && s.Value != "" {
				GitCommit = s.Value[:min(len(s.Value), 12)]
			}
		case "vcs.time":
			if BuildTime == "unknown" && s.Value != "" {
				BuildTime = s.Value
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty && GitCommit != "unknown" {
		GitCommit += "-dirty"
	}
}

// Info returns build and runtime info as a flat map, suitable for JSON.
func Info() map[string]string {
	fill()
	return map[string]string{
		"version":    Version,
		"git_commit": GitCommit,
		"build_time": BuildTime,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     Uptime().String(),
	}
}

// Uptime returns the time since process start, to the second.
func Uptime() time.Duration {
	return time.Since(startTime).Truncate(time.Second)
}

// String is the one-line form printed by "secretary version".
func String() string {
	fill()
	return fmt.Sprintf("secretary %s (%s) built %s", Version, GitCommit, BuildTime)
}

// UserAgent is sent on outbound HTTP requests.
func UserAgent() string {
	fill()
	return fmt.Sprintf("secretary/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}
