// Package paths resolves the directory layout the agent works in.
//
// Everything hangs off one base directory: tool executables, templates
// and tool data. Each can be overridden individually; relative overrides
// are taken relative to the base. Nothing is found by searching PATH or
// walking up from the working directory.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default subdirectories of the base directory.
const (
	ToolsSubdir     = "bin"
	TemplatesSubdir = "templates"
	DataSubdir      = "data"
)

// Layout is a fully resolved set of absolute directories.
type Layout struct {
	Base      string `json:"base"`
	Tools     string `json:"tools"`
	Templates string `json:"templates"`
	Data      string `json:"data"`
}

// Resolve builds a Layout from a base directory and optional per-directory
// overrides (empty fields of overrides take the defaults). Home tildes are
// expanded everywhere.
func Resolve(base string, overrides Layout) (Layout, error) {
	if base == "" {
		return Layout{}, fmt.Errorf("resolve layout: base directory is empty")
	}
	absBase, err := filepath.Abs(ExpandHome(base))
	if err != nil {
		return Layout{}, fmt.Errorf("resolve base %s: %w", base, err)
	}

	return Layout{
		Base:      absBase,
		Tools:     under(absBase, overrides.Tools, ToolsSubdir),
		Templates: under(absBase, overrides.Templates, TemplatesSubdir),
		Data:      under(absBase, overrides.Data, DataSubdir),
	}, nil
}

func under(base, override, def string) string {
	if override == "" {
		return filepath.Join(base, def)
	}
	p := ExpandHome(override)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// EnsureData creates the data directory if it does not exist.
func (l Layout) EnsureData() error {
	if err := os.MkdirAll(l.Data, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return filepath.Join(home, path[2:])
	}
	return path
}
