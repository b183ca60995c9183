package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/campuskit/secretary/examples"
	"github.com/campuskit/secretary/internal/paths"
	"github.com/campuskit/secretary/internal/prompts"
)

// runInit initializes a secretary working directory: the tools, templates
// and data directories, an example config, the default templates and a
// starter evaluation file. Existing files are never overwritten.
func runInit(w io.Writer, dir string) error {
	fmt.Fprintf(w, "Initializing secretary workspace in %s\n", dir)

	layout, err := paths.Resolve(dir, paths.Layout{})
	if err != nil {
		return err
	}
	for _, sub := range []string{layout.Tools, layout.Templates, layout.Data} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", sub, err)
		}
	}

	// The config may hold an API key.
	configPath := filepath.Join(dir, "config.yaml")
	if err := writeIfMissing(w, configPath, examples.ConfigYAML, 0o600); err != nil {
		return err
	}

	templates, err := prompts.Defaults()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writeIfMissing(w, filepath.Join(layout.Templates, name), templates[name], 0o644); err != nil {
			return err
		}
	}

	if err := writeIfMissing(w, filepath.Join(dir, "eval_cases.json"), examples.EvalCasesJSON, 0o644); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Install the *_cli tools into %s and set GEMINI_API_KEY or edit config.yaml.\n", layout.Tools)
	return nil
}

// writeIfMissing writes content to path only if the file does not already
// exist.
func writeIfMissing(w io.Writer, path string, content []byte, perm os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "  - %s (exists, kept)\n", path)
		return nil
	}
	if err := os.WriteFile(path, content, perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(w, "  ✓ %s\n", path)
	return nil
}
