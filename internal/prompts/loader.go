package prompts

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultTemplate is the system instruction template used by the agent
// when none is configured.
const DefaultTemplate = "assistant"

const templateExt = ".txt"

//go:embed templates/*.txt
var embedded embed.FS

// ErrTemplateNotFound is returned (wrapped) when a named template exists
// neither in the templates directory nor among the embedded defaults.
var ErrTemplateNotFound = errors.New("prompt template not found")

// Loader reads templates by name. Files in the templates directory shadow
// the embedded defaults of the same name.
type Loader struct {
	dir string
}

// NewLoader creates a template loader for dir. An empty dir serves the
// embedded defaults only.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Dir returns the templates directory.
func (l *Loader) Dir() string {
	return l.dir
}

// Load returns the raw text of the named template. Templates are read on
// every call so edits take effect without a restart.
func (l *Loader) Load(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name != filepath.Clean(name) {
		return "", fmt.Errorf("load template %q: %w", name, ErrTemplateNotFound)
	}
	file := name + templateExt

	if l.dir != "" {
		data, err := os.ReadFile(filepath.Join(l.dir, file))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("load template %s: %w", name, err)
		}
	}

	data, err := embedded.ReadFile("templates/" + file)
	if err != nil {
		return "", fmt.Errorf("load template %s: %w", name, ErrTemplateNotFound)
	}
	return string(data), nil
}

// Names lists the available template names, directory and embedded
// combined, sorted.
func (l *Loader) Names() ([]string, error) {
	seen := make(map[string]bool)

	if l.dir != "" {
		entries, err := os.ReadDir(l.dir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read templates dir: %w", err)
		}
		for _, e := range entries {
			if name, ok := strings.CutSuffix(e.Name(), templateExt); ok && !e.IsDir() {
				seen[name] = true
			}
		}
	}

	entries, err := embedded.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), templateExt); ok {
			seen[name] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Defaults returns the embedded template files keyed by file name, for
// writing a starter templates directory.
func Defaults() (map[string][]byte, error) {
	entries, err := embedded.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}
	out := make(map[string][]byte, len(entries))
	for _, e := range entries {
		data, err := embedded.ReadFile("templates/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded %s: %w", e.Name(), err)
		}
		out[e.Name()] = data
	}
	return out, nil
}
