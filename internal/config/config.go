// Package config handles secretary configuration loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/campuskit/secretary/internal/paths"
)

// Environment variables that override file settings when set.
const (
	EnvAPIKey     = "GEMINI_API_KEY"
	EnvModel      = "GEMINI_MODEL"
	EnvMaxHistory = "MAX_HISTORY_COUNT"
)

// placeholderKey is the value shipped in example configs.
const placeholderKey = "your_api_key_here"

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/secretary/config.yaml, /etc/secretary/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "secretary", "config.yaml"))
	}

	paths = append(paths, "/etc/secretary/config.yaml")
	return paths
}

// ErrNoConfig is returned by FindConfig when no search path exists.
var ErrNoConfig = errors.New("no config file found")

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w (searched: %v)", ErrNoConfig, DefaultSearchPaths())
}

// Config holds all secretary configuration.
type Config struct {
	// BaseDir anchors the tools, templates and data directories. Empty
	// means the directory holding the config file, or the working
	// directory when running without one.
	BaseDir string `yaml:"base_dir"`

	Model  ModelConfig  `yaml:"model"`
	Agent  AgentConfig  `yaml:"agent"`
	Tools  ToolsConfig  `yaml:"tools"`
	Listen ListenConfig `yaml:"listen"`

	TemplatesDir string `yaml:"templates_dir"`
	DataDir      string `yaml:"data_dir"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // text or json

	// path is the file this config was loaded from, if any.
	path string
}

// ModelConfig selects the model backend.
type ModelConfig struct {
	Provider   string `yaml:"provider"` // gemini, ollama, anthropic
	Name       string `yaml:"name"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// AgentConfig tunes the agent loop.
type AgentConfig struct {
	// MaxHistory is the number of recent turns sent to the model.
	MaxHistory int    `yaml:"max_history"`
	Template   string `yaml:"template"`
	Locale     string `yaml:"locale"` // en or zh, for weekday names
}

// ToolsConfig configures tool dispatch.
type ToolsConfig struct {
	// Dir holds the <name>_cli executables. Relative to BaseDir.
	Dir            string `yaml:"dir"`
	TimeoutSec     int    `yaml:"timeout_sec"`
	MaxOutputBytes int    `yaml:"max_output_bytes"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// Load reads configuration from a YAML file. Values not in the file keep
// their defaults, ${VAR} references are expanded, and the environment
// overrides are applied last.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.path = path

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:   "gemini",
			Name:       "gemini-1.5-flash",
			TimeoutSec: 30,
		},
		Agent: AgentConfig{
			MaxHistory: 10,
			Template:   "assistant",
			Locale:     "en",
		},
		Tools: ToolsConfig{
			TimeoutSec:     15,
			MaxOutputBytes: 256 * 1024,
		},
		Listen:    ListenConfig{Port: 8080},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// ApplyEnv overrides settings from the environment variables used by
// existing .env based deployments.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Model.APIKey = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Model.Name = v
	}
	if v := os.Getenv(EnvMaxHistory); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxHistory, err)
		}
		c.Agent.MaxHistory = n
	}
	return nil
}

// Path returns the file the config was loaded from, or "".
func (c *Config) Path() string {
	return c.path
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	var errs []error

	switch c.Model.Provider {
	case "gemini", "anthropic":
		key := strings.TrimSpace(c.Model.APIKey)
		if key == "" {
			errs = append(errs, fmt.Errorf("model.api_key is required for provider %s (or set %s)", c.Model.Provider, EnvAPIKey))
		} else if strings.Contains(key, placeholderKey) {
			errs = append(errs, fmt.Errorf("model.api_key is still the placeholder %q", placeholderKey))
		}
	case "ollama":
	default:
		errs = append(errs, fmt.Errorf("model.provider %q is not one of gemini, ollama, anthropic", c.Model.Provider))
	}

	if c.Model.TimeoutSec < 0 {
		errs = append(errs, fmt.Errorf("model.timeout_sec must not be negative"))
	}
	if c.Agent.MaxHistory < 1 {
		errs = append(errs, fmt.Errorf("agent.max_history must be at least 1, got %d", c.Agent.MaxHistory))
	}
	switch c.Agent.Locale {
	case "en", "zh":
	default:
		errs = append(errs, fmt.Errorf("agent.locale %q is not one of en, zh", c.Agent.Locale))
	}
	if c.Tools.TimeoutSec < 0 {
		errs = append(errs, fmt.Errorf("tools.timeout_sec must not be negative"))
	}
	if c.Tools.MaxOutputBytes < 0 {
		errs = append(errs, fmt.Errorf("tools.max_output_bytes must not be negative"))
	}
	if c.Listen.Port < 0 || c.Listen.Port > 65535 {
		errs = append(errs, fmt.Errorf("listen.port %d out of range", c.Listen.Port))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q is not one of text, json", c.LogFormat))
	}

	return errors.Join(errs...)
}

// ModelTimeout returns the per-call model timeout.
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.Model.TimeoutSec) * time.Second
}

// ToolTimeout returns the per-invocation tool timeout.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Tools.TimeoutSec) * time.Second
}

// ListenAddr returns the host:port for the API server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Listen.Address, c.Listen.Port)
}

// Layout resolves the directory layout. The base directory defaults to
// the config file's directory, then to the working directory.
func (c *Config) Layout() (paths.Layout, error) {
	base := c.BaseDir
	switch {
	case base != "" && c.path != "" && !filepath.IsAbs(paths.ExpandHome(base)):
		base = filepath.Join(filepath.Dir(c.path), base)
	case base == "" && c.path != "":
		base = filepath.Dir(c.path)
	case base == "":
		base = "."
	}
	return paths.Resolve(base, paths.Layout{
		Tools:     c.Tools.Dir,
		Templates: c.TemplatesDir,
		Data:      c.DataDir,
	})
}
