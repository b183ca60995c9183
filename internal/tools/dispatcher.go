// Package tools runs the local command-line data tools the agent calls.
//
// A tool named "schedule" is the executable "schedule_cli" in the tools
// directory. It receives the model's argument text through the shell and
// prints one JSON document on stdout.
package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Defaults for [Config].
const (
	DefaultTimeout        = 15 * time.Second
	DefaultMaxOutputBytes = 256 * 1024

	// ExecutableSuffix is appended to a tool name to form its file name.
	ExecutableSuffix = "_cli"

	// DataDirEnv carries the tool-data directory to every child process.
	DataDirEnv = "SECRETARY_DATA_DIR"
)

const errNonJSON = "non-standard JSON output"

// waitDelay bounds how long Wait blocks on output pipes after the tool
// process has been killed.
const waitDelay = 2 * time.Second

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Config configures a Dispatcher.
type Config struct {
	// Dir is the only directory searched for tool executables.
	Dir string

	// DataDir is exported to tools as SECRETARY_DATA_DIR when set.
	DataDir string

	Timeout        time.Duration
	MaxOutputBytes int
}

// Dispatcher resolves tool names to executables and runs them.
type Dispatcher struct {
	logger         *slog.Logger
	dir            string
	dataDir        string
	timeout        time.Duration
	maxOutputBytes int
}

// NewDispatcher creates a dispatcher. Zero timeout and output limits take
// their defaults.
func NewDispatcher(cfg Config, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = DefaultMaxOutputBytes
	}
	return &Dispatcher{
		logger:         logger.With("component", "tools"),
		dir:            cfg.Dir,
		dataDir:        cfg.DataDir,
		timeout:        cfg.Timeout,
		maxOutputBytes: cfg.MaxOutputBytes,
	}
}

// Timeout returns the per-invocation wall-clock limit.
func (d *Dispatcher) Timeout() time.Duration {
	return d.timeout
}

// CanonicalName normalizes a tool name as the model wrote it. Tool names
// are case-insensitive.
func CanonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Resolve returns the executable path for a tool name.
func (d *Dispatcher) Resolve(name string) (string, error) {
	canon := CanonicalName(name)
	if !validName.MatchString(canon) || d.dir == "" {
		return "", &ErrToolNotFound{ToolName: name}
	}
	path := filepath.Join(d.dir, canon+ExecutableSuffix)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", &ErrToolNotFound{ToolName: name}
	}
	return path, nil
}

// List returns the names of the tools present in the tools directory.
func (d *Dispatcher) List() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("read tools dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := strings.CutSuffix(e.Name(), ExecutableSuffix)
		if ok && validName.MatchString(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Execute runs one tool with the given argument text. It never fails:
// every problem is reported in the returned Result.
func (d *Dispatcher) Execute(ctx context.Context, name, args string) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool dispatch panicked", "tool", name, "panic", r)
			res = failure(fmt.Sprintf("tool %s crashed: %v", name, r), "")
		}
	}()

	path, err := d.Resolve(name)
	if err != nil {
		d.logger.Warn("tool not found", "tool", name, "dir", d.dir)
		return failure(err.Error(), "")
	}

	res = d.run(ctx, name, path, args)

	level := slog.LevelDebug
	if !res.Success {
		level = slog.LevelWarn
	}
	d.logger.Log(ctx, level, "tool executed",
		"tool", name,
		"success", res.Success,
		"error", res.Error,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return res
}

func (d *Dispatcher) run(ctx context.Context, name, path, args string) Result {
	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", shellQuote(path)+" "+args)
	cmd.Env = os.Environ()
	if d.dataDir != "" {
		cmd.Env = append(cmd.Env, DataDirEnv+"="+d.dataDir)
	}
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	stdout := &cappedBuffer{max: d.maxOutputBytes}
	stderr := &cappedBuffer{max: d.maxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	out := stdout.String()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return failure(fmt.Sprintf("tool %s timed out after %s", name, d.timeout), out)
	}
	if ctx.Err() != nil {
		return failure(fmt.Sprintf("tool %s interrupted: %v", name, ctx.Err()), out)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = fmt.Sprintf("tool %s exited with status %d", name, exitErr.ExitCode())
			}
			return failure(msg, out)
		}
		return failure(fmt.Sprintf("run tool %s: %v", name, err), out)
	}

	if stdout.truncated {
		return failure(fmt.Sprintf("tool %s output exceeded %d bytes", name, d.maxOutputBytes), out)
	}

	doc, ok := extractJSON(out)
	if !ok {
		return failure(errNonJSON, out)
	}
	return documentResult(doc, out)
}

// shellQuote wraps s in single quotes for sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// cappedBuffer keeps the first max bytes written to it and silently
// discards the rest, so a chatty tool cannot exhaust memory or block.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	room := c.max - c.buf.Len()
	if room <= 0 {
		c.truncated = c.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > room {
		c.buf.Write(p[:room])
		c.truncated = true
		return len(p), nil
	}
	c.buf.Write(p)
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	return c.buf.String()
}
