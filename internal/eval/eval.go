// Package eval measures how reliably the agent picks the right tool.
//
// A case is a single user query with the tool the agent is expected to
// call and substrings its arguments must contain. Each case runs
// through a fresh agent loop; the conversation is then searched,
// newest reply first, for a matching tool call.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/campuskit/secretary/internal/agent"
	"github.com/campuskit/secretary/internal/protocol"
	"github.com/campuskit/secretary/internal/tools"
)

// Case is one evaluation scenario.
type Case struct {
	ID             int      `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Query          string   `json:"query" yaml:"query"`
	ExpectedTool   string   `json:"expected_tool" yaml:"expected_tool"`
	ExpectedParams []string `json:"expected_params" yaml:"expected_params"`
}

// Metrics is the outcome of one case.
type Metrics struct {
	ID          int           `json:"id"`
	Name        string        `json:"name"`
	Success     bool          `json:"success"`
	ToolMatch   bool          `json:"tool_match"`
	ParamsMatch bool          `json:"params_match"`
	Duration    time.Duration `json:"duration"`
	Finish      string        `json:"finish_reason,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Summary totals a run.
type Summary struct {
	Total   int     `json:"total"`
	Success int     `json:"success"`
	Failure int     `json:"failure"`
	Rate    float64 `json:"success_rate"`
}

// LoadCases reads cases from a JSON or YAML file, chosen by extension.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cases []Case
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cases)
	default:
		err = json.Unmarshal(data, &cases)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, c := range cases {
		if strings.TrimSpace(c.Query) == "" || strings.TrimSpace(c.ExpectedTool) == "" {
			return nil, fmt.Errorf("case %d (%q): query and expected_tool are required", i, c.Name)
		}
	}
	return cases, nil
}

// Runner evaluates cases.
type Runner struct {
	newLoop func() *agent.Loop
	logger  *slog.Logger
}

// NewRunner creates a runner. newLoop must return a loop with an empty
// conversation on every call.
func NewRunner(newLoop func() *agent.Loop, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{newLoop: newLoop, logger: logger.With("component", "eval")}
}

// Run evaluates every case in order. progress, when non-nil, receives
// each result as it completes.
func (r *Runner) Run(ctx context.Context, cases []Case, progress func(Case, Metrics)) []Metrics {
	results := make([]Metrics, 0, len(cases))
	for _, c := range cases {
		if ctx.Err() != nil {
			break
		}
		m := r.runCase(ctx, c)
		r.logger.Info("eval case finished",
			"id", c.ID,
			"name", c.Name,
			"success", m.Success,
			"duration", m.Duration.Round(time.Millisecond),
		)
		if progress != nil {
			progress(c, m)
		}
		results = append(results, m)
	}
	return results
}

func (r *Runner) runCase(ctx context.Context, c Case) Metrics {
	loop := r.newLoop()
	start := time.Now()
	resp := loop.Chat(ctx, c.Query)

	m := Metrics{
		ID:       c.ID,
		Name:     c.Name,
		Duration: time.Since(start),
		Finish:   string(resp.Finish),
	}
	if resp.Err != nil {
		m.Error = resp.Err.Error()
	}

	call, ok := FindToolCall(loop.History(), c.ExpectedTool)
	if !ok {
		return m
	}
	m.ToolMatch = true
	m.ParamsMatch = ParamsMatch(call.Args, c.ExpectedParams)
	m.Success = m.ToolMatch && m.ParamsMatch
	return m
}

// FindToolCall searches assistant turns newest first for a call to tool.
// Tool names compare case-insensitively.
func FindToolCall(history []agent.Turn, tool string) (protocol.ToolCall, bool) {
	want := tools.CanonicalName(tool)
	for i := len(history) - 1; i >= 0; i-- {
		t := history[i]
		if t.Role != agent.RoleAssistant {
			continue
		}
		resp := protocol.Decode(t.Content)
		if resp.Kind != protocol.ToolCalls {
			continue
		}
		for _, call := range resp.Calls {
			if tools.CanonicalName(call.Tool) == want {
				return call, true
			}
		}
	}
	return protocol.ToolCall{}, false
}

// ParamsMatch reports whether args contains every expected substring.
func ParamsMatch(args string, expected []string) bool {
	for _, p := range expected {
		if !strings.Contains(args, p) {
			return false
		}
	}
	return true
}

// Summarize totals results.
func Summarize(results []Metrics) Summary {
	s := Summary{Total: len(results)}
	for _, m := range results {
		if m.Success {
			s.Success++
		}
	}
	s.Failure = s.Total - s.Success
	if s.Total > 0 {
		s.Rate = float64(s.Success) / float64(s.Total)
	}
	return s
}

// WriteReport prints a per-case table and the summary.
func WriteReport(w io.Writer, results []Metrics) error {
	var b strings.Builder
	for _, m := range results {
		mark := "FAIL"
		if m.Success {
			mark = "PASS"
		}
		fmt.Fprintf(&b, "%-4s #%d %s (tool=%t params=%t, %.2fs)",
			mark, m.ID, m.Name, m.ToolMatch, m.ParamsMatch, m.Duration.Seconds())
		if m.Error != "" {
			fmt.Fprintf(&b, " error: %s", m.Error)
		}
		b.WriteByte('\n')
	}

	s := Summarize(results)
	line := strings.Repeat("=", 30)
	fmt.Fprintf(&b, "%s\nTotal:   %d\nSuccess: %d\nFailure: %d\nRate:    %.2f%%\n%s\n",
		line, s.Total, s.Success, s.Failure, s.Rate*100, line)

	_, err := io.WriteString(w, b.String())
	return err
}
