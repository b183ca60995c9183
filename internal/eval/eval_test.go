package eval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/campuskit/secretary/internal/agent"
	"github.com/campuskit/secretary/internal/llm"
	"github.com/campuskit/secretary/internal/prompts"
	"github.com/campuskit/secretary/internal/protocol"
	"github.com/campuskit/secretary/internal/tools"
)

// scriptLLM answers the first call of a conversation from script, keyed
// by the user query, and every later call with a final reply.
type scriptLLM struct {
	script map[string]string
	fail   map[string]bool
}

func (s scriptLLM) Chat(_ context.Context, msgs []llm.Message, _ string) (string, error) {
	query := msgs[0].Content
	if s.fail[query] {
		return "", errors.New("quota exceeded")
	}
	if len(msgs) == 1 {
		if out, ok := s.script[query]; ok {
			return out, nil
		}
	}
	return protocol.EncodeFinal("done"), nil
}

type okTools struct{}

func (okTools) Execute(context.Context, string, string) tools.Result {
	return tools.Result{Success: true, Document: []byte(`{"success":true}`)}
}

func newRunner(client llm.Client) *Runner {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(func() *agent.Loop {
		return agent.NewLoop(logger, client, prompts.NewLoader(""), okTools{}, agent.Config{})
	}, logger)
}

func TestRunner_Run(t *testing.T) {
	client := scriptLLM{
		script: map[string]string{
			"classes tomorrow?": protocol.EncodeToolCalls([]protocol.ToolCall{
				{Tool: "Course", Args: "query --date tomorrow"},
			}),
			"spent 25 on food": protocol.EncodeToolCalls([]protocol.ToolCall{
				{Tool: "budget", Args: "add --amount 25 --category transport"},
			}),
			"rain?":      `<tool>weather</tool><args>query --date today</args>`,
			"just chat":  protocol.EncodeFinal("hello"),
			"wrong tool": protocol.EncodeToolCalls([]protocol.ToolCall{{Tool: "schedule", Args: "query --date today"}}),
		},
		fail: map[string]bool{"broken": true},
	}
	cases := []Case{
		{ID: 1, Name: "course", Query: "classes tomorrow?", ExpectedTool: "course", ExpectedParams: []string{"tomorrow"}},
		{ID: 2, Name: "budget", Query: "spent 25 on food", ExpectedTool: "budget", ExpectedParams: []string{"25", "food"}},
		{ID: 3, Name: "legacy", Query: "rain?", ExpectedTool: "weather", ExpectedParams: []string{"today"}},
		{ID: 4, Name: "no tool", Query: "just chat", ExpectedTool: "memory"},
		{ID: 5, Name: "wrong tool", Query: "wrong tool", ExpectedTool: "course"},
		{ID: 6, Name: "backend down", Query: "broken", ExpectedTool: "course"},
	}

	var seen []int
	results := newRunner(client).Run(context.Background(), cases, func(c Case, _ Metrics) {
		seen = append(seen, c.ID)
	})

	type outcome struct {
		ID      int
		Success bool
		Tool    bool
		Params  bool
		Error   string
	}
	var got []outcome
	for _, m := range results {
		got = append(got, outcome{m.ID, m.Success, m.ToolMatch, m.ParamsMatch, m.Error})
	}
	want := []outcome{
		{1, true, true, true, ""},
		{2, false, true, false, ""},
		{3, true, true, true, ""},
		{4, false, false, false, ""},
		{5, false, false, false, ""},
		{6, false, false, false, "quota exceeded"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5, 6}, seen); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}

	s := Summarize(results)
	if s.Total != 6 || s.Success != 2 || s.Failure != 4 {
		t.Errorf("summary = %+v", s)
	}
}

func TestFindToolCall_NewestFirst(t *testing.T) {
	history := []agent.Turn{
		{Role: agent.RoleUser, Content: "q"},
		{Role: agent.RoleAssistant, Content: `{"tool_calls":[{"tool":"schedule","args":"query --date today"}]}`},
		{Role: agent.RoleUser, Content: "Tool schedule result: {}"},
		{Role: agent.RoleAssistant, Content: `{"tool_calls":[{"tool":"SCHEDULE","args":"add --date today"}]}`},
		{Role: agent.RoleUser, Content: `{"tool_calls":[{"tool":"schedule","args":"user text"}]}`},
	}
	call, ok := FindToolCall(history, "schedule")
	if !ok {
		t.Fatal("expected a match")
	}
	if call.Args != "add --date today" {
		t.Errorf("Args = %q, want the newest assistant call", call.Args)
	}
}

func TestParamsMatch(t *testing.T) {
	if !ParamsMatch("query --date tomorrow", nil) {
		t.Error("no expectations should match")
	}
	if !ParamsMatch("add --amount 25 --category food", []string{"25", "food"}) {
		t.Error("expected match")
	}
	if ParamsMatch("add --amount 25", []string{"25", "food"}) {
		t.Error("expected mismatch")
	}
}

func TestLoadCases(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "cases.json")
	os.WriteFile(jsonPath, []byte(`[{"id":1,"name":"a","query":"q","expected_tool":"course","expected_params":["today"]}]`), 0o644)
	yamlPath := filepath.Join(dir, "cases.yaml")
	os.WriteFile(yamlPath, []byte("- id: 1\n  name: a\n  query: q\n  expected_tool: course\n  expected_params: [today]\n"), 0o644)

	want := []Case{{ID: 1, Name: "a", Query: "q", ExpectedTool: "course", ExpectedParams: []string{"today"}}}
	for _, path := range []string{jsonPath, yamlPath} {
		got, err := LoadCases(path)
		if err != nil {
			t.Fatalf("LoadCases(%s): %v", filepath.Base(path), err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", filepath.Base(path), diff)
		}
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`[{"id":1,"name":"a"}]`), 0o644)
	if _, err := LoadCases(bad); err == nil {
		t.Error("expected error for a case without query")
	}
}

func TestWriteReport(t *testing.T) {
	var b strings.Builder
	err := WriteReport(&b, []Metrics{
		{ID: 1, Name: "ok", Success: true, ToolMatch: true, ParamsMatch: true},
		{ID: 2, Name: "bad", Error: "boom"},
	})
	if err != nil {
		t.Fatal(err)
	}
	out := b.String()
	for _, want := range []string{"PASS #1 ok", "FAIL #2 bad", "error: boom", "Total:   2", "Rate:    50.00%"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
