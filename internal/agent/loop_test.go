package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/campuskit/secretary/internal/llm"
	"github.com/campuskit/secretary/internal/prompts"
	"github.com/campuskit/secretary/internal/tools"
)

// mockLLM replays scripted responses and records every call. When the
// script runs out it keeps returning fallback.
type mockLLM struct {
	mu        sync.Mutex
	responses []string
	errs      map[int]error
	fallback  string
	calls     []mockLLMCall
}

type mockLLMCall struct {
	Messages []llm.Message
	System   string
}

func (m *mockLLM) Chat(_ context.Context, msgs []llm.Message, system string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := len(m.calls)
	m.calls = append(m.calls, mockLLMCall{Messages: msgs, System: system})

	if err := m.errs[idx]; err != nil {
		return "", err
	}
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	if m.fallback != "" {
		return m.fallback, nil
	}
	return "", fmt.Errorf("mockLLM: no more responses (call %d)", idx)
}

// mockTools returns canned results by tool name and records calls.
type mockTools struct {
	results map[string]tools.Result
	calls   []string
}

func (m *mockTools) Execute(_ context.Context, name, args string) tools.Result {
	m.calls = append(m.calls, name+" "+args)
	if res, ok := m.results[name]; ok {
		return res
	}
	return tools.Result{Error: "tool " + name + " not found"}
}

type mapTemplates map[string]string

func (m mapTemplates) Load(name string) (string, error) {
	if t, ok := m[name]; ok {
		return t, nil
	}
	return "", fmt.Errorf("load template %s: %w", name, prompts.ErrTemplateNotFound)
}

func fixedClock() func() time.Time {
	now := time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func okResult(doc string) tools.Result {
	return tools.Result{Success: true, Document: []byte(doc)}
}

func buildTestLoop(client llm.Client, dispatcher Dispatcher, cfg Config) *Loop {
	if cfg.Now == nil {
		cfg.Now = fixedClock()
	}
	templates := mapTemplates{prompts.DefaultTemplate: "Today is {current_date}, {weekday}, {current_time}."}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLoop(logger, client, templates, dispatcher, cfg)
}

func roles(turns []Turn) []Role {
	out := make([]Role, len(turns))
	for i, t := range turns {
		out[i] = t.Role
	}
	return out
}

func TestChat_FinalOnFirstIteration(t *testing.T) {
	mock := &mockLLM{responses: []string{`{"reply": "Hello! How can I help?"}`}}
	loop := buildTestLoop(mock, &mockTools{}, Config{})

	resp := loop.Chat(context.Background(), "hi")

	if resp.Finish != FinishFinal || resp.Content != "Hello! How can I help?" {
		t.Errorf("resp = %+v, want final greeting", resp)
	}
	if resp.Iterations != 1 || len(mock.calls) != 1 {
		t.Errorf("iterations = %d, calls = %d, want 1 and 1", resp.Iterations, len(mock.calls))
	}

	history := loop.History()
	if diff := cmp.Diff([]Role{RoleUser, RoleAssistant}, roles(history)); diff != "" {
		t.Errorf("roles mismatch (-want +got):\n%s", diff)
	}
	if history[1].Content != `{"reply": "Hello! How can I help?"}` {
		t.Errorf("assistant turn = %q, want raw model output", history[1].Content)
	}
	if want := "Today is 2024-05-01, Wednesday, 14:30."; mock.calls[0].System != want {
		t.Errorf("system = %q, want %q", mock.calls[0].System, want)
	}
}

func TestChat_ExhaustsAfterMaxIterations(t *testing.T) {
	mock := &mockLLM{fallback: "I am not sure what format you want."}
	loop := buildTestLoop(mock, &mockTools{}, Config{MaxHistory: -1})

	resp := loop.Chat(context.Background(), "what's on today?")

	if resp.Finish != FinishExhausted || resp.Content != prompts.ExhaustedReply {
		t.Errorf("resp = %+v, want exhaustion apology", resp)
	}
	if len(mock.calls) != MaxIterations || resp.Iterations != MaxIterations {
		t.Errorf("calls = %d, iterations = %d, want %d", len(mock.calls), resp.Iterations, MaxIterations)
	}

	history := loop.History()
	if len(history) != 1+2*MaxIterations {
		t.Fatalf("history has %d turns, want %d", len(history), 1+2*MaxIterations)
	}
	for i := 1; i < len(history); i += 2 {
		if history[i].Role != RoleAssistant {
			t.Errorf("turn %d role = %s, want assistant", i, history[i].Role)
		}
		if history[i+1].Role != RoleUser || history[i+1].Content != prompts.ProtocolCorrection {
			t.Errorf("turn %d = %+v, want corrective user turn", i+1, history[i+1])
		}
	}
}

func TestChat_ToolCallsThenFinal(t *testing.T) {
	mock := &mockLLM{responses: []string{
		`{"tool_calls":[{"tool":"weather","args":"query --date today"},{"tool":"course","args":"query --date today"}],"reply":null}`,
		`{"reply":"Two classes and rain later."}`,
	}}
	disp := &mockTools{results: map[string]tools.Result{
		"weather": okResult(`{"success":true,"condition":"rain"}`),
		"course":  okResult(`{"success":true,"courses":[]}`),
	}}
	loop := buildTestLoop(mock, disp, Config{})

	resp := loop.Chat(context.Background(), "what's today like?")

	if resp.Finish != FinishFinal || resp.Content != "Two classes and rain later." {
		t.Fatalf("resp = %+v", resp)
	}
	if diff := cmp.Diff([]string{"weather query --date today", "course query --date today"}, disp.calls); diff != "" {
		t.Errorf("tool calls mismatch (-want +got):\n%s", diff)
	}

	history := loop.History()
	if diff := cmp.Diff([]Role{RoleUser, RoleAssistant, RoleUser, RoleAssistant}, roles(history)); diff != "" {
		t.Fatalf("roles mismatch (-want +got):\n%s", diff)
	}
	wantResults := `Tool weather result: {"success":true,"condition":"rain"}` + "\n" +
		`Tool course result: {"success":true,"courses":[]}`
	if history[2].Content != wantResults {
		t.Errorf("tool result turn = %q, want %q", history[2].Content, wantResults)
	}

	// The second model call must see the tool results.
	second := mock.calls[1].Messages
	if last := second[len(second)-1]; last.Role != "user" || last.Content != wantResults {
		t.Errorf("second call last message = %+v", last)
	}

	wantRecords := []ToolCallRecord{
		{Tool: "weather", Args: "query --date today", Success: true},
		{Tool: "course", Args: "query --date today", Success: true},
	}
	if diff := cmp.Diff(wantRecords, resp.ToolCalls); diff != "" {
		t.Errorf("tool records mismatch (-want +got):\n%s", diff)
	}
}

func TestChat_PartialToolFailure(t *testing.T) {
	mock := &mockLLM{responses: []string{
		`{"tool_calls":[{"tool":"nosuch","args":"x"},{"tool":"budget","args":"balance"}]}`,
		`{"reply":"Your balance is 1200."}`,
	}}
	disp := &mockTools{results: map[string]tools.Result{
		"budget": okResult(`{"success":true,"balance":1200}`),
	}}
	loop := buildTestLoop(mock, disp, Config{})

	resp := loop.Chat(context.Background(), "balance?")

	if resp.Finish != FinishFinal {
		t.Fatalf("Finish = %s, want final", resp.Finish)
	}
	if len(disp.calls) != 2 {
		t.Fatalf("dispatched %d calls, want 2 (failure must not stop the batch)", len(disp.calls))
	}
	history := loop.History()
	lines := strings.Split(history[2].Content, "\n")
	if len(lines) != 2 {
		t.Fatalf("tool result turn has %d lines, want 2", len(lines))
	}
	if lines[0] != `Tool nosuch result: {"success":false,"error":"tool nosuch not found"}` {
		t.Errorf("failure line = %q", lines[0])
	}
	if resp.ToolCalls[0].Success || resp.ToolCalls[0].Error == "" {
		t.Errorf("first record = %+v, want failure", resp.ToolCalls[0])
	}
}

func TestChat_SelfCorrectionRecovers(t *testing.T) {
	mock := &mockLLM{responses: []string{
		"Sure! You have a lecture at 10.",
		`{"reply":"You have a lecture at 10."}`,
	}}
	loop := buildTestLoop(mock, &mockTools{}, Config{})

	resp := loop.Chat(context.Background(), "next class?")

	if resp.Finish != FinishFinal || resp.Iterations != 2 {
		t.Fatalf("resp = %+v, want final after 2 iterations", resp)
	}
	second := mock.calls[1].Messages
	if last := second[len(second)-1]; last.Content != prompts.ProtocolCorrection {
		t.Errorf("second call last message = %q, want correction", last.Content)
	}
}

func TestChat_LegacyFormsAccepted(t *testing.T) {
	mock := &mockLLM{responses: []string{
		"<tool>schedule</tool>\n<args>query --date today</args>",
		`{"type":"final","reply":"Nothing scheduled."}`,
	}}
	disp := &mockTools{results: map[string]tools.Result{"schedule": okResult(`{"success":true,"events":[]}`)}}
	loop := buildTestLoop(mock, disp, Config{})

	resp := loop.Chat(context.Background(), "schedule today")

	if resp.Content != "Nothing scheduled." {
		t.Errorf("Content = %q", resp.Content)
	}
	if diff := cmp.Diff([]string{"schedule query --date today"}, disp.calls); diff != "" {
		t.Errorf("tool calls mismatch (-want +got):\n%s", diff)
	}
}

func TestChat_ContextWindow(t *testing.T) {
	mock := &mockLLM{fallback: `{"reply":"ok"}`}
	loop := buildTestLoop(mock, &mockTools{}, Config{MaxHistory: 3})

	for _, msg := range []string{"one", "two", "three"} {
		loop.Chat(context.Background(), msg)
	}

	// Third call: history is [one, ok, two, ok, three]; the window is the last 3.
	got := mock.calls[2].Messages
	want := []llm.Message{
		{Role: "user", Content: "two"},
		{Role: "assistant", Content: `{"reply":"ok"}`},
		{Role: "user", Content: "three"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("window mismatch (-want +got):\n%s", diff)
	}
	if n := len(loop.History()); n != 6 {
		t.Errorf("history has %d turns, want 6", n)
	}
}

func TestChat_BackendError(t *testing.T) {
	mock := &mockLLM{
		responses: []string{"", `{"reply":"back online"}`},
		errs:      map[int]error{0: errors.New("connection refused")},
	}
	loop := buildTestLoop(mock, &mockTools{}, Config{})

	resp := loop.Chat(context.Background(), "hello?")

	if resp.Finish != FinishError {
		t.Fatalf("Finish = %s, want error", resp.Finish)
	}
	if resp.Content != "System error: model call failed - connection refused" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Err == nil {
		t.Error("Err is nil, want backend error")
	}
	if diff := cmp.Diff([]Role{RoleUser}, roles(loop.History())); diff != "" {
		t.Errorf("no assistant turn may be appended on failure (-want +got):\n%s", diff)
	}

	// The conversation survives and the next message starts fresh.
	resp = loop.Chat(context.Background(), "still there?")
	if resp.Finish != FinishFinal || resp.Iterations != 1 {
		t.Errorf("resp = %+v, want final on first iteration", resp)
	}
	if diff := cmp.Diff([]Role{RoleUser, RoleUser, RoleAssistant}, roles(loop.History())); diff != "" {
		t.Errorf("roles mismatch (-want +got):\n%s", diff)
	}
}

func TestChat_MissingTemplateIsTerminal(t *testing.T) {
	mock := &mockLLM{fallback: `{"reply":"unused"}`}
	loop := buildTestLoop(mock, &mockTools{}, Config{Template: "nonexistent"})

	resp := loop.Chat(context.Background(), "hi")

	if resp.Finish != FinishError {
		t.Fatalf("Finish = %s, want error", resp.Finish)
	}
	if !errors.Is(resp.Err, prompts.ErrTemplateNotFound) {
		t.Errorf("Err = %v, want ErrTemplateNotFound", resp.Err)
	}
	if len(mock.calls) != 0 {
		t.Errorf("model called %d times, want 0", len(mock.calls))
	}
}

func TestChat_SystemInstructionRecomputedEachIteration(t *testing.T) {
	now := time.Date(2024, 5, 5, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		t := now
		now = now.Add(time.Minute)
		return t
	}
	mock := &mockLLM{responses: []string{"garbage", `{"reply":"done"}`}}
	loop := buildTestLoop(mock, &mockTools{}, Config{Now: clock, Locale: prompts.LocaleZH})

	loop.Chat(context.Background(), "hi")

	if len(mock.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(mock.calls))
	}
	if mock.calls[0].System == mock.calls[1].System {
		t.Errorf("system instruction not recomputed: %q", mock.calls[0].System)
	}
	if !strings.Contains(mock.calls[0].System, "2024-05-05, 日") {
		t.Errorf("first system = %q, want Sunday in zh", mock.calls[0].System)
	}
}

func TestGenerateRequestID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateRequestID()
		if !strings.HasPrefix(id, "r_") || len(id) != 10 {
			t.Fatalf("request ID %q, want r_ + 8 hex chars", id)
		}
		if seen[id] {
			t.Errorf("duplicate request ID %q after %d iterations", id, i)
		}
		seen[id] = true
	}
}
