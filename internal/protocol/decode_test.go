package protocol

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Response
	}{
		{
			name: "empty",
			raw:  "",
			want: Response{},
		},
		{
			name: "plain prose",
			raw:  "Sure, I can help with that.",
			want: Response{},
		},
		{
			name: "final reply",
			raw:  `{"reply": "You have no classes today."}`,
			want: Response{Kind: Final, Reply: "You have no classes today."},
		},
		{
			name: "final reply in code fence with prose",
			raw:  "Here you go:\n```json\n{\"tool_calls\": [], \"reply\": \"Done!\"}\n```\nAnything else?",
			want: Response{Kind: Final, Reply: "Done!"},
		},
		{
			name: "single tool call",
			raw:  `{"tool_calls":[{"tool":"t","args":"a"}]}`,
			want: Response{Kind: ToolCalls, Calls: []ToolCall{{Tool: "t", Args: "a"}}},
		},
		{
			name: "multiple tool calls keep order",
			raw:  `{"tool_calls":[{"tool":"weather","args":"query --date today"},{"tool":"course","args":"query --date today"}],"reply":null}`,
			want: Response{Kind: ToolCalls, Calls: []ToolCall{
				{Tool: "weather", Args: "query --date today"},
				{Tool: "course", Args: "query --date today"},
			}},
		},
		{
			name: "tool calls pre-empt reply in same object",
			raw:  `{"tool_calls":[{"tool":"budget","args":"balance"}],"reply":"Let me check."}`,
			want: Response{Kind: ToolCalls, Calls: []ToolCall{{Tool: "budget", Args: "balance"}}},
		},
		{
			name: "tool calls pre-empt earlier final object",
			raw:  `{"reply":"premature"} {"tool_calls":[{"tool":"budget","args":"balance"}]}`,
			want: Response{Kind: ToolCalls, Calls: []ToolCall{{Tool: "budget", Args: "balance"}}},
		},
		{
			name: "empty tool calls is not a tool call",
			raw:  `{"tool_calls":[]}`,
			want: Response{},
		},
		{
			name: "empty tool calls falls through to reply",
			raw:  `{"tool_calls":[],"reply":"hi"}`,
			want: Response{Kind: Final, Reply: "hi"},
		},
		{
			name: "records without tool name are dropped",
			raw:  `{"tool_calls":[{"args":"x"},{"tool":""},{"tool":"memory","args":"query --keyword exam"}]}`,
			want: Response{Kind: ToolCalls, Calls: []ToolCall{{Tool: "memory", Args: "query --keyword exam"}}},
		},
		{
			name: "all records invalid rejects candidate",
			raw:  `{"tool_calls":[{"args":"x"}]} {"reply":"fallback"}`,
			want: Response{Kind: Final, Reply: "fallback"},
		},
		{
			name: "non-string args are serialized",
			raw:  `{"tool_calls":[{"tool":"schedule","args":{"date": "today"}}]}`,
			want: Response{Kind: ToolCalls, Calls: []ToolCall{{Tool: "schedule", Args: `{"date":"today"}`}}},
		},
		{
			name: "missing args become empty",
			raw:  `{"tool_calls":[{"tool":"budget"}]}`,
			want: Response{Kind: ToolCalls, Calls: []ToolCall{{Tool: "budget", Args: ""}}},
		},
		{
			name: "args and names are trimmed",
			raw:  `{"tool_calls":[{"tool":"  weather ","args":"  query --date today\n"}]}`,
			want: Response{Kind: ToolCalls, Calls: []ToolCall{{Tool: "weather", Args: "query --date today"}}},
		},
		{
			name: "malformed fragment before valid object",
			raw:  `{"reply": "broken" {"reply": "ok"}`,
			want: Response{Kind: Final, Reply: "ok"},
		},
		{
			name: "legacy tool call",
			raw:  `{"type":"tool_call","tool":"weather","args":"query --date today"}`,
			want: Response{Kind: ToolCalls, Calls: []ToolCall{{Tool: "weather", Args: "query --date today"}}},
		},
		{
			name: "legacy final",
			raw:  `{"type":"final","reply":"Bring an umbrella."}`,
			want: Response{Kind: Final, Reply: "Bring an umbrella."},
		},
		{
			name: "legacy final with numeric reply",
			raw:  `{"type":"final","reply":42}`,
			want: Response{Kind: Final, Reply: "42"},
		},
		{
			name: "incomplete legacy discriminator stops the search",
			raw:  `{"type":"tool_call","args":"x"} {"tool":"weather","args":"query"}`,
			want: Response{},
		},
		{
			name: "discriminator beats earlier heuristic object",
			raw:  `{"tool":"course","args":"query"} {"type":"tool_call","tool":"weather","args":"query"}`,
			want: Response{Kind: ToolCalls, Calls: []ToolCall{{Tool: "weather", Args: "query"}}},
		},
		{
			name: "untyped legacy tool call",
			raw:  `I'll look it up: {"tool":"schedule","args":"query --date tomorrow"}`,
			want: Response{Kind: ToolCalls, Calls: []ToolCall{{Tool: "schedule", Args: "query --date tomorrow"}}},
		},
		{
			name: "tool without args key is not a call",
			raw:  `{"tool":"schedule"}`,
			want: Response{},
		},
		{
			name: "tag grammar tool call",
			raw:  "<tool>weather</tool>\n<args>--date today</args>",
			want: Response{Kind: ToolCalls, Calls: []ToolCall{{Tool: "weather", Args: "--date today"}}},
		},
		{
			name: "tag grammar reply",
			raw:  "Thinking...\n<reply>\n  See you at 8!\n</reply>",
			want: Response{Kind: Final, Reply: "See you at 8!"},
		},
		{
			name: "tag grammar tool wins over reply tag",
			raw:  "<reply>wait</reply><tool>budget</tool><args>balance</args>",
			want: Response{Kind: ToolCalls, Calls: []ToolCall{{Tool: "budget", Args: "balance"}}},
		},
		{
			name: "whitespace-only reply is unparseable",
			raw:  `{"reply":"   "}`,
			want: Response{},
		},
		{
			name: "reply nested in legacy args is not an answer",
			raw:  `{"type":"tool_call","tool":"memory","args":{"reply":"x"}}`,
			want: Response{Kind: ToolCalls, Calls: []ToolCall{{Tool: "memory", Args: `{"reply":"x"}`}}},
		},
		{
			name: "reply nested in untyped args is not an answer",
			raw:  `{"tool":"memory","args":{"reply":"x"}}`,
			want: Response{Kind: ToolCalls, Calls: []ToolCall{{Tool: "memory", Args: `{"reply":"x"}`}}},
		},
		{
			name: "nested tool_calls still count",
			raw:  `{"result":{"tool_calls":[{"tool":"weather","args":"query"}]}}`,
			want: Response{Kind: ToolCalls, Calls: []ToolCall{{Tool: "weather", Args: "query"}}},
		},
		{
			name: "object after a closed one is outermost",
			raw:  `{"note":{"reply":"inner"}} {"reply":"outer"}`,
			want: Response{Kind: Final, Reply: "outer"},
		},
		{
			name: "braces inside strings",
			raw:  `{"reply":"use {curly} braces"}`,
			want: Response{Kind: Final, Reply: "use {curly} braces"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.raw)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}

func TestDecode_LegacyTagsMatchModernForm(t *testing.T) {
	legacy := Decode("<tool>weather</tool><args>--date today</args>")
	modern := Decode(`{"tool_calls":[{"tool":"weather","args":"--date today"}]}`)
	if diff := cmp.Diff(modern, legacy); diff != "" {
		t.Errorf("legacy and modern decode differ (-modern +legacy):\n%s", diff)
	}
}

func TestDecode_AdversarialInputTerminates(t *testing.T) {
	// A long run of unmatched braces must not blow up; the valid object
	// at the end is beyond the attempt cap and is intentionally missed.
	raw := strings.Repeat("{", MaxCandidates*4) + `{"reply":"late"}`
	if got := Decode(raw); got.Kind != Unparseable {
		t.Errorf("Decode(adversarial) = %v, want unparseable", got)
	}

	// Within the cap the same object is found.
	raw = strings.Repeat("{ ", 10) + `{"reply":"found"}`
	if got := Decode(raw); got.Kind != Final || got.Reply != "found" {
		t.Errorf("Decode(short run) = %+v, want final(found)", got)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	calls := []ToolCall{
		{Tool: "schedule", Args: `add --date 2024-05-01 --time 14:00 --event "Study group"`},
		{Tool: "budget", Args: "add --amount 25.5 --category food --note <lunch>"},
	}

	wire := EncodeToolCalls(calls)
	got := Decode(wire)
	if got.Kind != ToolCalls {
		t.Fatalf("Decode(EncodeToolCalls) kind = %v, want tool_calls (wire %s)", got.Kind, wire)
	}
	if diff := cmp.Diff(calls, got.Calls); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	if !strings.Contains(wire, `"reply":null`) {
		t.Errorf("EncodeToolCalls = %s, want explicit null reply", wire)
	}
	if !strings.Contains(wire, `--note <lunch>`) || strings.Contains(wire, `\u003c`) {
		t.Errorf("EncodeToolCalls = %s, want unescaped angle brackets", wire)
	}

	final := Decode(EncodeFinal("All set."))
	if final.Kind != Final || final.Reply != "All set." {
		t.Errorf("Decode(EncodeFinal) = %+v, want final(All set.)", final)
	}
}

func TestResponse_String(t *testing.T) {
	tests := []struct {
		resp Response
		want string
	}{
		{Response{}, "unparseable"},
		{Response{Kind: Final, Reply: "hello"}, "final(5 chars)"},
		{Response{Kind: ToolCalls, Calls: []ToolCall{{Tool: "a"}, {Tool: "b"}}}, "tool_calls(a,b)"},
	}
	for _, tt := range tests {
		if got := tt.resp.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
