// Package protocol implements the structured-response wire protocol spoken
// between the agent and the model.
//
// The current format is a single JSON object:
//
//	{"tool_calls": [{"tool": "<name>", "args": "<string>"}], "reply": null}
//	{"reply": "<text for the user>"}
//
// Two older forms are still accepted on input: the single-call object with a
// "type" discriminator ({"type":"tool_call",...} / {"type":"final",...}) and
// the tag grammar (<tool>..</tool><args>..</args> / <reply>..</reply>).
// Output is always produced in the current format.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind classifies a decoded model message.
type Kind int

const (
	// Unparseable means no recognizable intent was found.
	Unparseable Kind = iota

	// Final carries the reply for the user. The turn is over.
	Final

	// ToolCalls carries one or more tool invocations to run before the
	// model is asked again.
	ToolCalls
)

// String returns the lowercase name of the kind, for logs.
func (k Kind) String() string {
	switch k {
	case Final:
		return "final"
	case ToolCalls:
		return "tool_calls"
	default:
		return "unparseable"
	}
}

// ToolCall is one requested tool invocation. Args is opaque text handed to
// the tool's own argument parser.
type ToolCall struct {
	Tool string `json:"tool"`
	Args string `json:"args"`
}

// Response is the classified result of decoding a model message. Exactly
// one of Reply (Kind == Final) or Calls (Kind == ToolCalls) is meaningful.
type Response struct {
	Kind  Kind
	Reply string
	Calls []ToolCall
}

// String summarizes the response for logging.
func (r Response) String() string {
	switch r.Kind {
	case Final:
		return fmt.Sprintf("final(%d chars)", len(r.Reply))
	case ToolCalls:
		names := make([]string, len(r.Calls))
		for i, c := range r.Calls {
			names[i] = c.Tool
		}
		return "tool_calls(" + strings.Join(names, ",") + ")"
	default:
		return "unparseable"
	}
}

// ToolNames returns the tool names of a ToolCalls response in order.
func (r Response) ToolNames() []string {
	if r.Kind != ToolCalls {
		return nil
	}
	names := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		names[i] = c.Tool
	}
	return names
}

func finalResponse(reply string) Response {
	return Response{Kind: Final, Reply: reply}
}

func toolCallsResponse(calls []ToolCall) Response {
	return Response{Kind: ToolCalls, Calls: calls}
}

// wireMessage is the current on-the-wire shape.
type wireMessage struct {
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Reply     *string    `json:"reply"`
}

// EncodeToolCalls renders calls in the current wire format. Decoding the
// result yields the same tool names and (trimmed) argument text.
func EncodeToolCalls(calls []ToolCall) string {
	if calls == nil {
		calls = []ToolCall{}
	}
	return encode(wireMessage{ToolCalls: calls})
}

// EncodeFinal renders a final reply in the current wire format.
func EncodeFinal(reply string) string {
	return encode(wireMessage{Reply: &reply})
}

func encode(m wireMessage) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Only strings and slices of strings; Encode cannot fail here.
	_ = enc.Encode(m)
	return strings.TrimRight(buf.String(), "\n")
}
