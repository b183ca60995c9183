package protocol

import (
	"bytes"
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Scan limits. Model output is normally a few kilobytes; the limits only
// matter for adversarial or runaway text.
const (
	// MaxScanBytes is how much of the input is searched for JSON candidates.
	MaxScanBytes = 256 * 1024

	// MaxCandidateBytes bounds a single candidate decode.
	MaxCandidateBytes = 64 * 1024

	// MaxCandidates bounds the number of decode attempts (opening braces).
	MaxCandidates = 512
)

// Legacy discriminator values.
const (
	legacyToolCall = "tool_call"
	legacyFinal    = "final"
)

var (
	toolTag  = regexp.MustCompile(`(?s)<tool>(.*?)</tool>`)
	argsTag  = regexp.MustCompile(`(?s)<args>(.*?)</args>`)
	replyTag = regexp.MustCompile(`(?s)<reply>(.*?)</reply>`)
)

// Decode recovers the model's intent from raw output text. The text may
// contain prose, code fences, several JSON fragments, or malformed JSON.
//
// Every opening brace starts a candidate decode; failures are skipped. The
// decoded objects are then classified by a fixed priority table, so the
// position of an object in the text never changes which rule wins:
//
//  1. "tool_calls" holding at least one valid record
//  2. "reply" holding non-empty text
//  3. a legacy "type" discriminator ("tool_call" or "final"); the first
//     such object decides the result even when it is incomplete
//  4. objects without "type" or "tool_calls": "tool"+"args" or "reply"
//  5. the tag grammar anywhere in the text
//
// Rule 1 considers every decoded object, including objects nested inside
// another one. Rules 2 to 4 only consider outermost objects, so a "reply"
// key inside a tool call's arguments is never taken as an answer.
//
// Decode never fails; anything unrecognized is Unparseable.
func Decode(raw string) Response {
	objs := candidates(raw)

	for _, c := range objs {
		if calls := toolCallRecords(c.obj.Get("tool_calls")); len(calls) > 0 {
			return toolCallsResponse(calls)
		}
	}

	var outer []candidate
	for _, c := range objs {
		if !c.nested {
			outer = append(outer, c)
		}
	}

	for _, c := range outer {
		obj := c.obj
		if reply := obj.Get("reply"); reply.Type == gjson.String {
			if text := strings.TrimSpace(reply.Str); text != "" {
				return finalResponse(text)
			}
		}
	}

	for _, c := range outer {
		obj := c.obj
		kind := obj.Get("type")
		if kind.Type != gjson.String {
			continue
		}
		switch kind.Str {
		case legacyToolCall:
			name := toolName(obj.Get("tool"))
			if name == "" {
				return Response{}
			}
			return toolCallsResponse([]ToolCall{{Tool: name, Args: argText(obj.Get("args"))}})
		case legacyFinal:
			reply := argText(obj.Get("reply"))
			if reply == "" {
				return Response{}
			}
			return finalResponse(reply)
		}
	}

	for _, c := range outer {
		obj := c.obj
		if obj.Get("type").Exists() || obj.Get("tool_calls").Exists() {
			continue
		}
		tool, args := obj.Get("tool"), obj.Get("args")
		if tool.Exists() && args.Exists() {
			if name := toolName(tool); name != "" {
				return toolCallsResponse([]ToolCall{{Tool: name, Args: argText(args)}})
			}
		}
		if reply := obj.Get("reply"); reply.Exists() {
			if text := argText(reply); text != "" {
				return finalResponse(text)
			}
		}
	}

	return decodeTags(raw)
}

// candidate is one object decoded from the model output. nested is set
// when it starts inside an outermost object decoded earlier.
type candidate struct {
	obj    gjson.Result
	nested bool
}

// candidates decodes one JSON value at every opening brace of text and
// returns the objects that decoded cleanly, in scan order.
func candidates(text string) []candidate {
	if len(text) > MaxScanBytes {
		text = text[:MaxScanBytes]
	}

	var objs []candidate
	coveredEnd := 0 // end offset of the last outermost object
	attempts := 0
	for i := strings.IndexByte(text, '{'); i >= 0 && attempts < MaxCandidates; {
		attempts++

		dec := json.NewDecoder(io.LimitReader(strings.NewReader(text[i:]), MaxCandidateBytes))
		var value json.RawMessage
		if err := dec.Decode(&value); err == nil {
			nested := i < coveredEnd
			if !nested {
				coveredEnd = i + int(dec.InputOffset())
			}
			objs = append(objs, candidate{obj: gjson.ParseBytes(value), nested: nested})
		}

		next := strings.IndexByte(text[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return objs
}

// toolCallRecords returns the valid records of a "tool_calls" array.
// Records without a tool name are dropped.
func toolCallRecords(field gjson.Result) []ToolCall {
	if !field.IsArray() {
		return nil
	}
	var calls []ToolCall
	for _, rec := range field.Array() {
		if !rec.IsObject() {
			continue
		}
		name := toolName(rec.Get("tool"))
		if name == "" {
			continue
		}
		calls = append(calls, ToolCall{Tool: name, Args: argText(rec.Get("args"))})
	}
	return calls
}

// toolName accepts only string names.
func toolName(v gjson.Result) string {
	if v.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(v.Str)
}

// argText coerces any JSON value to trimmed text. Strings are taken as-is,
// null and missing values become empty, everything else is compact JSON.
func argText(v gjson.Result) string {
	switch {
	case !v.Exists(), v.Type == gjson.Null:
		return ""
	case v.Type == gjson.String:
		return strings.TrimSpace(v.Str)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(v.Raw)); err != nil {
		return strings.TrimSpace(v.Raw)
	}
	return buf.String()
}

// decodeTags implements the oldest, tag-delimited grammar.
func decodeTags(raw string) Response {
	tool := toolTag.FindStringSubmatch(raw)
	args := argsTag.FindStringSubmatch(raw)
	if tool != nil && args != nil {
		if name := strings.TrimSpace(tool[1]); name != "" {
			return toolCallsResponse([]ToolCall{{Tool: name, Args: strings.TrimSpace(args[1])}})
		}
	}

	if reply := replyTag.FindStringSubmatch(raw); reply != nil {
		if text := strings.TrimSpace(reply[1]); text != "" {
			return finalResponse(text)
		}
	}

	return Response{}
}
