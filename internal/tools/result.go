package tools

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Result is the outcome of one tool invocation. It is always a value:
// every failure mode (missing tool, timeout, crash, bad output) is
// reported through Success and Error so the model can see it.
type Result struct {
	Success bool

	// Error describes the failure when Success is false.
	Error string

	// RawOutput is the tool's stdout when it could not be used as-is.
	RawOutput string

	// Document is the JSON object the tool printed, verbatim.
	Document json.RawMessage
}

type failureDoc struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	RawOutput string `json:"raw_output,omitempty"`
}

// MarshalJSON renders the tool's own document when there is one and a
// {"success":false,"error":...} object otherwise.
func (r Result) MarshalJSON() ([]byte, error) {
	if len(r.Document) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, r.Document); err == nil {
			return buf.Bytes(), nil
		}
	}
	return marshalNoEscape(failureDoc{
		Success:   r.Success,
		Error:     r.Error,
		RawOutput: r.RawOutput,
	})
}

// JSON returns the result as a single-line JSON string.
func (r Result) JSON() string {
	b, err := r.MarshalJSON()
	if err != nil {
		return `{"success":false,"error":"unencodable result"}`
	}
	return string(b)
}

// Field returns a top-level field of the tool's document, for callers
// that want to inspect tool data without a schema.
func (r Result) Field(path string) gjson.Result {
	return gjson.GetBytes(r.Document, path)
}

func failure(msg, raw string) Result {
	return Result{Error: msg, RawOutput: raw}
}

// documentResult reads a decoded tool document field by field. A missing
// "success" on a clean exit counts as success.
func documentResult(doc []byte, raw string) Result {
	parsed := gjson.ParseBytes(doc)
	if !parsed.IsObject() {
		return failure(errNonJSON, raw)
	}

	res := Result{Success: true, Document: doc}
	if ok := parsed.Get("success"); ok.Exists() {
		res.Success = ok.Bool()
	}
	if !res.Success {
		res.Error = firstString(parsed, "error", "message")
		if res.Error == "" {
			res.Error = "tool reported failure"
		}
	}
	return res
}

func firstString(obj gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := obj.Get(k); v.Exists() && v.Type != gjson.Null {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

// maxExtractAttempts bounds the brace positions tried by extractJSON.
const maxExtractAttempts = 256

// extractJSON finds the trailing JSON object in tool stdout. Tools may
// print diagnostics before the document; the earliest opening brace from
// which the rest of the output is a single valid JSON value wins.
func extractJSON(stdout string) ([]byte, bool) {
	out := strings.TrimSpace(stdout)
	if !strings.HasSuffix(out, "}") {
		return nil, false
	}
	attempts := 0
	for i := strings.IndexByte(out, '{'); i >= 0 && attempts < maxExtractAttempts; attempts++ {
		if candidate := out[i:]; json.Valid([]byte(candidate)) {
			return []byte(candidate), true
		}
		next := strings.IndexByte(out[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, false
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
