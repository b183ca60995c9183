// Package llm provides the model backends the agent talks to.
//
// Every backend takes the conversation window plus a system instruction
// and returns the raw assistant text. Interpreting that text is the
// caller's job.
package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Conversation roles. Anything that is not RoleAssistant is sent as user.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prior turn in the context window.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the interface all model providers implement.
type Client interface {
	// Chat sends the messages with the given system instruction and
	// returns the model's text.
	Chat(ctx context.Context, messages []Message, system string) (string, error)
}

// APIError is returned when a provider answers with a non-success status.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Body)
}

// isAssistant reports whether a role maps to the provider's model side.
func isAssistant(role string) bool {
	return role == RoleAssistant
}
