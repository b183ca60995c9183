// Package agent implements the core agent loop.
//
// One call to [Loop.Chat] takes a user message through as many model
// round trips as needed: each reply is decoded as either a final answer,
// a batch of tool calls whose results are fed back, or something
// unusable, which earns a corrective instruction. The loop always ends
// within [MaxIterations] round trips.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campuskit/secretary/internal/llm"
	"github.com/campuskit/secretary/internal/prompts"
	"github.com/campuskit/secretary/internal/protocol"
	"github.com/campuskit/secretary/internal/tools"
)

// MaxIterations is the number of model round trips allowed per user
// message.
const MaxIterations = 8

// DefaultMaxHistory is the number of recent turns sent to the model.
const DefaultMaxHistory = 10

// FinishReason says how a Chat call ended.
type FinishReason string

const (
	// FinishFinal means the model produced an answer for the user.
	FinishFinal FinishReason = "final"

	// FinishError means the model backend failed. The conversation is
	// kept; the next message starts a fresh set of iterations.
	FinishError FinishReason = "error"

	// FinishExhausted means the iteration budget ran out.
	FinishExhausted FinishReason = "exhausted"
)

// TemplateLoader returns a system instruction template by name.
type TemplateLoader interface {
	Load(name string) (string, error)
}

// Dispatcher runs a named tool. It must report failures in the Result
// rather than panic or block past its own timeout.
type Dispatcher interface {
	Execute(ctx context.Context, name, args string) tools.Result
}

// ToolCallRecord describes one tool invocation made while answering.
type ToolCallRecord struct {
	Tool    string `json:"tool"`
	Args    string `json:"args"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Response is the outcome of one Chat call.
type Response struct {
	// Content is the text for the user: the model's reply, the
	// exhaustion apology, or a system error message.
	Content string `json:"content"`

	Finish     FinishReason     `json:"finish_reason"`
	Iterations int              `json:"iterations"`
	ToolCalls  []ToolCallRecord `json:"tool_calls,omitempty"`
	RequestID  string           `json:"request_id"`

	// Err is the backend error when Finish is FinishError.
	Err error `json:"-"`
}

// Config holds the per-loop settings.
type Config struct {
	// MaxHistory is the context window size in turns. Zero uses
	// DefaultMaxHistory; negative sends the whole conversation.
	MaxHistory int

	// Template names the system instruction template.
	Template string

	// Locale selects the weekday names substituted into the template.
	Locale string

	// Now is the clock used for the template's date and time. Nil uses
	// time.Now.
	Now func() time.Time
}

// Loop is the agent execution loop for one conversation. It is not safe
// for concurrent use.
type Loop struct {
	logger    *slog.Logger
	llm       llm.Client
	templates TemplateLoader
	tools     Dispatcher

	maxHistory int
	template   string
	locale     string
	now        func() time.Time

	conv *Conversation
}

// NewLoop creates a loop with an empty conversation.
func NewLoop(logger *slog.Logger, client llm.Client, templates TemplateLoader, dispatcher Dispatcher, cfg Config) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxHistory == 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	if cfg.Template == "" {
		cfg.Template = prompts.DefaultTemplate
	}
	if cfg.Locale == "" {
		cfg.Locale = prompts.LocaleEN
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Loop{
		logger:     logger.With("component", "agent"),
		llm:        client,
		templates:  templates,
		tools:      dispatcher,
		maxHistory: cfg.MaxHistory,
		template:   cfg.Template,
		locale:     cfg.Locale,
		now:        cfg.Now,
		conv:       NewConversation(),
	}
}

// History returns a copy of the conversation log.
func (l *Loop) History() []Turn {
	return l.conv.Turns()
}

// Chat handles one user message and returns the reply. It never returns
// nil and never fails; backend errors are reported in the Response.
func (l *Loop) Chat(ctx context.Context, input string) *Response {
	resp := &Response{RequestID: generateRequestID()}
	log := l.logger.With("request_id", resp.RequestID)
	start := time.Now()

	l.append(RoleUser, input)
	log.Info("agent loop started", "history", l.conv.Len(), "input_len", len(input))

	for i := 0; i < MaxIterations; i++ {
		resp.Iterations = i + 1

		raw, err := l.roundTrip(ctx)
		if err != nil {
			log.Error("model call failed", "iteration", i, "error", err)
			resp.Content = prompts.BackendErrorReply(err)
			resp.Finish = FinishError
			resp.Err = err
			return resp
		}
		l.append(RoleAssistant, raw)

		decoded := protocol.Decode(raw)
		log.Debug("model responded",
			"iteration", i,
			"kind", decoded.Kind,
			"tools", decoded.ToolNames(),
			"raw_len", len(raw),
		)

		switch decoded.Kind {
		case protocol.Final:
			resp.Content = decoded.Reply
			resp.Finish = FinishFinal
			log.Info("agent loop completed",
				"iterations", resp.Iterations,
				"tool_calls", len(resp.ToolCalls),
				"elapsed", time.Since(start).Round(time.Millisecond),
			)
			return resp

		case protocol.ToolCalls:
			l.append(RoleUser, l.runTools(ctx, log, decoded.Calls, resp))

		default:
			log.Warn("unparseable model output, requesting correction", "iteration", i)
			l.append(RoleUser, prompts.ProtocolCorrection)
		}
	}

	log.Warn("iteration budget exhausted",
		"iterations", MaxIterations,
		"tool_calls", len(resp.ToolCalls),
	)
	resp.Content = prompts.ExhaustedReply
	resp.Finish = FinishExhausted
	return resp
}

// roundTrip renders the system instruction and sends the context window.
// A template that cannot be loaded fails the request like a backend fault.
func (l *Loop) roundTrip(ctx context.Context) (string, error) {
	system, err := l.systemInstruction()
	if err != nil {
		return "", err
	}

	window := l.conv.Window(l.maxHistory)
	messages := make([]llm.Message, len(window))
	for i, t := range window {
		messages[i] = llm.Message{Role: string(t.Role), Content: t.Content}
	}

	return l.llm.Chat(ctx, messages, system)
}

// systemInstruction is recomputed on every iteration so the date and
// time never go stale in a long conversation.
func (l *Loop) systemInstruction() (string, error) {
	tmpl, err := l.templates.Load(l.template)
	if err != nil {
		return "", fmt.Errorf("system instruction: %w", err)
	}
	return prompts.Render(tmpl, prompts.Vars(l.now(), l.locale)), nil
}

// runTools executes the calls in order and returns the combined result
// message for the model.
func (l *Loop) runTools(ctx context.Context, log *slog.Logger, calls []protocol.ToolCall, resp *Response) string {
	lines := make([]string, 0, len(calls))
	for _, call := range calls {
		log.Info("calling tool", "tool", call.Tool, "args", call.Args)

		res := l.tools.Execute(ctx, call.Tool, call.Args)
		resp.ToolCalls = append(resp.ToolCalls, ToolCallRecord{
			Tool:    call.Tool,
			Args:    call.Args,
			Success: res.Success,
			Error:   res.Error,
		})
		lines = append(lines, prompts.ToolResultLine(call.Tool, res.JSON()))
	}
	return strings.Join(lines, "\n")
}

func (l *Loop) append(role Role, content string) {
	l.conv.Append(Turn{Role: role, Content: content, At: l.now()})
}

// generateRequestID returns a short id for correlating the log lines of
// one Chat call.
func generateRequestID() string {
	id := uuid.New()
	return fmt.Sprintf("r_%x", id[:4])
}
