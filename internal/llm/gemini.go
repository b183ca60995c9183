package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/campuskit/secretary/internal/httpkit"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

const defaultGeminiTimeout = 30 * time.Second

// GeminiClient talks to the Gemini API through the genai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiClient creates a Gemini client. An API key is required.
func NewGeminiClient(ctx context.Context, cfg Config, logger *slog.Logger) (*GeminiClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultGeminiTimeout
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpkit.NewClient(httpkit.WithTimeout(cfg.Timeout)),
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  cfg.Model,
		logger: logger.With("provider", ProviderGemini),
	}, nil
}

// Chat sends one generateContent request.
func (c *GeminiClient) Chat(ctx context.Context, messages []Message, system string) (string, error) {
	var config *genai.GenerateContentConfig
	if system != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		}
	}

	c.logger.Debug("preparing request",
		"model", c.model,
		"messages", len(messages),
		"system_len", len(system),
	)

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, toGeminiContents(messages), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text, err := geminiText(resp)
	if err != nil {
		return "", err
	}

	c.logger.Debug("response received",
		"model", c.model,
		"chars", len(text),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	c.logger.Log(ctx, LevelTrace, "response content", "content", text)
	return text, nil
}

// toGeminiContents maps the context window onto Gemini's two roles.
func toGeminiContents(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		var role genai.Role = genai.RoleUser
		if isAssistant(m.Role) {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

// geminiText extracts the first candidate's text. A candidate that ends
// without text reports its finish reason as text so the agent can react
// to it like any other unusable reply.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", errors.New("gemini: response has no candidates")
	}
	cand := resp.Candidates[0]

	var b strings.Builder
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p == nil || p.Thought {
				continue
			}
			b.WriteString(p.Text)
		}
	}
	if b.Len() > 0 {
		return b.String(), nil
	}
	if cand.FinishReason != "" {
		return fmt.Sprintf("[API finish reason: %s]", cand.FinishReason), nil
	}
	return "", errors.New("gemini: candidate has no text")
}
