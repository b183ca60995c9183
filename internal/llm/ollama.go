package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/campuskit/secretary/internal/httpkit"
)

const (
	defaultOllamaURL     = "http://localhost:11434"
	defaultOllamaTimeout = 5 * time.Minute
)

// OllamaClient is a client for a local Ollama server.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(cfg Config, logger *slog.Logger) *OllamaClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaURL
	}
	if cfg.Timeout <= 0 {
		// Local models on modest hardware are slow.
		cfg.Timeout = defaultOllamaTimeout
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: httpkit.NewClient(httpkit.WithTimeout(cfg.Timeout)),
		logger:     logger.With("provider", ProviderOllama),
	}
}

type ollamaRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaResponse struct {
	Model     string  `json:"model"`
	Message   Message `json:"message"`
	Done      bool    `json:"done"`
	EvalCount int     `json:"eval_count,omitempty"`
}

// Chat sends a non-streaming /api/chat request. The system instruction
// travels as a leading system message.
func (c *OllamaClient) Chat(ctx context.Context, messages []Message, system string) (string, error) {
	req := ollamaRequest{
		Model:    c.model,
		Messages: toOllamaMessages(messages, system),
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	c.logger.Log(ctx, LevelTrace, "request payload", "json", string(jsonData))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 4096)
		c.logger.Error("API error", "status", resp.StatusCode, "body", body)
		return "", &APIError{Provider: ProviderOllama, StatusCode: resp.StatusCode, Body: body}
	}

	var chatResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("response received",
		"model", chatResp.Model,
		"eval_count", chatResp.EvalCount,
	)
	return chatResp.Message.Content, nil
}

func toOllamaMessages(messages []Message, system string) []Message {
	out := make([]Message, 0, len(messages)+1)
	if system != "" {
		out = append(out, Message{Role: "system", Content: system})
	}
	for _, m := range messages {
		role := RoleUser
		if isAssistant(m.Role) {
			role = RoleAssistant
		}
		out = append(out, Message{Role: role, Content: m.Content})
	}
	return out
}
