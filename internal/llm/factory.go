package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Provider names accepted by New.
const (
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// Config selects and configures a provider.
type Config struct {
	Provider string
	Model    string
	APIKey   string

	// BaseURL overrides the provider endpoint. Empty uses the default.
	BaseURL string

	// Timeout bounds one model call. Zero uses the provider default.
	Timeout time.Duration
}

// New builds the client for cfg.Provider.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGeminiClient(ctx, cfg, logger)
	case ProviderOllama:
		return NewOllamaClient(cfg, logger), nil
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic: api key is required")
		}
		return NewAnthropicClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}
