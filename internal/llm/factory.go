package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/dejavu/internal/shared"
)

// NewGenerator builds the backend named by cfg.Provider. An empty provider selects Gemini.
func NewGenerator(ctx context.Context, cfg shared.LLMConfig) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: llm api_key is required", shared.ErrMissingCredentials)
	}

	switch provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider {
	case "", "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "claude", "anthropic":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("%w: unsupported llm provider: %s", shared.ErrInvalidConfig, provider)
	}
}
