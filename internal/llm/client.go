// Package llm wraps the text-generation backends used for free-text similarity suggestions.
//
// Every backend implements [Generator]; [NewGenerator] selects one from configuration.
package llm

import (
	"context"
)

// Generator produces a single text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Default models per provider, used when the configuration leaves the model empty.
const (
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultClaudeModel = "claude-3-5-haiku-latest"
)

// maxTokens bounds completion length; a 15-item JSON list fits comfortably.
const maxTokens = 2048
