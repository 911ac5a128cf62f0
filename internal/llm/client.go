// Package llm provides chat-completion clients for avatar reply generation.
// Providers implement a single Complete call: system prompt plus one user
// turn in, assistant text out.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Client is the chat-completion interface consumed by the room.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider  string // "openai" (any OpenAI-compatible endpoint) or "gemini"
	APIKey    string
	BaseURL   string // OpenAI-compatible endpoints only
	Model     string
	MaxTokens int
	Timeout   time.Duration // zero means no client-side deadline
}

// New builds a client for the configured provider.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIClient(cfg), nil
	case "gemini":
		return NewGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}
