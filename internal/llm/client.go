package llm

import (
	"context"
)

// Client is an abstraction over LLM providers
type Client interface {
	// Complete sends a prompt and returns the model's text response
	Complete(ctx context.Context, prompt string) (string, error)
	// GetModel returns the underlying provider model (for logging and run summaries)
	GetModel() string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	case ProviderAnthropic:
		return NewAnthropicClient(config, apiKey)
	default:
		return NewAnthropicClient(config, apiKey)
	}
}
