// Package llm provides centralized oracle configuration and client abstractions.
// This package enables switching between providers without touching the
// analysis code that consumes them.
package llm

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderAnthropic is the Anthropic/Claude provider (default)
	ProviderAnthropic Provider = "anthropic"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Default models per provider
const (
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultGeminiModel    = "gemini-2.5-flash"
)

// DefaultMaxTokens bounds response length for providers that require an
// explicit limit
const DefaultMaxTokens = 4096

// Config holds the oracle configuration for the application
type Config struct {
	Provider  Provider
	Model     string
	MaxTokens int
	// BaseURL overrides the provider endpoint; tests point it at a local server
	BaseURL string
}

// DefaultConfig returns the default configuration (currently Anthropic)
func DefaultConfig() *Config {
	return DefaultAnthropicConfig()
}

// DefaultAnthropicConfig returns the default Anthropic configuration
func DefaultAnthropicConfig() *Config {
	return &Config{
		Provider:  ProviderAnthropic,
		Model:     DefaultAnthropicModel,
		MaxTokens: DefaultMaxTokens,
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider:  ProviderGemini,
		Model:     DefaultGeminiModel,
		MaxTokens: DefaultMaxTokens,
	}
}

// GetModel returns the configured model name, falling back to the provider
// default when unset
func (c *Config) GetModel() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Provider {
	case ProviderGemini:
		return DefaultGeminiModel
	default:
		return DefaultAnthropicModel
	}
}

// WithModel returns a new Config with a specific model
func (c *Config) WithModel(model string) *Config {
	newConfig := *c
	newConfig.Model = model
	return &newConfig
}
