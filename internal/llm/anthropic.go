package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/arxiv-digest/internal/fetch"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	anthropicTimeout        = 60 * time.Second
)

// AnthropicClient implements Client against the Anthropic messages API
type AnthropicClient struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	opts      *fetch.Options
}

// NewAnthropicClient creates a new Anthropic client
func NewAnthropicClient(config *Config, apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultAnthropicConfig()
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	// Single-attempt options; the caller owns the retry budget
	opts := fetch.DefaultOptions()
	opts.Timeout = anthropicTimeout
	opts.MaxRetries = 0
	opts.ShouldRetry = func(*http.Response, error) bool { return false }

	return &AnthropicClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		model:     config.GetModel(),
		maxTokens: maxTokens,
		opts:      opts,
	}, nil
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
}

// Complete sends the prompt as a single user message and returns the
// concatenated text blocks of the response.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(anthropicRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropicMessage{
			{Role: "user", Content: []anthropicContent{{Type: "text", Text: prompt}}},
		},
	})
	if err != nil {
		return "", &RequestError{Model: c.model, Message: "marshal request", Cause: err}
	}

	resp, err := fetch.Do(ctx, nil, c.opts, func() (*http.Request, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
		if reqErr != nil {
			return nil, reqErr
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", c.apiKey)
		req.Header.Set("Anthropic-Version", anthropicVersion)
		return req, nil
	})
	if err != nil {
		return "", classifyTransportError(c.model, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RequestError{Model: c.model, Message: "read response", Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &RequestError{
			Model:   c.model,
			Message: fmt.Sprintf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body))),
		}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &RequestError{Model: c.model, Message: "decode response", Cause: err}
	}

	var parts []string
	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", &RequestError{Model: c.model, Message: "no text content in response"}
	}

	return strings.Join(parts, ""), nil
}

// GetModel returns the model name
func (c *AnthropicClient) GetModel() string {
	return c.model
}

// Close releases resources held by the client
func (c *AnthropicClient) Close() error {
	return nil
}

// classifyTransportError separates deadline expiry from other transport
// failures so callers can report timeouts distinctly.
func classifyTransportError(model string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Model: model, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Model: model, Cause: err}
	}
	return &RequestError{Model: model, Message: "request failed", Cause: err}
}
