// Package llm provides chat-completion clients for OpenAI-compatible and
// Anthropic endpoints, plus helpers for digging JSON out of model output.
package llm

import "context"

// LLMClient is the chat interface the engine consumes. Use it for
// dependency injection so tests can swap in MockLLMClient.
type LLMClient interface {
	// GenerateResponse sends one system+user exchange and returns the text
	// of the model's reply.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Config holds configuration for creating a chat client.
type Config struct {
	Provider  string // "openai" (any OpenAI-compatible endpoint) or "anthropic"
	Endpoint  string // Base URL, e.g. "https://api.openai.com/v1"
	Model     string // Model name
	APIKey    string // Optional for local endpoints
	MaxTokens int    // Response token cap; 0 uses the provider default
}

var (
	_ LLMClient = (*OpenAIClient)(nil)
	_ LLMClient = (*AnthropicClient)(nil)
)
