package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// NewClient creates a chat client for the configured provider. An empty
// provider defaults to OpenAI-compatible, which covers OpenAI itself plus
// vLLM, Ollama, and other local endpoints.
func NewClient(cfg *Config, logger *zap.Logger) (LLMClient, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIClient(cfg, logger)
	case "anthropic":
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
