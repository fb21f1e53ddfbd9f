package llm

import (
	"fmt"
	"strings"
)

// NewProvider creates a completer based on configuration. An empty
// provider name means no model is configured and returns nil.
func NewProvider(config Config) (Completer, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}
