// Package llm holds the extraction and scoring collaborators and the
// language-model providers behind them.
package llm

import (
	"context"
	"errors"

	"github.com/ppiankov/kgcurator/internal/model"
)

// Completer sends one prompt to a language model and returns its text
type Completer interface {
	// Name returns the provider name
	Name() string

	// Complete runs a single completion
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is a single prompt
type CompletionRequest struct {
	System    string
	Prompt    string
	Model     string // provider default when empty
	MaxTokens int
}

// Config holds provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", or "" for none
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g. Ollama, proxies, test servers)
	BaseURL string

	// Timeout per request in seconds
	Timeout int

	MaxTokens int

	// Proxy settings; empty falls back to the environment
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// ConfigFromModel converts the curation config's LLM section
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:   c.Provider,
		Model:      c.Model,
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
		MaxTokens:  c.MaxTokens,
		HTTPProxy:  c.HTTPProxy,
		HTTPSProxy: c.HTTPSProxy,
		NoProxy:    c.NoProxy,
	}
}

// permanentError marks a failure that retrying cannot fix
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so callers stop retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// classifyStatus marks client errors other than throttling as permanent
func classifyStatus(status int, err error) error {
	if status >= 400 && status < 500 && status != 429 && status != 408 {
		return Permanent(err)
	}
	return err
}
