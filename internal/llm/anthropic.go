package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-haiku-20241022"

// AnthropicProvider implements Completer for Anthropic Claude models
type AnthropicProvider struct {
	client anthropic.Client
	config Config
}

// NewAnthropicProvider creates a new Anthropic provider. Retries happen
// per scoring batch, so the SDK's own retries are disabled.
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithHTTPClient(newHTTPClient(config, 60*time.Second)),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(config.BaseURL, "/")+"/"))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Complete sends one user message through the Messages API
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = defaultAnthropicModel
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 4000
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", classifyStatus(apiErr.StatusCode, fmt.Errorf("Anthropic API error: %w", err))
		}
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("no content in Anthropic response")
	}
	content := message.Content[0]
	if content.Type != "text" {
		return "", fmt.Errorf("unexpected response format: not a text block (type=%s)", content.Type)
	}
	return strings.TrimSpace(content.Text), nil
}
