package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestOpenAIProvider_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
			t.Errorf("Expected system + user messages, got %+v", req.Messages)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("Expected model gpt-4o-mini, got %s", req.Model)
		}

		resp := openai.ChatCompletionResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{
					Message: openai.ChatCompletionMessage{
						Role:    "assistant",
						Content: "  {\"candidate_uid\":\"c-1\"}\n",
					},
					FinishReason: "stop",
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4o-mini",
		Timeout: 5,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	got, err := provider.Complete(context.Background(), CompletionRequest{System: "sys", Prompt: "score these"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != `{"candidate_uid":"c-1"}` {
		t.Errorf("Unexpected completion: %q", got)
	}
}

func TestOpenAIProvider_Complete_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		permanent bool
	}{
		{"server error", http.StatusInternalServerError, `{"error": {"message": "Internal Server Error", "type": "server_error"}}`, false},
		{"rate limit", http.StatusTooManyRequests, `{"error": {"message": "Rate limit exceeded", "type": "rate_limit_error"}}`, false},
		{"bad key", http.StatusUnauthorized, `{"error": {"message": "Incorrect API key", "type": "invalid_request_error"}}`, true},
		{"malformed json", http.StatusOK, `{malformed json`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
			if err != nil {
				t.Fatalf("Failed to create provider: %v", err)
			}

			_, err = provider.Complete(context.Background(), CompletionRequest{Prompt: "x"})
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if IsPermanent(err) != tt.permanent {
				t.Errorf("IsPermanent = %v, want %v (%v)", IsPermanent(err), tt.permanent, err)
			}
		})
	}
}

func TestOpenAIProvider_Complete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{ID: "chatcmpl-1"})
	}))
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if _, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "x"}); err == nil {
		t.Fatal("Expected error for empty choices")
	}
}

func TestNewOpenAIProvider_MissingKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Fatal("Expected error for missing API key")
	}
}
