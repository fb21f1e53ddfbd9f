package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestOllamaProvider_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("Expected non-streaming request")
		}
		if req.Model != "llama3.1:8b" {
			t.Errorf("Expected model llama3.1:8b, got %s", req.Model)
		}

		_ = json.NewEncoder(w).Encode(ollamaResponse{Model: req.Model, Response: " ok \n", Done: true})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL + "/", Model: "llama3.1:8b", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	got, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "ok" {
		t.Errorf("Unexpected completion: %q", got)
	}
}

func TestOllamaProvider_Complete_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'missing' not found"}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "missing", Timeout: 5})
	_, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !IsPermanent(err) {
		t.Errorf("Expected a missing model to be permanent: %v", err)
	}

	noModel, _ := NewOllamaProvider(Config{BaseURL: server.URL})
	if _, err := noModel.Complete(context.Background(), CompletionRequest{Prompt: "x"}); err == nil || !IsPermanent(err) {
		t.Errorf("Expected permanent error without a model, got %v", err)
	}
}

func TestProxyFunc(t *testing.T) {
	proxy := newProxyFunc("http://proxy.local:3128", "http://secure-proxy.local:3128", "localhost, .internal.example")

	tests := []struct {
		target string
		want   string
	}{
		{"http://api.example.com/v1", "http://proxy.local:3128"},
		{"https://api.example.com/v1", "http://secure-proxy.local:3128"},
		{"http://localhost:11434/api/generate", ""},
		{"https://llm.internal.example/v1", ""},
	}

	for _, tt := range tests {
		u, _ := url.Parse(tt.target)
		got, err := proxy(&http.Request{URL: u})
		if err != nil {
			t.Fatalf("proxy(%s): %v", tt.target, err)
		}
		gotStr := ""
		if got != nil {
			gotStr = got.String()
		}
		if gotStr != tt.want {
			t.Errorf("proxy(%s) = %q, want %q", tt.target, gotStr, tt.want)
		}
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	if err != nil || p != nil {
		t.Fatalf("Expected nil provider for empty name, got %v, %v", p, err)
	}

	if _, err := NewProvider(Config{Provider: "bogus"}); err == nil {
		t.Error("Expected error for unknown provider")
	}

	for _, name := range []string{"openai", "anthropic", "claude", "ollama"} {
		p, err := NewProvider(Config{Provider: name, APIKey: "k", Model: "m"})
		if err != nil || p == nil {
			t.Errorf("NewProvider(%s) = %v, %v", name, p, err)
		}
	}
}
