package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sentinel/internal/adapters/config"
	"sentinel/pkg/errors"
)

func newTestProvider(url string) *OpenAIProvider {
	return NewOpenAIProvider(config.AIConfig{
		BaseURL: url,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
}

func TestChatSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req openAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Temperature != 0.1 {
			t.Errorf("temperature = %v, want 0.1", req.Temperature)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "chatcmpl-1",
			"model": req.Model,
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": "<thoughts>ok</thoughts>"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	resp, err := p.Chat(context.Background(), ChatRequest{
		Model:       "gpt-4o",
		Temperature: 0.1,
		Messages: []Message{
			{Role: RoleSystem, Content: "you are a risk analyst"},
			{Role: RoleUser, Content: "assess this"},
		},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if got := resp.Content(); got != "<thoughts>ok</thoughts>" {
		t.Errorf("Content() = %q", got)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", resp.Usage.TotalTokens)
	}
}

func TestChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "upstream exploded", "type": "server_error"},
		})
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	_, err := p.Chat(context.Background(), ChatRequest{Model: "gpt-4o"})
	if !errors.Is(err, errors.ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestChatRateLimitedByAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	_, err := p.Chat(context.Background(), ChatRequest{Model: "gpt-4o"})
	if !errors.Is(err, errors.ErrRateLimitExceeded) {
		t.Errorf("error = %v, want ErrRateLimitExceeded", err)
	}
}

func TestChatMissingAPIKey(t *testing.T) {
	p := NewOpenAIProvider(config.AIConfig{BaseURL: "http://localhost:0"})
	_, err := p.Chat(context.Background(), ChatRequest{Model: "gpt-4o"})
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestChatConnectionRefused(t *testing.T) {
	p := newTestProvider("http://127.0.0.1:1")
	_, err := p.Chat(context.Background(), ChatRequest{Model: "gpt-4o"})
	if !errors.Is(err, errors.ErrLLMUnavailable) {
		t.Errorf("error = %v, want ErrLLMUnavailable", err)
	}
}

func TestLimiterAllowsBurstThenBlocks(t *testing.T) {
	l := NewLimiter("test", 60) // 1 rps, burst 6

	allowed := 0
	for i := 0; i < 10; i++ {
		if l.Allow() {
			allowed++
		}
	}
	if allowed != 6 {
		t.Errorf("allowed = %d, want burst of 6", allowed)
	}
}

func TestNoOpLimiterNeverBlocks(t *testing.T) {
	var l RateLimiter = NoOpLimiter{}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	for i := 0; i < 100; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
}
