package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"sentinel/internal/adapters/config"
	"sentinel/internal/metrics"
	"sentinel/pkg/errors"
)

// Ensure OpenAIProvider implements ChatProvider
var _ ChatProvider = (*OpenAIProvider)(nil)

// OpenAIProvider talks to any OpenAI-compatible chat completion
// endpoint (OpenAI, Azure, local gateways).
type OpenAIProvider struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	rateLimiter RateLimiter
}

// NewOpenAIProvider creates a provider from config.
func NewOpenAIProvider(cfg config.AIConfig) *OpenAIProvider {
	var limiter RateLimiter = NoOpLimiter{}
	if cfg.RequestsPerMin > 0 {
		limiter = NewLimiter("openai", cfg.RequestsPerMin)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &OpenAIProvider{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		client:      &http.Client{Timeout: timeout},
		rateLimiter: limiter,
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat sends a chat completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if p.apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "API key not configured")
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrRateLimitExceeded, err.Error())
	}

	apiReq := openAIRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, msg := range req.Messages {
		apiReq.Messages = append(apiReq.Messages, openAIMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, errors.Wrap(err, "marshal chat request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create HTTP request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		metrics.RecordLLMCall("chat", req.Model, time.Since(start), 0, 0, err)
		return nil, errors.Wrap(errors.ErrLLMUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read chat response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		metrics.RecordLLMCall("chat", req.Model, time.Since(start), 0, 0, apiErr)
		return nil, apiErr
	}

	var apiResp openAIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, errors.Wrap(err, "unmarshal chat response")
	}

	chatResp := &ChatResponse{
		ID:    apiResp.ID,
		Model: apiResp.Model,
		Usage: Usage{
			PromptTokens:     apiResp.Usage.PromptTokens,
			CompletionTokens: apiResp.Usage.CompletionTokens,
			TotalTokens:      apiResp.Usage.TotalTokens,
		},
	}
	for _, choice := range apiResp.Choices {
		chatResp.Choices = append(chatResp.Choices, Choice{
			Index: choice.Index,
			Message: Message{
				Role:    MessageRole(choice.Message.Role),
				Content: choice.Message.Content,
			},
			FinishReason: choice.FinishReason,
		})
	}

	metrics.RecordLLMCall("chat", req.Model, time.Since(start),
		chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens, nil)

	return chatResp, nil
}

func parseAPIError(status int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}

	kind := errors.ErrUnavailable
	if status == http.StatusTooManyRequests {
		kind = errors.ErrRateLimitExceeded
	}

	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errors.Wrapf(kind, "API error (%d): %s - %s",
			status, errResp.Error.Type, errResp.Error.Message)
	}
	return errors.Wrapf(kind, "API error (%d): %s", status, string(body))
}
