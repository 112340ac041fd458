// Package llm is a minimal chat-completions client for the free-form phase
// of a conversation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/stellarlinkco/leadflow/internal/config"
)

// Error classes for callers that degrade differently per failure mode.
// Only network failures are retried inside Complete; rate limits and auth
// failures are surfaced immediately.
var (
	ErrNetwork     = errors.New("llm: network failure")
	ErrRateLimited = errors.New("llm: rate limited")
	ErrAuth        = errors.New("llm: authentication failed")
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Response struct {
	Content string
	Usage   Usage
}

type Client struct {
	apiKey     string
	baseURL    string
	maxRetries int
	httpClient *http.Client

	retryInterval time.Duration
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		apiKey:        cfg.Provider.APIKey,
		baseURL:       cfg.Provider.BaseURL,
		maxRetries:    cfg.Assistant.MaxRetries,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		retryInterval: 500 * time.Millisecond,
	}
}

// Complete sends one chat-completion request. Network failures are retried
// with exponential backoff up to the configured attempt count; rate-limit,
// auth and malformed-request failures are not retried.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, fmt.Errorf("%w: missing api key", ErrAuth)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if req.Model == "" {
		return nil, fmt.Errorf("missing model")
	}

	body := map[string]any{
		"model":       req.Model,
		"messages":    req.Messages,
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	operation := func() (*Response, error) {
		resp, err := c.send(ctx, baseURL, payload)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, ErrNetwork) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(c.maxRetries)),
	)
}

func (c *Client) send(ctx context.Context, baseURL string, payload []byte) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, strings.TrimSpace(string(respBody)))
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: http %d", ErrAuth, httpResp.StatusCode)
	case httpResp.StatusCode < 200 || httpResp.StatusCode >= 300:
		return nil, fmt.Errorf("completion http %d: %s", httpResp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage Usage `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("empty choices in response")
	}
	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("empty content in response")
	}
	return &Response{Content: content, Usage: decoded.Usage}, nil
}
