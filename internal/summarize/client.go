// Package summarize calls an OpenAI-compatible chat completions API to turn a
// triaged digest into a structured repository summary.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// Options configure the LLM client.
type Options struct {
	BaseURL          string
	APIKey           string
	Model            string
	Timeout          time.Duration
	FrequencyPenalty float64
	// ResponseFormat is "", "json_object", or "json_schema". With
	// "json_schema" the strict repo_summary schema is attached.
	ResponseFormat  string
	ReasoningEffort string
}

// Client is the LLM API client. Upstream calls go through a circuit breaker
// so a flapping provider fails fast instead of tying up workers.
type Client struct {
	opts       Options
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	Stats      *Stats
}

// NewClient builds a client for the configured provider endpoint.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 300 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	}
	return &Client{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		Stats:      NewStats(time.Hour),
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.opts.Model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens"`
	FrequencyPenalty float64       `json:"frequency_penalty,omitempty"`
	ResponseFormat   any           `json:"response_format,omitempty"`
	ReasoningEffort  string        `json:"reasoning_effort,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// repoSummarySchema is the strict schema attached when ResponseFormat is
// "json_schema", matching the Summary shape.
var repoSummarySchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "repo_summary",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary":      map[string]any{"type": "string"},
				"technologies": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"structure":    map[string]any{"type": "string"},
			},
			"required":             []string{"summary", "technologies", "structure"},
			"additionalProperties": false,
		},
	},
}

// Complete sends the prompt and digest to the provider and returns the raw
// model output.
func (c *Client) Complete(ctx context.Context, prompt, digestText string, maxTokens int) (string, error) {
	req := chatRequest{
		Model: c.opts.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt + "\n\n---\n\nRepository Contents:\n" + digestText},
		},
		MaxTokens:        maxTokens,
		FrequencyPenalty: c.opts.FrequencyPenalty,
		ReasoningEffort:  c.opts.ReasoningEffort,
	}
	switch c.opts.ResponseFormat {
	case "":
	case "json_schema":
		req.ResponseFormat = repoSummarySchema
	default:
		req.ResponseFormat = map[string]any{"type": c.opts.ResponseFormat}
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (any, error) {
		return c.doRequest(ctx, req)
	})
	c.Stats.Record(time.Since(start).Milliseconds())
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", &RetryableError{StatusCode: http.StatusServiceUnavailable, Message: err.Error()}
		}
		return "", err
	}
	return out.(string), nil
}

func (c *Client) doRequest(ctx context.Context, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.opts.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm api status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("llm error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from llm")
	}
	content := apiResp.Choices[0].Message.Content
	if content == nil {
		return "", fmt.Errorf("llm returned null content (reasoning model may have exhausted output tokens)")
	}
	return *content, nil
}

// RetryableError indicates a transient upstream failure worth retrying.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
