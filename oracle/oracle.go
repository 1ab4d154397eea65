// CLAUDE:SUMMARY Text-completion oracle boundary: Completer interface plus an OpenAI-compatible chat client.
// Package oracle wraps the external text-generation service hatchwatch uses
// for report extraction, narrative summaries, and fly recommendations.
//
// The service is treated as a black box behind the Completer interface: one
// prompt in, free-form text out. Call sites never trust the output shape —
// they recover structure with ExtractJSON and treat parse failures as typed
// extraction failures.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Completer is the single call type the rest of the service depends on.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config configures the HTTP client.
type Config struct {
	// BaseURL of an OpenAI-compatible chat completions endpoint,
	// e.g. "https://api.openai.com" or a local vLLM/Ollama gateway.
	BaseURL string
	APIKey  string
	Model   string
	// Timeout bounds each completion call. Default: 60s.
	Timeout time.Duration
	// MaxTokens per completion. Default: 1024.
	MaxTokens int
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
}

// Client calls an OpenAI-compatible /v1/chat/completions endpoint.
type Client struct {
	client *http.Client
	config Config
	logger *slog.Logger
}

// NewClient creates a Client. The logger may be nil.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		logger: logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends one prompt and returns the raw completion text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   c.config.MaxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("oracle status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode oracle response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("oracle returned no choices")
	}

	c.logger.Debug("oracle completion",
		"duration_ms", time.Since(start).Milliseconds(),
		"tokens", parsed.Usage.TotalTokens)

	return parsed.Choices[0].Message.Content, nil
}
