// Package reasoning calls the chat-completions gateway used for intent
// classification and response synthesis.
package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	httpclient "wb-analyst/internal/common/http"
	"wb-analyst/internal/common/logger"
)

const (
	ComponentName = "reasoning-client"
)

var (
	ErrReasoningUnavailable = errors.New("REASONING_UNAVAILABLE")
	ErrReasoningTimeout     = errors.New("REASONING_TIMEOUT")
	ErrEmptyCompletion      = errors.New("REASONING_EMPTY_RESPONSE")
)

// Completer is the single reasoning operation the pipeline stages depend on.
// Stages that can fall back to deterministic behavior treat any returned
// error as a signal to do so.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Client struct {
	config *Config
	client *httpclient.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		// No client-level timeout; each call is bounded by its context.
		client: httpclient.NewClient(0),
		logger: log.WithFields(map[string]interface{}{"component": ComponentName}),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one system+user exchange and returns the model's text.
// A single attempt only: callers decide whether a failure is fatal or
// triggers a fallback, so hidden retries here would just stack timeouts.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	requestBody := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}

	start := time.Now()
	resp, err := c.client.PostJSON(ctx, c.config.BaseURL+"/chat/completions", c.config.APIKey, requestBody)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			c.logger.Error("reasoning call timed out", map[string]interface{}{
				"timeout": c.config.Timeout.String(),
			})
			return "", ErrReasoningTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrReasoningUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrReasoningUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var apiResponse chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrReasoningUnavailable, err)
	}

	if len(apiResponse.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := apiResponse.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyCompletion
	}

	c.logger.Debug("completion received", map[string]interface{}{
		"durationMs": time.Since(start).Milliseconds(),
		"chars":      len(content),
	})

	return content, nil
}
