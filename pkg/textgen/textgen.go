package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"feedbot/pkg/config"
	errs "feedbot/pkg/errors"
	"feedbot/pkg/logger"
	"feedbot/pkg/models"
	"feedbot/pkg/retry"
)

// Provider generates a short reply for a candidate item
type Provider interface {
	GenerateComment(ctx context.Context, item models.CandidateItem) (string, error)
}

// Client calls an OpenAI-compatible chat completions endpoint
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	retrier    *retry.Retrier
	logger     logger.Logger
}

// NewClient creates a text generation client from configuration
func NewClient(cfg *config.TextGenConfig, log logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errs.NewConfiguration("text generation requires an API key")
	}
	if log == nil {
		log = logger.GetLogger()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		retrier: retry.NewRetrier(&retry.Config{
			MaxAttempts: 3,
			Backoff:     retry.DefaultExponentialBackoff(),
			RetryIf:     retry.DefaultRetryIf,
			Context:     context.Background(),
			Logger:      log,
		}),
		logger: log,
	}, nil
}

const systemPrompt = "You write a single short, friendly reply to a social media post. " +
	"Keep it under 200 characters, match the post's tone, and never use hashtags or emoji."

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// GenerateComment produces a reply to the item's text. Transient API
// failures are retried; an empty or unusable completion is an action error.
func (c *Client) GenerateComment(ctx context.Context, item models.CandidateItem) (string, error) {
	if strings.TrimSpace(item.Text) == "" {
		return "", errs.NewAction("cannot generate a comment for an empty post", nil)
	}

	var comment string
	err := c.retrier.WithContext(ctx).Do(func() error {
		var opErr error
		comment, opErr = c.generate(ctx, item.Text)
		return opErr
	})
	if err != nil {
		return "", err
	}
	return comment, nil
}

func (c *Client) generate(ctx context.Context, postText string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: postText},
		},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.ErrorWithFields("text generation request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": duration,
		})
		return "", errs.NewAction("text generation request failed", err)
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("text generation request completed", map[string]interface{}{
		"status":   resp.StatusCode,
		"duration": duration,
	})

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errs.NewAction("failed to read generation response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", errs.NewConfiguration("text generation API rejected the API key")
	case resp.StatusCode != http.StatusOK:
		return "", errs.NewAction(
			fmt.Sprintf("text generation API returned status %d", resp.StatusCode), nil)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", errs.NewAction("failed to decode generation response", err)
	}
	if parsed.Error != nil {
		return "", errs.NewAction("text generation API error: "+parsed.Error.Message, nil)
	}
	if len(parsed.Choices) == 0 {
		return "", errs.NewAction("text generation returned no choices", nil)
	}

	comment := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if comment == "" {
		return "", errs.NewAction("text generation returned an empty comment", nil)
	}
	return comment, nil
}

// MockProvider is a canned Provider for tests and dry runs
type MockProvider struct {
	Comment string
	Err     error
	Calls   []string
}

func (m *MockProvider) GenerateComment(ctx context.Context, item models.CandidateItem) (string, error) {
	m.Calls = append(m.Calls, item.ID)
	if m.Err != nil {
		return "", m.Err
	}
	if m.Comment != "" {
		return m.Comment, nil
	}
	return "nice post", nil
}
