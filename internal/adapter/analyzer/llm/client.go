// Package llm asks an OpenAI compatible chat completion endpoint for the
// highlights of a transcript.
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

	"github.com/sethvargo/go-retry"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/infrastructure/logger"
	"github.com/bnema/videofactory/internal/port"
)

const (
	jsonResponseType      = "json_object"
	defaultBaseURL        = "https://api.openai.com/v1/chat/completions"
	defaultModel          = "gpt-4o-mini"
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

var ErrNoAPIKey = errors.New("llm: api key required")

type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

type Client struct {
	cfg        Config
	httpClient *http.Client

	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithRetryAttempts(attempts int) Option {
	return func(c *Client) { c.retryAttempts = attempts }
}

func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimSpace(cfg.BaseURL),
			Model:   strings.TrimSpace(cfg.Model),
		},
		httpClient:     &http.Client{Timeout: timeout},
		retryAttempts:  defaultRetryAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.BaseURL == "" {
		c.cfg.BaseURL = defaultBaseURL
	}
	if c.cfg.Model == "" {
		c.cfg.Model = defaultModel
	}
	return c
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.code, logger.Tail(e.body, 200))
}

// Analyze returns the raw highlight array produced by the model. The caller
// validates it.
func (c *Client) Analyze(ctx context.Context, segments []domain.Segment) (json.RawMessage, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if len(segments) == 0 {
		return nil, domain.Wrap(domain.ErrValidation, "analyze", "empty transcript", nil)
	}
	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: highlightPrompt},
			{Role: "user", Content: transcriptPrompt(segments)},
		},
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}

	content, err := retry.DoValue(ctx, c.backoff(), func(ctx context.Context) (string, error) {
		content, err := c.complete(ctx, payload)
		if err != nil && retryable(err) {
			logger.Warn.Printf("llm request failed, retrying: %v", err)
			return "", retry.RetryableError(err)
		}
		return content, err
	})
	if err != nil {
		return nil, domain.Wrap(domain.ErrStageExecution, "analyze", "chat completion failed", err)
	}
	return ExtractHighlights(content)
}

func (c *Client) backoff() retry.Backoff {
	attempts := max(c.retryAttempts, 1)
	base := c.retryBaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	b := retry.NewExponential(base)
	if c.retryMaxDelay > 0 {
		b = retry.WithCappedDuration(c.retryMaxDelay, b)
	}
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusRequestTimeout ||
			se.code == http.StatusTooManyRequests ||
			se.code >= http.StatusInternalServerError
	}
	return true
}

func (c *Client) complete(ctx context.Context, payload chatRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &statusError{code: resp.StatusCode, body: string(body)}
	}

	var completion chatResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	return "", errors.New("llm request: empty content")
}

// ExtractHighlights strips markdown fences and unwraps {"highlights": [...]}
// so that a bare array is returned either way.
func ExtractHighlights(content string) (json.RawMessage, error) {
	content = stripFence(content)
	if strings.HasPrefix(content, "[") {
		if !json.Valid([]byte(content)) {
			return nil, domain.Wrap(domain.ErrValidation, "analyze", "model returned invalid JSON", nil)
		}
		return json.RawMessage(content), nil
	}
	var wrapped struct {
		Highlights json.RawMessage `json:"highlights"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		return nil, domain.Wrap(domain.ErrValidation, "analyze", "model returned invalid JSON", err)
	}
	if len(wrapped.Highlights) == 0 || string(wrapped.Highlights) == "null" {
		return nil, domain.Wrap(domain.ErrValidation, "analyze", "model returned no highlights field", nil)
	}
	return wrapped.Highlights, nil
}

func stripFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	// drop the language tag line
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		content = content[nl+1:]
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

var _ port.ContentAnalyzer = (*Client)(nil)
