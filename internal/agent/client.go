package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client calls an OpenAI- or Anthropic-compatible completion endpoint.
// Concurrency control lives in the pipeline's worker pool; the client only
// enforces the backend's rate limit and per-call retry policy.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	maxRetries int
	limiter    *rate.Limiter
	apiType    string // "anthropic" or "openai"
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithRetry sets the number of additional attempts after the first.
func WithRetry(maxRetries int) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
	}
}

// WithTimeout sets the per-call HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		transport := c.httpClient.Transport
		c.httpClient = &http.Client{
			Timeout:   timeout,
			Transport: transport,
		}
	}
}

// WithRateLimit bounds outbound request rate.
func WithRateLimit(requestsPerMinute, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
	}
}

// WithAPIConfig points the client at a specific backend and model.
func WithAPIConfig(baseURL, model string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
		c.model = model
		if strings.Contains(baseURL, "openai") {
			c.apiType = "openai"
		} else {
			c.apiType = "anthropic"
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient builds a Client with pooled connections and conservative
// defaults: 2 retries, 60 req/min.
func NewClient(apiKey string, opts ...Option) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: "https://api.anthropic.com/v1",
		model:   "claude-3-5-sonnet-20241022",
		httpClient: &http.Client{
			Timeout:   120 * time.Second,
			Transport: transport,
		},
		maxRetries: 2,
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		apiType:    "anthropic",
		logger:     slog.Default().With("component", "agent"),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger.Debug("generation client initialized",
		"api_type", c.apiType,
		"base_url", c.baseURL,
		"model", c.model,
		"max_retries", c.maxRetries,
		"rate_limit", fmt.Sprintf("%v req/s", c.limiter.Limit()))

	return c
}

// Generate performs one completion call with rate limiting and exponential
// backoff. Transport and server-side failures exhaust maxRetries before
// surfacing as ErrUnavailable.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	requestID := fmt.Sprintf("gen_%d", time.Now().UnixNano())
	start := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	var lastErr error
	backoff := time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retry backoff",
				"request_id", requestID,
				"attempt", attempt,
				"backoff", backoff)
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		attemptStart := time.Now()
		response, err := c.doRequest(ctx, req)
		if err == nil {
			c.logger.Info("generation request successful",
				"request_id", requestID,
				"attempt", attempt,
				"duration_ms", time.Since(attemptStart).Milliseconds(),
				"response_length", len(response))
			return response, nil
		}

		lastErr = err
		if !isRetryable(err) {
			c.logger.Error("generation request failed, not retryable",
				"request_id", requestID,
				"attempt", attempt,
				"error", err)
			return "", err
		}

		c.logger.Warn("generation request failed, will retry",
			"request_id", requestID,
			"attempt", attempt,
			"error", err)
	}

	c.logger.Error("generation request failed after retries",
		"request_id", requestID,
		"max_retries", c.maxRetries,
		"total_duration_ms", time.Since(start).Milliseconds(),
		"last_error", lastErr)

	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) doRequest(ctx context.Context, req Request) (string, error) {
	if c.apiType == "openai" {
		return c.doOpenAIRequest(ctx, req)
	}
	return c.doAnthropicRequest(ctx, req)
}

func (c *Client) doOpenAIRequest(ctx context.Context, req Request) (string, error) {
	messages := []map[string]string{}
	if req.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})

	body, err := json.Marshal(map[string]interface{}{
		"model":       c.modelFor(req),
		"messages":    messages,
		"max_tokens":  c.maxTokensFor(req),
		"temperature": req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	respBody, status, err := c.send(httpReq)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &apiError{status: status, body: string(respBody)}
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return response.Choices[0].Message.Content, nil
}

func (c *Client) doAnthropicRequest(ctx context.Context, req Request) (string, error) {
	payload := map[string]interface{}{
		"model": c.modelFor(req),
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
		"max_tokens":  c.maxTokensFor(req),
		"temperature": req.Temperature,
	}
	if req.System != "" {
		payload["system"] = req.System
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	respBody, status, err := c.send(httpReq)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &apiError{status: status, body: string(respBody)}
	}

	var response struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	return response.Content[0].Text, nil
}

func (c *Client) send(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) modelFor(req Request) string {
	if req.Model != "" {
		return req.Model
	}
	return c.model
}

func (c *Client) maxTokensFor(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return 4096
}

type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.status, e.body)
}

// isRetryable treats network errors, timeouts, rate limits and server-side
// 5xx as transient. Client errors (bad key, malformed request) are not.
func isRetryable(err error) bool {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.status == http.StatusTooManyRequests || apiErr.status >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(err.Error(), "connection")
}
