package utils

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPClient talks to a running recorder. Idempotent requests are retried on
// connection errors and 5xx responses with exponential backoff; other requests
// are sent once and their response is returned whatever the status.
type HTTPClient struct {
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// HTTPClientOption is a functional option for configuring HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) HTTPClientOption {
	return func(c *HTTPClient) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryDelay sets the initial delay between retries.
func WithRetryDelay(d time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// NewHTTPClient creates a new HTTPClient with optional configuration.
func NewHTTPClient(opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: 2,
		retryDelay: 250 * time.Millisecond,
		maxDelay:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// Do executes req. Capture requests must not be repeated, so only idempotent
// methods are retried.
func (c *HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if !idempotent(req.Method) {
		resp, err := c.client.Do(req.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		return resp, nil
	}

	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay = min(delay*2, c.maxDelay)
		}

		resp, err := c.client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt+1, c.maxRetries+1, err)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error %d (attempt %d/%d)", resp.StatusCode, attempt+1, c.maxRetries+1)
			_ = resp.Body.Close()
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("all retry attempts failed: %w", lastErr)
}

// Get performs a GET request with retries.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.Do(ctx, req)
}
