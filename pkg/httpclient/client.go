// Package httpclient is a small outbound HTTP client with retries and a
// circuit breaker, used for calls to identity providers.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Options struct {
	Name        string
	Timeout     time.Duration
	MaxRetries  int
	BaseDelay   time.Duration
	MaxFailures int
	OpenTimeout time.Duration
}

type Client struct {
	client     *http.Client
	cb         *CircuitBreaker
	maxRetries int
	baseDelay  time.Duration
}

// StatusError is returned for non-retryable 4xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 100 * time.Millisecond
	}
	return &Client{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cb:         NewCircuitBreaker(opts.Name, opts.MaxFailures, opts.OpenTimeout),
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
	}
}

// HTTPClient exposes the traced client, e.g. for oauth2 token exchange.
func (c *Client) HTTPClient() *http.Client {
	return c.client
}

// GetJSON fetches url and decodes a 2xx JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	resp, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do retries network errors and 5xx responses with jittered exponential
// backoff. Only the final outcome is reported to the circuit breaker.
func (c *Client) do(ctx context.Context, newRequest func() (*http.Request, error)) (*http.Response, error) {
	if err := c.cb.Allow(); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := newRequest()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			c.cb.Success()
			return resp, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("server returned %s", resp.Status)
			resp.Body.Close()
		}

		if attempt == c.maxRetries {
			break
		}

		delay := c.baseDelay<<attempt + time.Duration(rand.IntN(100))*time.Millisecond
		zap.L().Warn("outbound request failed, retrying",
			zap.String("url", req.URL.Redacted()),
			zap.Int("attempt", attempt+1),
			zap.Duration("sleep", delay),
			zap.Error(lastErr),
		)

		select {
		case <-ctx.Done():
			c.cb.Failure()
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	c.cb.Failure()
	return nil, fmt.Errorf("all retries failed: %w", lastErr)
}
