// Package victoria pushes text-exposition samples to a VictoriaMetrics-
// compatible time-series sink.
package victoria

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const importPath = "/api/v1/import/prometheus"

// HTTPClient interface for making HTTP requests (allows injection for testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUserAgent sets the User-Agent header sent on every import.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRequestID tags every import with an X-Request-ID header.
func WithRequestID(id string) ClientOption {
	return func(c *Client) {
		c.requestID = id
	}
}

// Client imports exposition-format sample batches.
type Client struct {
	baseURL    string
	userAgent  string
	requestID  string
	httpClient HTTPClient
}

// NewClient creates an import client for the sink at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Import posts an exposition body. Anything but a 2xx response is an error
// carrying the response status and body for diagnosis.
func (c *Client) Import(ctx context.Context, body string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+importPath, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.requestID != "" {
		req.Header.Set("X-Request-ID", c.requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("metrics sink returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	return nil
}
