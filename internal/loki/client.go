// Package loki assembles and pushes the log sink's wire payload.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gauthierbraillon/newstream/internal/stream"
)

const pushPath = "/loki/api/v1/push"

// StreamEntry is one labeled stream in the push payload.
type StreamEntry struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// Payload is the push body: {"streams": [{"stream": {...}, "values": [...]}]}.
type Payload struct {
	Streams []StreamEntry `json:"streams"`
}

// BuildPayload serializes grouped streams into the sink's wire structure.
// Each stream's values are sorted ascending by timestamp; ties keep append
// order. Timestamps go on the wire as decimal nanosecond strings.
func BuildPayload(streams []stream.Stream) Payload {
	p := Payload{Streams: make([]StreamEntry, 0, len(streams))}
	for _, s := range streams {
		entries := make([]stream.Entry, len(s.Entries))
		copy(entries, s.Entries)
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Timestamp < entries[j].Timestamp
		})

		values := make([][2]string, 0, len(entries))
		for _, e := range entries {
			values = append(values, [2]string{strconv.FormatInt(e.Timestamp, 10), e.Line})
		}
		p.Streams = append(p.Streams, StreamEntry{Stream: s.Labels, Values: values})
	}
	return p
}

// Encode renders the payload as compact JSON without HTML escaping.
func (p Payload) Encode() []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Payload contains only maps, slices, and strings; encoding cannot fail.
	_ = enc.Encode(p)
	return bytes.TrimRight(buf.Bytes(), "\n")
}

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

// WithTenant sets the X-Scope-OrgID header for multi-tenant sinks.
func WithTenant(tenant string) ClientOption {
	return func(c *Client) {
		c.tenant = tenant
	}
}

// WithUserAgent sets the User-Agent header sent on every push.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRequestID tags every push with an X-Request-ID header.
func WithRequestID(id string) ClientOption {
	return func(c *Client) {
		c.requestID = id
	}
}

// Client pushes payloads to a Loki-compatible sink.
type Client struct {
	baseURL    string
	tenant     string
	userAgent  string
	requestID  string
	httpClient HTTPClient
}

// NewClient creates a push client for the sink at baseURL.
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

// Push sends the payload. Anything but a 2xx response is an error carrying
// the response status and body for diagnosis.
func (c *Client) Push(ctx context.Context, p Payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pushPath, bytes.NewReader(p.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tenant != "" {
		req.Header.Set("X-Scope-OrgID", c.tenant)
	}
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
		return fmt.Errorf("log sink returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	return nil
}
