package newsdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const defaultBaseURL = "https://newsdata.io/api/1/latest"

// ErrInvalidPageToken signals the feed rejected the pagination cursor with a
// 422. It is a graceful stop for pagination, not a fetch failure.
var ErrInvalidPageToken = errors.New("newsdata: invalid page token")

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

// WithBaseURL sets a custom feed endpoint (useful for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// Client fetches articles from a NewsData-compatible feed.
type Client struct {
	apiKey     string
	baseURL    string
	userAgent  string
	httpClient HTTPClient
}

// NewClient creates a feed client authenticated with apiKey.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchParams narrows a fetch. Zero values mean "no filter".
type FetchParams struct {
	Query    string
	Country  string
	Category string
	Language string
	Domain   string
	PageSize int

	// Pages bounds how many sequential page fetches one call may issue.
	// Values below 1 are treated as 1.
	Pages int

	// StartPage optionally resumes from a known cursor instead of the
	// first page.
	StartPage string
}

// FetchLatest walks the feed's cursor pagination and returns the concatenated
// article batches. Pagination stops early, without error, when the feed stops
// returning a cursor, repeats a cursor already seen this run, or rejects the
// cursor with a 422. Any other HTTP failure aborts the fetch.
func (c *Client) FetchLatest(ctx context.Context, p FetchParams) ([]Article, error) {
	pages := p.Pages
	if pages < 1 {
		pages = 1
	}

	var articles []Article
	seen := make(map[string]struct{})
	cursor := p.StartPage
	if cursor != "" {
		seen[cursor] = struct{}{}
	}

	for i := 0; i < pages; i++ {
		body, err := c.fetchPage(ctx, p, cursor)
		if errors.Is(err, ErrInvalidPageToken) {
			break
		}
		if err != nil {
			return nil, err
		}

		articles = append(articles, extractArticles(body)...)

		// The feed has drifted between "nextPage" and "next_page" across
		// API versions; both stay accepted.
		token := stringField(body, "nextPage", "next_page")
		if token == "" {
			break
		}
		if _, dup := seen[token]; dup {
			break
		}
		seen[token] = struct{}{}
		cursor = token
	}

	return articles, nil
}

// fetchPage issues one GET. The cursor parameter is omitted entirely when
// empty: to this feed, absence means "first page", not "empty page".
func (c *Client) fetchPage(ctx context.Context, p FetchParams, cursor string) (map[string]any, error) {
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	for k, v := range map[string]string{
		"q":        p.Query,
		"country":  p.Country,
		"category": p.Category,
		"language": p.Language,
		"domain":   p.Domain,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	if p.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	if cursor != "" {
		q.Set("page", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, ErrInvalidPageToken
	}
	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("feed returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to parse feed response: %w", err)
	}
	return body, nil
}

// extractArticles pulls the record list out of a page body. The list key has
// also drifted across feed versions; "results" and "articles" are both
// accepted.
func extractArticles(body map[string]any) []Article {
	for _, key := range []string{"results", "articles"} {
		list, ok := body[key].([]any)
		if !ok || len(list) == 0 {
			continue
		}
		out := make([]Article, 0, len(list))
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				out = append(out, Article(m))
			}
		}
		return out
	}
	return nil
}

func stringField(body map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := body[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
