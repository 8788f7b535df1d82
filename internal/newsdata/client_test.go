package newsdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func articleList(n int, source string) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, map[string]any{
			"title":     fmt.Sprintf("article %d", i),
			"source_id": source,
		})
	}
	return out
}

func TestFetchLatest_TwoPages(t *testing.T) {
	var requests []*http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Clone(context.Background()))
		w.Header().Set("Content-Type", "application/json")
		if len(requests) == 1 {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results":  articleList(10, "abc"),
				"nextPage": "abc",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": articleList(5, "abc"),
		})
	}))
	defer server.Close()

	client := NewClient("key", WithBaseURL(server.URL))
	articles, err := client.FetchLatest(context.Background(), FetchParams{Pages: 2})

	require.NoError(t, err)
	require.Len(t, articles, 15)
	require.Len(t, requests, 2)

	// First request must omit the cursor entirely; the second carries the
	// token from the first response.
	require.False(t, requests[0].URL.Query().Has("page"))
	require.Equal(t, "abc", requests[1].URL.Query().Get("page"))
	require.Equal(t, "key", requests[0].URL.Query().Get("apikey"))
}

func TestFetchLatest_StopsOnRepeatedCursor(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results":  articleList(1, "abc"),
			"nextPage": "same-token",
		})
	}))
	defer server.Close()

	client := NewClient("key", WithBaseURL(server.URL))
	articles, err := client.FetchLatest(context.Background(), FetchParams{Pages: 10})

	require.NoError(t, err)
	require.Equal(t, 2, calls, "a repeated cursor must stop pagination before a third request")
	require.Len(t, articles, 2)
}

func TestFetchLatest_StopsWhenCursorAbsent(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{"results": articleList(3, "abc")})
	}))
	defer server.Close()

	client := NewClient("key", WithBaseURL(server.URL))
	articles, err := client.FetchLatest(context.Background(), FetchParams{Pages: 5})

	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Len(t, articles, 3)
}

func TestFetchLatest_InvalidTokenIsGracefulStop(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results":  articleList(4, "abc"),
				"nextPage": "expired",
			})
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message":"The provided value for the next page is invalid"}`)
	}))
	defer server.Close()

	client := NewClient("key", WithBaseURL(server.URL))
	articles, err := client.FetchLatest(context.Background(), FetchParams{Pages: 3})

	// Already-fetched pages survive the rejection.
	require.NoError(t, err)
	require.Len(t, articles, 4)
	require.Equal(t, 2, calls)
}

func TestFetchLatest_HTTPErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, "quota exceeded")
	}))
	defer server.Close()

	client := NewClient("key", WithBaseURL(server.URL))
	_, err := client.FetchLatest(context.Background(), FetchParams{})

	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
	require.Contains(t, err.Error(), "quota exceeded")
}

// The feed schema has drifted across API versions; both list keys and both
// cursor keys stay accepted.
func TestFetchLatest_AcceptsAliasKeys(t *testing.T) {
	var requests []*http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Clone(context.Background()))
		if len(requests) == 1 {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"articles":  articleList(2, "alt"),
				"next_page": "tok-2",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"articles": articleList(1, "alt")})
	}))
	defer server.Close()

	client := NewClient("key", WithBaseURL(server.URL))
	articles, err := client.FetchLatest(context.Background(), FetchParams{Pages: 2})

	require.NoError(t, err)
	require.Len(t, articles, 3)
	require.Equal(t, "tok-2", requests[1].URL.Query().Get("page"))
}

func TestFetchLatest_StartPageToken(t *testing.T) {
	var requests []*http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Clone(context.Background()))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": articleList(1, "abc"),
			// Echoing the start token back must not loop.
			"nextPage": "resume-here",
		})
	}))
	defer server.Close()

	client := NewClient("key", WithBaseURL(server.URL))
	_, err := client.FetchLatest(context.Background(), FetchParams{Pages: 5, StartPage: "resume-here"})

	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.Equal(t, "resume-here", requests[0].URL.Query().Get("page"))
}

func TestFetchLatest_FilterParams(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	defer server.Close()

	client := NewClient("key", WithBaseURL(server.URL))
	_, err := client.FetchLatest(context.Background(), FetchParams{
		Query:    "bitcoin",
		Country:  "us,gb",
		Language: "en",
		PageSize: 50,
	})

	require.NoError(t, err)
	q := got.URL.Query()
	require.Equal(t, "bitcoin", q.Get("q"))
	require.Equal(t, "us,gb", q.Get("country"))
	require.Equal(t, "en", q.Get("language"))
	require.Equal(t, "50", q.Get("page_size"))
	require.False(t, q.Has("category"), "unset filters must not be sent")
	require.False(t, q.Has("domain"))
}

func TestArticleAccessors(t *testing.T) {
	a := Article{
		"title":     "hello",
		"creator":   nil,
		"source_id": "",
		"category":  []any{"business"},
	}

	v, ok := a.Field("title")
	require.True(t, ok)
	require.Equal(t, "hello", v)

	_, ok = a.Field("creator")
	require.False(t, ok, "null fields count as absent")
	_, ok = a.Field("missing")
	require.False(t, ok)

	require.Equal(t, "unknown", a.StringOr("unknown", "source_id"), "empty string falls back")
	require.Equal(t, "hello", a.String("nope", "title"), "first non-empty key wins")
	require.Equal(t, "", a.String("category"), "non-string values are not coerced")
}
