// Package enrich projects raw articles into the compact encoded lines shipped
// to the log sink.
package enrich

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/gauthierbraillon/newstream/internal/newsdata"
	"github.com/gauthierbraillon/newstream/internal/sentiment"
)

// Only whitelisted fields survive enrichment, in this order.
var whitelist = []string{
	"title", "link", "source_id", "pubDate", "creator",
	"description", "content", "category", "country", "language",
}

// Long free-text fields are clipped to keep payloads bounded.
const (
	maxFieldChars = 2000
	ellipsis      = "..."
)

var truncated = map[string]bool{"description": true, "content": true}

// Line encodes one article as a compact JSON object with deterministic key
// order: the whitelist order, then the sentiment fields when a scorer is
// given. Absent and null fields are omitted. A nil scorer skips sentiment.
func Line(a newsdata.Article, scorer sentiment.Scorer) string {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	writeField := func(key string, value any) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeJSON(&buf, key)
		buf.WriteByte(':')
		writeJSON(&buf, value)
	}

	for _, key := range whitelist {
		v, ok := a.Field(key)
		if !ok {
			continue
		}
		if s, isStr := v.(string); isStr && truncated[key] {
			v = truncate(s)
		}
		writeField(key, v)
	}

	if scorer != nil {
		// Label from the raw score; rounding is display-only.
		score := scorer.Score(sentimentText(a))
		writeField("sentiment", round4(score))
		writeField("sentiment_label", sentiment.Label(score))
	}

	buf.WriteByte('}')
	return buf.String()
}

// sentimentText joins title and description with empty-string fallbacks.
func sentimentText(a newsdata.Article) string {
	title := a.String("title")
	desc := a.String("description")
	return strings.TrimSpace(title + " " + desc)
}

// truncate clips s to maxFieldChars characters plus the ellipsis marker.
// The budget counts characters, not bytes.
func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxFieldChars {
		return s
	}
	return string(runes[:maxFieldChars]) + ellipsis
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// writeJSON marshals v compactly without HTML escaping, matching the sink's
// expectation of raw UTF-8 text in log lines.
func writeJSON(buf *bytes.Buffer, v any) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encoding the whitelisted scalar and container types cannot fail.
	_ = enc.Encode(v)
	buf.Truncate(buf.Len() - 1) // drop the newline Encode appends
}
