// Package timeparse normalizes the heterogeneous publish-date strings found
// in news feeds into UTC instants.
//
// News upstreams disagree on date formats: some emit ISO 8601 with a trailing
// Z, some embed an offset, some send naive datetimes, and RSS-derived records
// carry RFC 2822 mail-header dates. Parse tries each known shape in order and
// falls back to the current instant, so a malformed date never drops a record.
package timeparse

import (
	"strings"
	"time"
)

// layouts are tried in order. Naive layouts (no zone) are interpreted as UTC.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999", // ISO 8601 without zone, assume UTC
	"2006-01-02T15:04:05",
	// RFC 2822 style headers. Not time.RFC1123Z/RFC1123: those demand a
	// zero-padded day, and real feeds send "Tue, 3 Jun 2008". The day-"2"
	// form parses both one- and two-digit days.
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700", // RFC 2822 without weekday
	"2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05", // fixed space-separated pattern, assume UTC
	"2006-01-02",
}

// Parse converts a publish-date string into a UTC instant. An empty or
// unparseable input yields the current instant rather than an error: a
// missing timestamp must not lose the record it belongs to.
func Parse(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now().UTC()
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}
