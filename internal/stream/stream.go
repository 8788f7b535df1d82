// Package stream partitions enriched articles into label-keyed streams.
//
// A stream's label set combines the run's base labels (job, static labels,
// query) with two per-article labels: source and language. The label set is
// fixed before the first entry is appended; entries keep append order here
// and are sorted by timestamp only when the sink payload is built.
package stream

import (
	"sort"
	"strings"
	"time"

	"github.com/gauthierbraillon/newstream/internal/enrich"
	"github.com/gauthierbraillon/newstream/internal/newsdata"
	"github.com/gauthierbraillon/newstream/internal/sentiment"
	"github.com/gauthierbraillon/newstream/internal/timeparse"
)

// Entry is one timestamped encoded line inside a stream.
type Entry struct {
	Timestamp int64 // nanoseconds since epoch
	Line      string
}

// Stream is an ordered group of entries sharing one label set.
type Stream struct {
	Labels  map[string]string
	Entries []Entry
}

// Options control how articles are grouped.
type Options struct {
	// BaseLabels are attached to every stream (job, static labels, query).
	BaseLabels map[string]string

	// IngestTime stamps entries with the current instant instead of each
	// article's publish date.
	IngestTime bool

	// Scorer, when non-nil, adds sentiment fields to every encoded line.
	Scorer sentiment.Scorer
}

// Group partitions articles into one stream per distinct label set. Every
// article lands in exactly one stream; articles with no usable source or
// language fall into the "unknown" buckets. The returned slice is sorted by
// canonical label key so iteration order is deterministic within a run.
func Group(articles []newsdata.Article, opts Options) []Stream {
	byKey := make(map[string]*Stream)

	for _, a := range articles {
		labels := make(map[string]string, len(opts.BaseLabels)+2)
		for k, v := range opts.BaseLabels {
			labels[k] = v
		}
		labels["source"] = a.StringOr("unknown", "source_id")
		labels["language"] = a.StringOr("unknown", "language")

		var ts int64
		if opts.IngestTime {
			ts = time.Now().UTC().UnixNano()
		} else {
			// The publish-date key has drifted across feed versions.
			ts = timeparse.Parse(a.String("pubDate", "pub_date", "date")).UnixNano()
		}

		key := canonicalKey(labels)
		s, ok := byKey[key]
		if !ok {
			s = &Stream{Labels: labels}
			byKey[key] = s
		}
		s.Entries = append(s.Entries, Entry{
			Timestamp: ts,
			Line:      enrich.Line(a, opts.Scorer),
		})
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Stream, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byKey[k])
	}
	return out
}

// canonicalKey serializes a label set as a totally ordered string so that
// structural label equality becomes string equality.
func canonicalKey(labels map[string]string) string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(0)
		}
		b.WriteString(name)
		b.WriteByte(0)
		b.WriteString(labels[name])
	}
	return b.String()
}
