// Package metrics computes per-group sentiment aggregates and renders them in
// the Prometheus text exposition format consumed by the time-series sink.
//
// The line format here — name{label="value",...} value timestamp_ms — is the
// one wire contract shared with external batch converters; keep it stable.
package metrics

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/gauthierbraillon/newstream/internal/newsdata"
	"github.com/gauthierbraillon/newstream/internal/sentiment"
)

// Metric names for the sentiment reduction.
const (
	MetricSentimentAvg   = "news_sentiment_avg"
	MetricSentimentCount = "news_sentiment_count"
)

// Sample is one numeric sample bound for the time-series sink.
type Sample struct {
	Name        string
	Labels      map[string]string
	Value       float64
	TimestampMS int64
}

// PromLine renders one sample line. Labels are sorted by name and values are
// escaped for backslash and quote characters.
func PromLine(name string, labels map[string]string, value float64, tsMS int64) string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(escapeLabelValue(labels[k]))
		b.WriteByte('"')
	}
	b.WriteString("} ")
	b.WriteString(strconv.FormatFloat(value, 'g', -1, 64))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(tsMS, 10))
	b.WriteByte('\n')
	return b.String()
}

// Render concatenates samples into one exposition body.
func Render(samples []Sample) string {
	var b strings.Builder
	for _, s := range samples {
		b.WriteString(PromLine(s.Name, s.Labels, s.Value, s.TimestampMS))
	}
	return b.String()
}

func escapeLabelValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `"`, `\"`)
}

type aggregate struct {
	sum float64
	n   int
}

type groupKey struct {
	source   string
	language string
}

// SentimentSamples reduces articles to per-(source, language) average and
// count samples. Articles whose title and description are both empty
// contribute nothing. Base labels are reattached at emission only; the
// reduction itself keys on source and language alone. All samples share the
// one tsMS batch timestamp. A nil scorer yields no samples.
func SentimentSamples(articles []newsdata.Article, scorer sentiment.Scorer, baseLabels map[string]string, tsMS int64) []Sample {
	if scorer == nil {
		return nil
	}

	groups := make(map[groupKey]*aggregate)
	for _, a := range articles {
		title := strings.TrimSpace(a.String("title"))
		desc := strings.TrimSpace(a.String("description"))
		text := strings.TrimSpace(title + " " + desc)
		if text == "" {
			continue
		}
		key := groupKey{
			source:   a.StringOr("unknown", "source_id"),
			language: a.StringOr("unknown", "language"),
		}
		g, ok := groups[key]
		if !ok {
			g = &aggregate{}
			groups[key] = g
		}
		g.sum += scorer.Score(text)
		g.n++
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].source != keys[j].source {
			return keys[i].source < keys[j].source
		}
		return keys[i].language < keys[j].language
	})

	samples := make([]Sample, 0, 2*len(keys))
	for _, key := range keys {
		g := groups[key]
		if g.n == 0 {
			continue
		}
		labels := make(map[string]string, len(baseLabels)+2)
		for k, v := range baseLabels {
			labels[k] = v
		}
		labels["source"] = key.source
		labels["language"] = key.language

		avg := math.Round(g.sum/float64(g.n)*1e6) / 1e6
		samples = append(samples,
			Sample{Name: MetricSentimentAvg, Labels: labels, Value: avg, TimestampMS: tsMS},
			Sample{Name: MetricSentimentCount, Labels: labels, Value: float64(g.n), TimestampMS: tsMS},
		)
	}
	return samples
}
