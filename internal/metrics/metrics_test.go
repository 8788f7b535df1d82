package metrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gauthierbraillon/newstream/internal/newsdata"
)

// scoreByTitle maps exact sentiment text to fixed scores for deterministic
// aggregation tests.
type scoreByTitle map[string]float64

func (s scoreByTitle) Score(text string) float64 { return s[text] }

func TestPromLine_Format(t *testing.T) {
	line := PromLine("news_sentiment_avg", map[string]string{
		"source":   "abc",
		"job":      "newsdata",
		"language": "en",
	}, 0.25, 1717243200000)

	require.Equal(t, `news_sentiment_avg{job="newsdata",language="en",source="abc"} 0.25 1717243200000`+"\n", line)
}

func TestPromLine_LabelsSortedByName(t *testing.T) {
	line := PromLine("m", map[string]string{"z": "1", "a": "2", "m": "3"}, 1, 0)
	require.Equal(t, `m{a="2",m="3",z="1"} 1 0`+"\n", line)
}

func TestPromLine_EscapesQuotesAndBackslashes(t *testing.T) {
	line := PromLine("m", map[string]string{"q": `say "hi" \ bye`}, 1, 0)
	require.Equal(t, `m{q="say \"hi\" \\ bye"} 1 0`+"\n", line)
}

func TestPromLine_IntegerValue(t *testing.T) {
	line := PromLine("news_sentiment_count", map[string]string{"source": "s"}, 7, 5)
	require.Equal(t, `news_sentiment_count{source="s"} 7 5`+"\n", line)
}

func TestSentimentSamples_GroupsBySourceAndLanguage(t *testing.T) {
	articles := []newsdata.Article{
		{"title": "good", "source_id": "abc", "language": "en"},
		{"title": "bad", "source_id": "abc", "language": "en"},
		{"title": "meh", "source_id": "xyz", "language": "de"},
	}
	scorer := scoreByTitle{"good": 0.8, "bad": -0.4, "meh": 0.1}
	base := map[string]string{"job": "newsdata", "q": "bitcoin"}

	samples := SentimentSamples(articles, scorer, base, 1000)

	require.Len(t, samples, 4, "two samples per group")

	avg := samples[0]
	require.Equal(t, MetricSentimentAvg, avg.Name)
	require.Equal(t, "abc", avg.Labels["source"])
	require.Equal(t, "en", avg.Labels["language"])
	require.Equal(t, "newsdata", avg.Labels["job"], "base labels are reattached at emission")
	require.Equal(t, "bitcoin", avg.Labels["q"])
	require.InDelta(t, 0.2, avg.Value, 1e-9)
	require.Equal(t, int64(1000), avg.TimestampMS)

	count := samples[1]
	require.Equal(t, MetricSentimentCount, count.Name)
	require.Equal(t, float64(2), count.Value)

	require.Equal(t, "xyz", samples[2].Labels["source"])
	require.Equal(t, float64(1), samples[3].Value)
}

func TestSentimentSamples_AverageRoundedTo6Decimals(t *testing.T) {
	articles := []newsdata.Article{
		{"title": "a", "source_id": "s", "language": "en"},
		{"title": "b", "source_id": "s", "language": "en"},
		{"title": "c", "source_id": "s", "language": "en"},
	}
	scorer := scoreByTitle{"a": 0.1, "b": 0.1, "c": 0.2}

	samples := SentimentSamples(articles, scorer, nil, 0)
	require.InDelta(t, 0.133333, samples[0].Value, 1e-9)
}

func TestSentimentSamples_SkipsEmptyText(t *testing.T) {
	articles := []newsdata.Article{
		{"source_id": "s", "language": "en"},
		{"title": "", "description": "  ", "source_id": "s", "language": "en"},
	}

	samples := SentimentSamples(articles, scoreByTitle{}, nil, 0)
	require.Empty(t, samples)
}

func TestSentimentSamples_NilScorer(t *testing.T) {
	articles := []newsdata.Article{{"title": "something", "source_id": "s"}}
	require.Nil(t, SentimentSamples(articles, nil, nil, 0))
}

func TestSentimentSamples_UnknownDefaults(t *testing.T) {
	articles := []newsdata.Article{{"title": "x"}}
	samples := SentimentSamples(articles, scoreByTitle{"x": 0.5}, nil, 0)

	require.Len(t, samples, 2)
	require.Equal(t, "unknown", samples[0].Labels["source"])
	require.Equal(t, "unknown", samples[0].Labels["language"])
}

func TestRender_OneLinePerSample(t *testing.T) {
	samples := []Sample{
		{Name: "a", Labels: map[string]string{"k": "v"}, Value: 1, TimestampMS: 10},
		{Name: "b", Labels: map[string]string{"k": "v"}, Value: 2, TimestampMS: 10},
	}

	body := Render(samples)
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "a{"))
	require.True(t, strings.HasPrefix(lines[1], "b{"))
}
