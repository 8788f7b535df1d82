// Package sentiment maps free text to a bounded polarity score.
//
// The production Scorer wraps the VADER lexicon (govader). Callers that run
// without sentiment enabled, or in environments where the lexicon engine is
// unavailable, use Neutral instead; enrichment never blocks on scoring.
package sentiment

import (
	"strings"

	"github.com/jonreiter/govader"
)

// Label thresholds are fixed, not configurable.
const (
	positiveThreshold = 0.2
	negativeThreshold = -0.2
)

// Scorer maps free text to a polarity score in [-1, 1].
type Scorer interface {
	Score(text string) float64
}

// Label buckets a score into "pos", "neg", or "neu".
func Label(score float64) string {
	switch {
	case score >= positiveThreshold:
		return "pos"
	case score <= negativeThreshold:
		return "neg"
	default:
		return "neu"
	}
}

// VaderScorer scores text with the VADER compound polarity.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVader builds a VADER-backed scorer.
func NewVader() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score returns the compound polarity of text, or 0 for empty input.
func (s *VaderScorer) Score(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return s.analyzer.PolarityScores(text).Compound
}

// Neutral is the no-op scorer substituted when scoring is unavailable.
type Neutral struct{}

// Score always returns 0.
func (Neutral) Score(string) float64 { return 0 }
