package signal

import (
	"strings"

	"marketpulse/internal/logger"
)

const (
	positiveScore = 1.0
	neutralScore  = 0.0
	negativeScore = -1.0

	// DefaultConservativeWeight biases the pipeline toward caution:
	// negative news counts 1.5x.
	DefaultConservativeWeight = 1.5
)

// Quantifier maps categorical sentiment judgments to signed scores.
type Quantifier struct {
	conservativeWeight float64
}

// NewQuantifier builds a quantifier. Weights below 1.0 would bias the
// system optimistic and are clamped up to the default.
func NewQuantifier(conservativeWeight float64) *Quantifier {
	if conservativeWeight < 1.0 {
		conservativeWeight = DefaultConservativeWeight
	}
	return &Quantifier{conservativeWeight: conservativeWeight}
}

// Quantify converts one judgment to a score. Unknown labels count as
// neutral rather than failing the whole day.
func (q *Quantifier) Quantify(s Sentiment) float64 {
	switch Sentiment(strings.ToLower(strings.TrimSpace(string(s)))) {
	case SentimentPositive:
		return positiveScore
	case SentimentNegative:
		return negativeScore * q.conservativeWeight
	case SentimentNeutral:
		return neutralScore
	default:
		logger.Warnf("quantifier: unknown sentiment %q, treating as neutral", s)
		return neutralScore
	}
}

// DailyScore is the arithmetic mean of a day's article scores. An empty day
// is neutral, not an error.
func (q *Quantifier) DailyScore(sentiments []Sentiment) float64 {
	if len(sentiments) == 0 {
		return neutralScore
	}
	total := 0.0
	for _, s := range sentiments {
		total += q.Quantify(s)
	}
	return total / float64(len(sentiments))
}
