package signal

import (
	"errors"
	"time"
)

var (
	// ErrInvalidInput marks malformed data rejected at the boundary.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientData marks an incomplete week; the decision is
	// deferred, never guessed.
	ErrInsufficientData = errors.New("insufficient data")
)

// Sentiment is the categorical judgment produced upstream per article.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// DailySentimentScore is one day's aggregated article score. Immutable
// after creation; read-only input to the pipeline.
type DailySentimentScore struct {
	Date  time.Time
	Score float64
}

// VolatilityReading pairs a raw index value with its derived [0,1] weight.
type VolatilityReading struct {
	Timestamp  time.Time
	RawValue   float64
	Normalized float64
}

// WeeklySignal is the sole externally meaningful pipeline output.
// Ratio is always an integer in [0, 100].
type WeeklySignal struct {
	Ratio      int           `json:"ratio"`
	RawScore   float64       `json:"raw_score"`
	ComputedAt time.Time     `json:"computed_at"`
	TTL        time.Duration `json:"-"`
}

// Interpretation buckets the ratio for display only; engine thresholds are
// configured separately.
func (s WeeklySignal) Interpretation() string {
	switch {
	case s.Ratio <= 30:
		return "Strong Sell"
	case s.Ratio <= 70:
		return "Neutral"
	default:
		return "Strong Buy"
	}
}
