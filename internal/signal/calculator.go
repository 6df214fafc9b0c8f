package signal

import (
	"fmt"
	"math"
	"time"

	"marketpulse/internal/logger"
)

// WindowDays is the fixed decision window; partial weeks defer the decision.
const WindowDays = 7

// Calculator aggregates a week of daily scores, weighted by volatility,
// into a 0-100 ratio.
type Calculator struct {
	steepness float64
	ttl       time.Duration
	now       func() time.Time
}

func NewCalculator(steepness float64, ttl time.Duration) *Calculator {
	if steepness <= 0 {
		steepness = 0.3
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Calculator{steepness: steepness, ttl: ttl, now: time.Now}
}

// WeeklySignal computes the signal for exactly WindowDays ordered daily
// scores with matching volatility weights. Order is preserved for future
// decay weighting even though the plain sum ignores it.
func (c *Calculator) WeeklySignal(dailyScores []float64, volWeights []float64) (WeeklySignal, error) {
	if len(dailyScores) < WindowDays {
		return WeeklySignal{}, fmt.Errorf("%w: need %d daily scores, got %d", ErrInsufficientData, WindowDays, len(dailyScores))
	}
	if len(volWeights) != len(dailyScores) {
		return WeeklySignal{}, fmt.Errorf("%w: %d scores but %d volatility weights", ErrInvalidInput, len(dailyScores), len(volWeights))
	}
	raw := 0.0
	for i, score := range dailyScores {
		w := volWeights[i]
		if w < 0 || w > 1 {
			return WeeklySignal{}, fmt.Errorf("%w: volatility weight %v outside [0,1]", ErrInvalidInput, w)
		}
		raw += score * (1 + w)
	}
	ratio := c.ratioFromRaw(raw)
	logger.Debugf("calculator: raw=%.3f ratio=%d", raw, ratio)
	return WeeklySignal{
		Ratio:      ratio,
		RawScore:   raw,
		ComputedAt: c.now(),
		TTL:        c.ttl,
	}, nil
}

// ratioFromRaw squashes the raw score through a sigmoid centered at zero so
// neutral sentiment lands exactly on 50, then clamps against float edges.
func (c *Calculator) ratioFromRaw(raw float64) int {
	ratio := int(math.Round(sigmoid(raw, c.steepness) * 100))
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 100 {
		ratio = 100
	}
	return ratio
}

func sigmoid(x, steepness float64) float64 {
	v := 1.0 / (1.0 + math.Exp(-steepness*x))
	if math.IsNaN(v) {
		if x < 0 {
			return 0
		}
		return 1
	}
	return v
}
