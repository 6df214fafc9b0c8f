package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func week(v float64) []float64 {
	scores := make([]float64, WindowDays)
	for i := range scores {
		scores[i] = v
	}
	return scores
}

func TestWeeklySignalNeutralWeekIsFifty(t *testing.T) {
	c := NewCalculator(0.3, time.Hour)

	sig, err := c.WeeklySignal(week(0), week(0))
	require.NoError(t, err)
	assert.Equal(t, 50, sig.Ratio)
	assert.Equal(t, 0.0, sig.RawScore)
}

func TestWeeklySignalStrongPositiveWeek(t *testing.T) {
	c := NewCalculator(0.3, time.Hour)

	// Seven fully positive days at volatility weight 0.2: raw = 7 * 1.2.
	sig, err := c.WeeklySignal(week(1.0), week(0.2))
	require.NoError(t, err)
	assert.InDelta(t, 8.4, sig.RawScore, 1e-9)
	assert.GreaterOrEqual(t, sig.Ratio, 80)
}

func TestWeeklySignalStrongNegativeWeek(t *testing.T) {
	c := NewCalculator(0.3, time.Hour)

	sig, err := c.WeeklySignal(week(-1.5), week(0.5))
	require.NoError(t, err)
	assert.LessOrEqual(t, sig.Ratio, 20)
}

func TestWeeklySignalMonotonicInSentiment(t *testing.T) {
	c := NewCalculator(0.3, time.Hour)

	prev := -1
	for _, daily := range []float64{-1.5, -0.5, 0, 0.5, 1.0} {
		sig, err := c.WeeklySignal(week(daily), week(0.3))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, sig.Ratio, prev, "daily=%v", daily)
		prev = sig.Ratio
	}
}

func TestWeeklySignalVolatilityAmplifies(t *testing.T) {
	c := NewCalculator(0.3, time.Hour)

	calm, err := c.WeeklySignal(week(1.0), week(0.0))
	require.NoError(t, err)
	tense, err := c.WeeklySignal(week(1.0), week(1.0))
	require.NoError(t, err)
	assert.Greater(t, tense.Ratio, calm.Ratio)

	// Amplification never flips sign: a negative week gets more negative.
	calmNeg, err := c.WeeklySignal(week(-1.0), week(0.0))
	require.NoError(t, err)
	tenseNeg, err := c.WeeklySignal(week(-1.0), week(1.0))
	require.NoError(t, err)
	assert.Less(t, tenseNeg.Ratio, calmNeg.Ratio)
}

func TestWeeklySignalRatioStaysInBounds(t *testing.T) {
	c := NewCalculator(0.3, time.Hour)

	for _, daily := range []float64{-1000, -1.5, 0, 1.5, 1000} {
		sig, err := c.WeeklySignal(week(daily), week(1.0))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, sig.Ratio, 0)
		assert.LessOrEqual(t, sig.Ratio, 100)
	}
}

func TestWeeklySignalInsufficientData(t *testing.T) {
	c := NewCalculator(0.3, time.Hour)

	_, err := c.WeeklySignal(week(1.0)[:6], week(0.2)[:6])
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestWeeklySignalRejectsBadInput(t *testing.T) {
	c := NewCalculator(0.3, time.Hour)

	_, err := c.WeeklySignal(week(1.0), week(0.2)[:6])
	assert.ErrorIs(t, err, ErrInvalidInput)

	badWeights := week(0.2)
	badWeights[3] = 1.7
	_, err = c.WeeklySignal(week(1.0), badWeights)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestInterpretationBuckets(t *testing.T) {
	assert.Equal(t, "Strong Sell", WeeklySignal{Ratio: 30}.Interpretation())
	assert.Equal(t, "Neutral", WeeklySignal{Ratio: 31}.Interpretation())
	assert.Equal(t, "Neutral", WeeklySignal{Ratio: 70}.Interpretation())
	assert.Equal(t, "Strong Buy", WeeklySignal{Ratio: 71}.Interpretation())
}
