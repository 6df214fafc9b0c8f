package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"marketpulse/internal/config"
)

func testMarketConfig() config.MarketConfig {
	return config.MarketConfig{
		PriceWindow:          30,
		AbnormalMovePct:      7.0,
		AbnormalVIXThreshold: 40.0,
	}
}

func TestCircuitBreakerTripsOnVIX(t *testing.T) {
	m := NewManager()

	v := m.CheckCircuitBreaker([]float64{100, 100, 100}, 45.0, testMarketConfig())
	assert.True(t, v.Tripped)
	assert.Contains(t, v.Reason, "volatility index")
}

func TestCircuitBreakerVIXAtThresholdStaysClosed(t *testing.T) {
	m := NewManager()

	v := m.CheckCircuitBreaker([]float64{100, 100, 100}, 40.0, testMarketConfig())
	assert.False(t, v.Tripped)
}

func TestCircuitBreakerTripsOnAbnormalMove(t *testing.T) {
	m := NewManager()

	// 10% move across the window exceeds the 7% limit.
	closes := []float64{100, 102, 104, 107, 110}
	v := m.CheckCircuitBreaker(closes, 20.0, testMarketConfig())
	assert.True(t, v.Tripped)
	assert.Contains(t, v.Reason, "price moved")
}

func TestCircuitBreakerTripsOnAbnormalDrop(t *testing.T) {
	m := NewManager()

	closes := []float64{100, 98, 95, 92, 90}
	v := m.CheckCircuitBreaker(closes, 20.0, testMarketConfig())
	assert.True(t, v.Tripped)
}

func TestCircuitBreakerCalmMarketStaysClosed(t *testing.T) {
	m := NewManager()

	closes := []float64{100, 100.2, 100.1, 100.4, 100.3}
	v := m.CheckCircuitBreaker(closes, 18.0, testMarketConfig())
	assert.False(t, v.Tripped)
}

func TestCircuitBreakerColdStartStaysClosed(t *testing.T) {
	m := NewManager()

	v := m.CheckCircuitBreaker(nil, 18.0, testMarketConfig())
	assert.False(t, v.Tripped)

	v = m.CheckCircuitBreaker([]float64{100}, 18.0, testMarketConfig())
	assert.False(t, v.Tripped)
}
