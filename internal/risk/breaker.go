package risk

import (
	"fmt"
	"math"

	"marketpulse/internal/config"
	"marketpulse/internal/logger"

	"github.com/markcheno/go-talib"
)

// BreakerVerdict explains a circuit-breaker evaluation.
type BreakerVerdict struct {
	Tripped bool
	Reason  string
}

// CheckCircuitBreaker trips on abnormal short-term market movement,
// independent of the sentiment signal. It looks at the rate of change over
// the recent close series and at the raw volatility index.
func (m *Manager) CheckCircuitBreaker(recentCloses []float64, rawVIX float64, cfg config.MarketConfig) BreakerVerdict {
	if rawVIX > cfg.AbnormalVIXThreshold {
		return BreakerVerdict{Tripped: true, Reason: breakerReason("volatility index %.1f above %.1f", rawVIX, cfg.AbnormalVIXThreshold)}
	}
	if len(recentCloses) < 2 {
		// Not enough data to judge; stay closed rather than halting on
		// a cold start.
		return BreakerVerdict{}
	}
	period := len(recentCloses) - 1
	roc := talib.Roc(recentCloses, period)
	move := math.Abs(roc[len(roc)-1])
	if move >= cfg.AbnormalMovePct {
		return BreakerVerdict{Tripped: true, Reason: breakerReason("price moved %.2f%% over window (limit %.2f%%)", move, cfg.AbnormalMovePct)}
	}
	// Dispersion check: a sustained whipsaw can exceed normal bounds even
	// when the endpoints net out.
	stddev := talib.StdDev(recentCloses, len(recentCloses), 1.0)
	mean := talib.Sma(recentCloses, len(recentCloses))
	last := len(recentCloses) - 1
	if mean[last] > 0 {
		relDisp := stddev[last] / mean[last] * 100
		if relDisp >= cfg.AbnormalMovePct {
			return BreakerVerdict{Tripped: true, Reason: breakerReason("close dispersion %.2f%% over window (limit %.2f%%)", relDisp, cfg.AbnormalMovePct)}
		}
	}
	return BreakerVerdict{}
}

func breakerReason(format string, args ...any) string {
	reason := fmt.Sprintf(format, args...)
	logger.Warnf("risk: circuit breaker tripped: %s", reason)
	return reason
}
