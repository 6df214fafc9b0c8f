package signal

import (
	"fmt"
	"time"
)

// Normalizer maps raw volatility index readings to a bounded [0,1] weight
// via a linear min-max clamp. Volatility only scales sentiment influence;
// it can never invert its sign.
type Normalizer struct {
	floor   float64
	ceiling float64
}

// NewNormalizer uses the configured historical band (default 10-40).
func NewNormalizer(floor, ceiling float64) (*Normalizer, error) {
	if floor < 0 || ceiling <= floor {
		return nil, fmt.Errorf("%w: volatility band floor=%v ceiling=%v", ErrInvalidInput, floor, ceiling)
	}
	return &Normalizer{floor: floor, ceiling: ceiling}, nil
}

// Normalize clamps rawVIX against the band and scales to [0,1].
func (n *Normalizer) Normalize(rawVIX float64) (float64, error) {
	if rawVIX < 0 {
		return 0, fmt.Errorf("%w: volatility index cannot be negative, got %v", ErrInvalidInput, rawVIX)
	}
	clamped := rawVIX
	if clamped < n.floor {
		clamped = n.floor
	}
	if clamped > n.ceiling {
		clamped = n.ceiling
	}
	return (clamped - n.floor) / (n.ceiling - n.floor), nil
}

// Reading builds a timestamped VolatilityReading from a raw value.
func (n *Normalizer) Reading(rawVIX float64, at time.Time) (VolatilityReading, error) {
	norm, err := n.Normalize(rawVIX)
	if err != nil {
		return VolatilityReading{}, err
	}
	return VolatilityReading{Timestamp: at, RawValue: rawVIX, Normalized: norm}, nil
}
