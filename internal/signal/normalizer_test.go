package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeClampsToBand(t *testing.T) {
	n, err := NewNormalizer(10, 40)
	require.NoError(t, err)

	tests := []struct {
		raw  float64
		want float64
	}{
		{5, 0.0},  // below floor clamps down
		{10, 0.0}, // floor
		{25, 0.5}, // midpoint
		{40, 1.0}, // ceiling
		{80, 1.0}, // above ceiling clamps up
	}
	for _, tt := range tests {
		got, err := n.Normalize(tt.raw)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-9, "raw=%v", tt.raw)
	}
}

func TestNormalizeRejectsNegativeReading(t *testing.T) {
	n, err := NewNormalizer(10, 40)
	require.NoError(t, err)

	_, err = n.Normalize(-1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewNormalizerRejectsBadBand(t *testing.T) {
	_, err := NewNormalizer(40, 10)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewNormalizer(-1, 40)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewNormalizer(20, 20)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
