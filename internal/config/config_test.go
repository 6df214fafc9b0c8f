package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalYAML = `
trading:
  max_investment: 50000
  max_position_size: 10000
broker:
  starting_cash: 100000
market:
  price_window: 30
  abnormal_move_pct: 7.0
`

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", minimalYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":9980", cfg.App.HTTPAddr)
	assert.Equal(t, 1.5, cfg.Signal.ConservativeWeight)
	assert.Equal(t, 0.3, cfg.Signal.SigmoidSteepness)
	assert.Equal(t, 10.0, cfg.Signal.VIXFloor)
	assert.Equal(t, 40.0, cfg.Signal.VIXCeiling)
	assert.Equal(t, RiskMedium, cfg.Trading.RiskLevel)
	assert.Equal(t, "09:00", cfg.Trading.TradingStart)
	assert.Equal(t, "15:30", cfg.Trading.TradingEnd)
	assert.Equal(t, 5.0, cfg.Trading.StopLossPct)
	assert.Equal(t, 80, cfg.Trading.BuyThreshold)
	assert.Equal(t, 20, cfg.Trading.SellThreshold)
	assert.Equal(t, 3, cfg.Trading.SubmitRetries)
	assert.Equal(t, "paper", cfg.Broker.Backend)
}

func TestLoadFollowsIncludes(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", minimalYAML)
	path := writeConfig(t, dir, "config.yaml", `
include: base.yaml
trading:
  risk_level: high
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, cfg.Trading.RiskLevel)
	assert.Equal(t, 50000.0, cfg.Trading.MaxInvestment, "included file supplies the base values")
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	base := `
broker:
  starting_cash: 100000
market:
  price_window: 30
  abnormal_move_pct: 7.0
trading:
  max_investment: 50000
  max_position_size: 10000
`
	tests := []struct {
		name string
		yaml string
	}{
		{"optimistic weight", base + "  risk_level: medium\nsignal:\n  conservative_weight: 0.5\n"},
		{"inverted thresholds", base + "  buy_threshold: 20\n  sell_threshold: 80\n"},
		{"bad window format", base + "  trading_start: \"9am\"\n"},
		{"unknown risk level", base + "  risk_level: reckless\n"},
		{"stop loss out of range", base + "  stop_loss_pct: 150\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "config.yaml", tt.yaml)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestWithinWindowBoundariesInclusive(t *testing.T) {
	cfg := TradingConfig{TradingStart: "09:00", TradingEnd: "15:30"}

	at := func(hour, minute int) time.Time {
		return time.Date(2026, 8, 28, hour, minute, 0, 0, time.UTC)
	}
	assert.False(t, cfg.WithinWindow(at(8, 59)))
	assert.True(t, cfg.WithinWindow(at(9, 0)))
	assert.True(t, cfg.WithinWindow(at(12, 0)))
	assert.True(t, cfg.WithinWindow(at(15, 30)))
	assert.False(t, cfg.WithinWindow(at(15, 31)))
}

func TestSymbolAllowed(t *testing.T) {
	cfg := TradingConfig{}
	assert.True(t, cfg.SymbolAllowed("BTCUSDT"), "no lists means everything is allowed")

	cfg.ExcludedSymbols = []string{"dogeusdt"}
	assert.False(t, cfg.SymbolAllowed("DOGEUSDT"))

	cfg.AllowedSymbols = []string{"BTCUSDT"}
	assert.True(t, cfg.SymbolAllowed("btcusdt"))
	assert.False(t, cfg.SymbolAllowed("ETHUSDT"))

	// Exclusion wins over the allow list.
	cfg.AllowedSymbols = []string{"DOGEUSDT"}
	assert.False(t, cfg.SymbolAllowed("DOGEUSDT"))
}

func TestRiskLevelMultiplier(t *testing.T) {
	assert.Equal(t, 0.5, RiskLow.Multiplier())
	assert.Equal(t, 1.0, RiskMedium.Multiplier())
	assert.Equal(t, 1.5, RiskHigh.Multiplier())
	assert.Equal(t, 1.0, RiskLevel("").Multiplier())
}
