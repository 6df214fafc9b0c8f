package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/broker"
	"marketpulse/internal/config"
	"marketpulse/internal/signal"
	"marketpulse/internal/store"
)

func openTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecord(corr string, outcome store.Outcome, pnl float64, at time.Time) store.TradeRecord {
	return store.TradeRecord{
		Order: broker.Order{
			Symbol:        "BTCUSDT",
			Side:          broker.SideSell,
			Quantity:      10,
			PriceHint:     95,
			Reason:        "stop_loss",
			CorrelationID: corr,
		},
		ExecutedPrice: 95,
		ExecutedAt:    at,
		SignalRatio:   42,
		Outcome:       outcome,
		PnL:           pnl,
	}
}

func TestAppendAndListTrades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.AppendTrade(ctx, sampleRecord("c1", store.OutcomeFilled, -50, now)))
	require.NoError(t, s.AppendTrade(ctx, sampleRecord("c2", store.OutcomeRejected, 0, now)))

	trades, err := s.ListTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	// Newest first.
	assert.Equal(t, "c2", trades[0].Order.CorrelationID)
	assert.Equal(t, store.OutcomeRejected, trades[0].Outcome)
	assert.Equal(t, "c1", trades[1].Order.CorrelationID)
	assert.Equal(t, int64(10), trades[1].Order.Quantity)
	assert.Equal(t, "stop_loss", trades[1].Order.Reason)
	assert.Equal(t, 42, trades[1].SignalRatio)
}

func TestDailyPnLSumsOnlyFilledToday(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.AppendTrade(ctx, sampleRecord("c1", store.OutcomeFilled, -50, now)))
	require.NoError(t, s.AppendTrade(ctx, sampleRecord("c2", store.OutcomeFilled, 30, now)))
	require.NoError(t, s.AppendTrade(ctx, sampleRecord("c3", store.OutcomeFailed, -999, now)))
	require.NoError(t, s.AppendTrade(ctx, sampleRecord("c4", store.OutcomeFilled, -999, now.AddDate(0, 0, -1))))

	pnl, err := s.DailyPnL(ctx, now)
	require.NoError(t, err)
	assert.InDelta(t, -20.0, pnl, 1e-9)
}

func TestHasFilledCorrelation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.AppendTrade(ctx, sampleRecord("c1", store.OutcomeFilled, 0, now)))
	require.NoError(t, s.AppendTrade(ctx, sampleRecord("c2", store.OutcomeFailed, 0, now)))

	filled, err := s.HasFilledCorrelation(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, filled)

	filled, err = s.HasFilledCorrelation(ctx, "c2")
	require.NoError(t, err)
	assert.False(t, filled, "a FAILED attempt does not count as filled")

	filled, err = s.HasFilledCorrelation(ctx, "")
	require.NoError(t, err)
	assert.False(t, filled)
}

func TestSignalSnapshotUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := signal.WeeklySignal{Ratio: 60, RawScore: 1.2, ComputedAt: time.Now(), TTL: time.Hour}
	require.NoError(t, s.SaveSignal(ctx, "krx", first, "improving"))

	second := signal.WeeklySignal{Ratio: 72, RawScore: 3.4, ComputedAt: time.Now(), TTL: time.Hour}
	require.NoError(t, s.SaveSignal(ctx, "KRX", second, "strong"))

	sig, summary, err := s.LatestSignal(ctx, "krx")
	require.NoError(t, err)
	assert.Equal(t, 72, sig.Ratio, "one row per scope, last write wins")
	assert.Equal(t, "strong", summary)

	sig, _, err = s.LatestSignal(ctx, "unknown")
	require.NoError(t, err)
	assert.Zero(t, sig.Ratio)
}

func TestTradingConfigRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	loaded, err := s.LoadTradingConfig(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded, "empty database has no persisted config")

	cfg := config.TradingConfig{
		MaxInvestment:   50000,
		MaxPositionSize: 10000,
		RiskLevel:       config.RiskHigh,
		TradingStart:    "09:00",
		TradingEnd:      "15:30",
		StopLossPct:     5,
		BuyThreshold:    80,
		SellThreshold:   20,
		SubmitRetries:   3,
	}
	require.NoError(t, s.SaveTradingConfig(ctx, cfg))

	cfg.RiskLevel = config.RiskLow
	require.NoError(t, s.SaveTradingConfig(ctx, cfg))

	loaded, err = s.LoadTradingConfig(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, config.RiskLow, loaded.RiskLevel)
	assert.Equal(t, 50000.0, loaded.MaxInvestment)
}
