package store

import (
	"context"
	"time"

	"marketpulse/internal/broker"
	"marketpulse/internal/config"
	"marketpulse/internal/signal"
)

// Outcome is the terminal status of a trade decision. Every generated
// order gets exactly one record; a trade is never silently dropped.
type Outcome string

const (
	OutcomeFilled   Outcome = "FILLED"
	OutcomeRejected Outcome = "REJECTED"
	OutcomeFailed   Outcome = "FAILED"
)

// TradeRecord is one append-only audit entry per decision, including
// rejected and failed attempts.
type TradeRecord struct {
	ID            int64
	Order         broker.Order
	ExecutedPrice float64
	ExecutedAt    time.Time
	SignalRatio   int
	Outcome       Outcome
	Detail        string
	PnL           float64
}

// Store is the persistence collaborator: a simple record store for audit
// entries, signal snapshots and the operator's trading config.
type Store interface {
	AppendTrade(ctx context.Context, rec TradeRecord) error
	ListTrades(ctx context.Context, limit int) ([]TradeRecord, error)
	DailyPnL(ctx context.Context, day time.Time) (float64, error)
	HasFilledCorrelation(ctx context.Context, correlationID string) (bool, error)

	SaveSignal(ctx context.Context, scope string, sig signal.WeeklySignal, summary string) error
	LatestSignal(ctx context.Context, scope string) (signal.WeeklySignal, string, error)

	SaveTradingConfig(ctx context.Context, cfg config.TradingConfig) error
	LoadTradingConfig(ctx context.Context) (*config.TradingConfig, error)

	Close() error
}
