package broker

import (
	"context"
	"errors"
	"time"
)

// ErrExternalFailure wraps brokerage/network faults; the engine retries
// these with bounded backoff before escalating.
var ErrExternalFailure = errors.New("external failure")

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Order is created by the engine and never mutated after submission.
// CorrelationID makes resubmission idempotent at the brokerage boundary.
type Order struct {
	Symbol        string  `json:"symbol"`
	Side          Side    `json:"side"`
	Quantity      int64   `json:"quantity"`
	PriceHint     float64 `json:"price_hint"`
	Reason        string  `json:"reason"`
	CorrelationID string  `json:"correlation_id"`
}

// TradeResult reports a filled submission.
type TradeResult struct {
	OrderID       string
	Symbol        string
	Side          Side
	Quantity      int64
	ExecutedPrice float64
	ExecutedAt    time.Time
	Duplicate     bool // true when the correlation ID was already filled
}

// Holding is refreshed by account sync; quantity is never negative in this
// design (no naked shorts).
type Holding struct {
	Symbol       string
	Quantity     int64
	AveragePrice float64
	CurrentPrice float64
}

// Brokerage is the only blocking external call in the core. Implementations
// must honor ctx deadlines; a timeout counts as a failure.
type Brokerage interface {
	SubmitOrder(ctx context.Context, order Order) (TradeResult, error)
	Holdings(ctx context.Context) ([]Holding, error)
	AvailableCash(ctx context.Context) (float64, error)
}
