package risk

import "errors"

// ErrInvariantViolation marks a state the design rules out (negative
// quantity, zero average price). Always fatal to the current cycle.
var ErrInvariantViolation = errors.New("invariant violation")

// RejectReason enumerates why a proposed order was denied. Rejections are
// expected outcomes, recorded but never retried.
type RejectReason string

const (
	RejectNone             RejectReason = ""
	RejectOutsideWindow    RejectReason = "outside_trading_window"
	RejectSymbolNotAllowed RejectReason = "symbol_not_allowed"
	RejectDailyLossLimit   RejectReason = "daily_loss_limit"
	RejectInsufficientCash RejectReason = "insufficient_cash"
	RejectInsufficientQty  RejectReason = "insufficient_quantity"
	RejectPositionCap      RejectReason = "position_cap_exceeded"
	RejectSafetyHalt       RejectReason = "safety_halt"
)

// Verdict is the outcome of validating one order.
type Verdict struct {
	Admitted bool
	Reason   RejectReason
	Detail   string
}

func admit() Verdict {
	return Verdict{Admitted: true}
}

func reject(reason RejectReason, detail string) Verdict {
	return Verdict{Reason: reason, Detail: detail}
}
