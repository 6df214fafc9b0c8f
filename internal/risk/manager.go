package risk

import (
	"fmt"
	"strings"
	"time"

	"marketpulse/internal/broker"
	"marketpulse/internal/config"
	"marketpulse/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StopLossReason tags full-exit orders emitted by the stop-loss sweep.
// Orders carrying it bypass the cash and position-cap checks in Validate,
// but never the trading-window or safety checks.
const StopLossReason = "stop_loss"

// AccountState is the snapshot a validation runs against. It is read-locked
// by the engine for the duration of a decision.
type AccountState struct {
	Cash           float64
	InvestedAmount float64
	DailyPnL       float64
	Holdings       []broker.Holding
	SafetyHalted   bool
}

// Manager validates orders, sizes positions and detects stop-loss and
// circuit-breaker conditions. Stateless per call; every method works only
// on the snapshots it is given.
type Manager struct {
	now func() time.Time
}

func NewManager() *Manager {
	return &Manager{now: time.Now}
}

// Validate runs the admission checks in order, short-circuiting on the
// first failure.
func (m *Manager) Validate(order broker.Order, account AccountState, cfg config.TradingConfig) Verdict {
	if !cfg.WithinWindow(m.now()) {
		return reject(RejectOutsideWindow, fmt.Sprintf("window %s-%s", cfg.TradingStart, cfg.TradingEnd))
	}
	if !cfg.SymbolAllowed(order.Symbol) {
		return reject(RejectSymbolNotAllowed, order.Symbol)
	}
	if cfg.DailyLossLimit > 0 && account.DailyPnL < -cfg.DailyLossLimit {
		return reject(RejectDailyLossLimit, fmt.Sprintf("daily pnl %.2f below -%.2f", account.DailyPnL, cfg.DailyLossLimit))
	}

	stopLoss := order.Reason == StopLossReason
	notional := decimal.NewFromFloat(order.PriceHint).Mul(decimal.NewFromInt(order.Quantity))

	if !stopLoss {
		switch order.Side {
		case broker.SideBuy:
			if decimal.NewFromFloat(account.Cash).LessThan(notional) {
				return reject(RejectInsufficientCash, fmt.Sprintf("cash %.2f < %s", account.Cash, notional))
			}
		case broker.SideSell:
			held := heldQuantity(account.Holdings, order.Symbol)
			if held < order.Quantity {
				return reject(RejectInsufficientQty, fmt.Sprintf("held %d < %d", held, order.Quantity))
			}
		}
		if order.Side == broker.SideBuy {
			cap := perTradeCap(cfg)
			if notional.GreaterThan(cap) {
				return reject(RejectPositionCap, fmt.Sprintf("notional %s > cap %s", notional, cap))
			}
			invested := decimal.NewFromFloat(account.InvestedAmount)
			if invested.Add(notional).GreaterThan(decimal.NewFromFloat(cfg.MaxInvestment)) {
				return reject(RejectPositionCap, fmt.Sprintf("total %s would exceed max investment %.2f", invested.Add(notional), cfg.MaxInvestment))
			}
		}
	}

	if account.SafetyHalted {
		return reject(RejectSafetyHalt, "engine is in safety halt")
	}
	return admit()
}

// PositionSize turns a signal ratio into a share count. Sizing is
// monotonically non-decreasing in both ratio and risk level; a ratio below
// the buy threshold sizes to zero, with no speculative partial buys.
func (m *Manager) PositionSize(ratio int, availableCash, price float64, cfg config.TradingConfig) int64 {
	if ratio < cfg.BuyThreshold || price <= 0 || availableCash <= 0 {
		return 0
	}
	confidence := scaledConfidence(ratio, cfg.BuyThreshold)
	amount := decimal.NewFromFloat(availableCash).
		Mul(decimal.NewFromFloat(cfg.RiskLevel.Multiplier())).
		Mul(decimal.NewFromFloat(confidence))
	if cap := perTradeCap(cfg); amount.GreaterThan(cap) {
		amount = cap
	}
	priceDec := decimal.NewFromFloat(price)
	quantity := amount.Div(priceDec).IntPart()
	// At least one share when the budget covers it.
	if quantity == 0 && amount.GreaterThanOrEqual(priceDec) {
		quantity = 1
	}
	return quantity
}

// scaledConfidence maps ratio in [buyThreshold, 100] linearly onto [0, 1].
func scaledConfidence(ratio, buyThreshold int) float64 {
	if buyThreshold >= 100 {
		return 1.0
	}
	c := float64(ratio-buyThreshold) / float64(100-buyThreshold)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// CheckStopLoss emits a full-quantity SELL for every holding whose loss
// fraction has reached the threshold, boundary inclusive. Runs in every
// engine state: existing risk is always managed down.
func (m *Manager) CheckStopLoss(holdings []broker.Holding, cfg config.TradingConfig) ([]broker.Order, error) {
	threshold := decimal.NewFromFloat(cfg.StopLossPct).Div(decimal.NewFromInt(100)).Neg()
	var orders []broker.Order
	for _, h := range holdings {
		if h.Quantity < 0 {
			return nil, fmt.Errorf("%w: negative quantity %d for %s", ErrInvariantViolation, h.Quantity, h.Symbol)
		}
		if h.Quantity == 0 || h.AveragePrice <= 0 {
			continue
		}
		avg := decimal.NewFromFloat(h.AveragePrice)
		lossFrac := decimal.NewFromFloat(h.CurrentPrice).Sub(avg).Div(avg)
		if lossFrac.LessThanOrEqual(threshold) {
			logger.Warnf("risk: stop-loss for %s loss=%s threshold=%s", h.Symbol, lossFrac.StringFixed(4), threshold.StringFixed(4))
			orders = append(orders, broker.Order{
				Symbol:        strings.ToUpper(h.Symbol),
				Side:          broker.SideSell,
				Quantity:      h.Quantity,
				PriceHint:     h.CurrentPrice,
				Reason:        StopLossReason,
				CorrelationID: uuid.NewString(),
			})
		}
	}
	return orders, nil
}

func perTradeCap(cfg config.TradingConfig) decimal.Decimal {
	return decimal.NewFromFloat(cfg.MaxPositionSize).
		Mul(decimal.NewFromFloat(cfg.RiskLevel.Multiplier()))
}

func heldQuantity(holdings []broker.Holding, symbol string) int64 {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, h := range holdings {
		if strings.ToUpper(h.Symbol) == symbol {
			return h.Quantity
		}
	}
	return 0
}
