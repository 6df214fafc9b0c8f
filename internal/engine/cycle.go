package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketpulse/internal/broker"
	"marketpulse/internal/config"
	"marketpulse/internal/logger"
	"marketpulse/internal/risk"
	"marketpulse/internal/signal"
	"marketpulse/internal/store"
)

// ReasonSignalBuy and friends tag orders in the audit trail by the decision
// that produced them.
const (
	ReasonSignalBuy   = "signal_buy"
	ReasonSignalExit  = "signal_exit"
	ReasonBreakerHalt = "circuit_breaker_halt"
	ReasonFailureHalt = "brokerage_failure_halt"
)

// runCycleLocked is one full decision cycle. Callers hold cycleMu. Order of
// operations: market circuit breaker, stop-loss sweep, then signal-driven
// entries and exits. The stop-loss sweep runs in every state, INACTIVE
// included; existing risk is always evaluated even when no new activity is
// possible. Only a session that has never been configured skips the cycle.
func (e *Engine) runCycleLocked(ctx context.Context) {
	defer func() {
		e.stateMu.Lock()
		e.lastCheck = e.now()
		e.stateMu.Unlock()
	}()

	state := e.CurrentState()
	cfg := e.TradingConfig()
	if err := cfg.Validate(); err != nil {
		logger.Debugf("engine: skip cycle, no trading config applied yet")
		return
	}

	account, err := e.accountSnapshot(ctx, state)
	if err != nil {
		logger.Warnf("engine: skip cycle, account snapshot failed: %v", err)
		return
	}

	if state == StateActive {
		if verdict := e.checkMarketBreaker(ctx); verdict.Tripped {
			e.haltCycle(ctx, ReasonBreakerHalt, verdict.Reason)
			state = StateSafetyHalt
			account.SafetyHalted = true
		}
	}

	e.stopLossSweep(ctx, cfg, account)

	if state != StateActive || e.CurrentState() != StateActive {
		return
	}
	e.signalDecision(ctx, cfg, account)
}

// accountSnapshot pulls cash, holdings and today's realized PnL once per
// cycle; every decision in the cycle runs against this single snapshot.
func (e *Engine) accountSnapshot(ctx context.Context, state State) (risk.AccountState, error) {
	cash, err := e.brokerage.AvailableCash(ctx)
	if err != nil {
		return risk.AccountState{}, fmt.Errorf("available cash: %w", err)
	}
	holdings, err := e.brokerage.Holdings(ctx)
	if err != nil {
		return risk.AccountState{}, fmt.Errorf("holdings: %w", err)
	}
	invested := decimal.Zero
	for i := range holdings {
		if price, perr := e.prices.LatestPrice(ctx, holdings[i].Symbol); perr == nil && price > 0 {
			holdings[i].CurrentPrice = price
		}
		invested = invested.Add(decimal.NewFromFloat(holdings[i].AveragePrice).
			Mul(decimal.NewFromInt(holdings[i].Quantity)))
	}
	pnl, err := e.store.DailyPnL(ctx, e.now())
	if err != nil {
		logger.Warnf("engine: daily pnl unavailable, treating as 0: %v", err)
		pnl = 0
	}
	inv, _ := invested.Float64()
	return risk.AccountState{
		Cash:           cash,
		InvestedAmount: inv,
		DailyPnL:       pnl,
		Holdings:       holdings,
		SafetyHalted:   state == StateSafetyHalt,
	}, nil
}

func (e *Engine) checkMarketBreaker(ctx context.Context) risk.BreakerVerdict {
	rawVIX, err := e.vix.CurrentVIX(ctx)
	if err != nil {
		logger.Warnf("engine: volatility read failed, breaker uses 0: %v", err)
		rawVIX = 0
	}
	window := e.marketCfg.PriceWindow
	if window <= 0 {
		window = 30
	}
	closes, err := e.prices.RecentCloses(ctx, e.symbol, window)
	if err != nil {
		logger.Warnf("engine: recent closes unavailable: %v", err)
		closes = nil
	}
	return e.risk.CheckCircuitBreaker(closes, rawVIX, e.marketCfg)
}

// haltCycle transitions to SAFETY_HALT, writes the audit entry and alerts
// the operator. Recovery requires an explicit acknowledgment.
func (e *Engine) haltCycle(ctx context.Context, tag, reason string) {
	e.stateMu.Lock()
	if e.state != StateSafetyHalt {
		e.setStateLocked(StateSafetyHalt, reason)
	}
	e.stateMu.Unlock()

	rec := store.TradeRecord{
		Order:      broker.Order{Symbol: e.symbol, Reason: tag},
		ExecutedAt: e.now(),
		Outcome:    store.OutcomeRejected,
		Detail:     reason,
	}
	if err := e.store.AppendTrade(ctx, rec); err != nil {
		logger.Errorf("engine: halt audit record failed: %v", err)
	}
	e.notify(fmt.Sprintf("SAFETY HALT: %s", reason))
}

func (e *Engine) stopLossSweep(ctx context.Context, cfg config.TradingConfig, account risk.AccountState) {
	orders, err := e.risk.CheckStopLoss(account.Holdings, cfg)
	if err != nil {
		logger.Errorf("engine: stop-loss sweep aborted: %v", err)
		return
	}
	for _, order := range orders {
		// Stop-loss bypasses only funds and position-cap checks, never
		// the window, symbol or safety-halt rules. A rejection here
		// re-fires on the next cycle where the rule clears.
		verdict := e.risk.Validate(order, account, cfg)
		if !verdict.Admitted {
			e.recordRejection(ctx, order, 0, verdict)
			continue
		}
		logger.Warnf("engine: stop-loss triggered for %s qty=%d", order.Symbol, order.Quantity)
		e.executeOrder(ctx, order, 0, account.Holdings)
	}
}

// signalDecision applies the buy/sell thresholds to the current weekly
// signal. A ratio in the neutral band produces no order at all.
func (e *Engine) signalDecision(ctx context.Context, cfg config.TradingConfig, account risk.AccountState) {
	sig, _, err := e.signals.CurrentSignal(ctx, e.symbol)
	if err != nil {
		if errors.Is(err, signal.ErrInsufficientData) {
			logger.Infof("engine: no trade, signal has insufficient history")
			return
		}
		logger.Warnf("engine: signal unavailable: %v", err)
		return
	}

	switch {
	case sig.Ratio >= cfg.BuyThreshold:
		e.enterPosition(ctx, cfg, account, sig)
	case sig.Ratio <= cfg.SellThreshold:
		e.exitPosition(ctx, cfg, account, sig)
	default:
		logger.Debugf("engine: ratio %d in neutral band, holding", sig.Ratio)
	}
}

func (e *Engine) enterPosition(ctx context.Context, cfg config.TradingConfig, account risk.AccountState, sig signal.WeeklySignal) {
	price, err := e.prices.LatestPrice(ctx, e.symbol)
	if err != nil {
		logger.Warnf("engine: entry skipped, price unavailable: %v", err)
		return
	}
	quantity := e.risk.PositionSize(sig.Ratio, account.Cash, price, cfg)
	if quantity == 0 {
		logger.Infof("engine: entry sized to zero at ratio %d", sig.Ratio)
		return
	}
	order := broker.Order{
		Symbol:        e.symbol,
		Side:          broker.SideBuy,
		Quantity:      quantity,
		PriceHint:     price,
		Reason:        ReasonSignalBuy,
		CorrelationID: uuid.NewString(),
	}
	if verdict := e.risk.Validate(order, account, cfg); !verdict.Admitted {
		e.recordRejection(ctx, order, sig.Ratio, verdict)
		return
	}
	e.executeOrder(ctx, order, sig.Ratio, account.Holdings)
}

func (e *Engine) exitPosition(ctx context.Context, cfg config.TradingConfig, account risk.AccountState, sig signal.WeeklySignal) {
	var held *broker.Holding
	for i := range account.Holdings {
		if account.Holdings[i].Symbol == e.symbol {
			held = &account.Holdings[i]
			break
		}
	}
	if held == nil || held.Quantity == 0 {
		return
	}
	price := held.CurrentPrice
	if p, err := e.prices.LatestPrice(ctx, e.symbol); err == nil && p > 0 {
		price = p
	}
	order := broker.Order{
		Symbol:        e.symbol,
		Side:          broker.SideSell,
		Quantity:      held.Quantity,
		PriceHint:     price,
		Reason:        ReasonSignalExit,
		CorrelationID: uuid.NewString(),
	}
	if verdict := e.risk.Validate(order, account, cfg); !verdict.Admitted {
		e.recordRejection(ctx, order, sig.Ratio, verdict)
		return
	}
	e.executeOrder(ctx, order, sig.Ratio, account.Holdings)
}

// executeOrder submits with retry and writes exactly one terminal record.
// A correlation ID that already has a filled record is never resubmitted.
func (e *Engine) executeOrder(ctx context.Context, order broker.Order, ratio int, holdings []broker.Holding) {
	if order.CorrelationID != "" {
		filled, err := e.store.HasFilledCorrelation(ctx, order.CorrelationID)
		if err != nil {
			logger.Warnf("engine: idempotency check failed: %v", err)
		} else if filled {
			logger.Infof("engine: correlation %s already filled, skipping", order.CorrelationID)
			return
		}
	}

	result, err := e.submitWithRetry(ctx, order)
	if err != nil {
		rec := store.TradeRecord{
			Order:       order,
			ExecutedAt:  e.now(),
			SignalRatio: ratio,
			Outcome:     store.OutcomeFailed,
			Detail:      err.Error(),
		}
		if serr := e.store.AppendTrade(ctx, rec); serr != nil {
			logger.Errorf("engine: failed-trade record not persisted: %v", serr)
		}
		e.haltCycle(ctx, ReasonFailureHalt, fmt.Sprintf("order submission exhausted retries: %v", err))
		return
	}

	rec := store.TradeRecord{
		Order:         order,
		ExecutedPrice: result.ExecutedPrice,
		ExecutedAt:    e.now(),
		SignalRatio:   ratio,
		Outcome:       store.OutcomeFilled,
	}
	if result.Duplicate {
		rec.Detail = "duplicate submission, brokerage replayed original fill"
	}
	if order.Side == broker.SideSell {
		rec.PnL = realizedPnL(order, result.ExecutedPrice, holdings)
	}
	if err := e.store.AppendTrade(ctx, rec); err != nil {
		logger.Errorf("engine: filled-trade record not persisted: %v", err)
	}
	e.notify(fmt.Sprintf("%s %d %s @ %.2f (%s)",
		order.Side, order.Quantity, order.Symbol, result.ExecutedPrice, order.Reason))
}

// submitWithRetry makes up to SubmitRetries attempts, each under its own
// OrderTimeout deadline, with backoff doubling between attempts.
func (e *Engine) submitWithRetry(ctx context.Context, order broker.Order) (broker.TradeResult, error) {
	cfg := e.TradingConfig()
	attempts := cfg.SubmitRetries
	if attempts <= 0 {
		attempts = 1
	}
	backoff := cfg.SubmitBackoffStartDuration()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.OrderTimeoutDuration())
		result, err := e.brokerage.SubmitOrder(attemptCtx, order)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err
		logger.Warnf("engine: submit attempt %d/%d for %s failed: %v",
			attempt, attempts, order.CorrelationID, err)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return broker.TradeResult{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return broker.TradeResult{}, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

func (e *Engine) recordRejection(ctx context.Context, order broker.Order, ratio int, verdict risk.Verdict) {
	logger.Infof("engine: order rejected (%s): %s", verdict.Reason, verdict.Detail)
	rec := store.TradeRecord{
		Order:       order,
		ExecutedAt:  e.now(),
		SignalRatio: ratio,
		Outcome:     store.OutcomeRejected,
		Detail:      fmt.Sprintf("%s: %s", verdict.Reason, verdict.Detail),
	}
	if err := e.store.AppendTrade(ctx, rec); err != nil {
		logger.Errorf("engine: rejection record not persisted: %v", err)
	}
}

// realizedPnL is (execution - average cost) x quantity for the sold lot.
func realizedPnL(order broker.Order, executedPrice float64, holdings []broker.Holding) float64 {
	for _, h := range holdings {
		if h.Symbol == order.Symbol {
			pnl := decimal.NewFromFloat(executedPrice).
				Sub(decimal.NewFromFloat(h.AveragePrice)).
				Mul(decimal.NewFromInt(order.Quantity))
			f, _ := pnl.Float64()
			return f
		}
	}
	return 0
}
