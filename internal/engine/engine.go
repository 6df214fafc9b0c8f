package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketpulse/internal/broker"
	"marketpulse/internal/config"
	"marketpulse/internal/logger"
	"marketpulse/internal/notifier"
	"marketpulse/internal/risk"
	"marketpulse/internal/scheduler"
	"marketpulse/internal/signal"
	"marketpulse/internal/store"
)

// SignalProvider hands the engine the current weekly signal for a scope.
type SignalProvider interface {
	CurrentSignal(ctx context.Context, scope string) (sig signal.WeeklySignal, summary string, err error)
}

// PriceSource supplies recent closes for the market circuit breaker and a
// current price per symbol.
type PriceSource interface {
	RecentCloses(ctx context.Context, symbol string, limit int) ([]float64, error)
	LatestPrice(ctx context.Context, symbol string) (float64, error)
}

// VolatilitySource supplies the raw volatility index reading.
type VolatilitySource interface {
	CurrentVIX(ctx context.Context) (float64, error)
}

// Params collects the engine's collaborators.
type Params struct {
	Symbol    string
	MarketCfg config.MarketConfig
	Risk      *risk.Manager
	Brokerage broker.Brokerage
	Store     store.Store
	Signals   SignalProvider
	Prices    PriceSource
	VIX       VolatilitySource
	Notifier  notifier.TextNotifier
}

// Engine owns the activation state machine, runs the periodic monitoring
// loop and turns signals into supervised order submissions. The state is
// the single piece of shared mutable state and lives behind stateMu;
// decision cycles are serialized by cycleMu and never interleave.
type Engine struct {
	symbol    string
	marketCfg config.MarketConfig
	risk      *risk.Manager
	brokerage broker.Brokerage
	store     store.Store
	signals   SignalProvider
	prices    PriceSource
	vix       VolatilitySource
	notifier  notifier.TextNotifier

	stateMu    sync.Mutex
	state      State
	cfg        config.TradingConfig
	haltReason string
	lastCheck  time.Time

	cycleMu sync.Mutex

	now func() time.Time
}

func New(p Params) *Engine {
	n := p.Notifier
	if n == nil {
		n = notifier.Noop{}
	}
	return &Engine{
		symbol:    p.Symbol,
		marketCfg: p.MarketCfg,
		risk:      p.Risk,
		brokerage: p.Brokerage,
		store:     p.Store,
		signals:   p.Signals,
		prices:    p.Prices,
		vix:       p.VIX,
		notifier:  n,
		state:     StateInactive,
		now:       time.Now,
	}
}

// Start activates the engine with a validated trading config. Only valid
// from INACTIVE.
func (e *Engine) Start(ctx context.Context, cfg config.TradingConfig) (State, error) {
	if err := cfg.Validate(); err != nil {
		return e.CurrentState(), fmt.Errorf("trading config rejected: %w", err)
	}
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if !allowedTransition(e.state, StateActive) {
		return e.state, ErrBadTransition{From: e.state, To: StateActive}
	}
	e.cfg = cfg
	e.setStateLocked(StateActive, "operator start")
	if e.store != nil {
		if err := e.store.SaveTradingConfig(ctx, cfg); err != nil {
			logger.Warnf("engine: persist trading config failed: %v", err)
		}
	}
	return e.state, nil
}

// Stop deactivates gracefully: an in-flight decision cycle finishes first.
func (e *Engine) Stop() (State, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.state == StateInactive {
		return e.state, nil
	}
	// SAFETY_HALT is left only through an explicit acknowledgement.
	if e.state == StateSafetyHalt || !allowedTransition(e.state, StateInactive) {
		return e.state, ErrBadTransition{From: e.state, To: StateInactive}
	}
	e.setStateLocked(StateInactive, "operator stop")
	return e.state, nil
}

// EmergencyStop forces SAFETY_HALT immediately. An in-flight submission is
// not aborted; the cycle observes the halt at its next safe checkpoint,
// after the current order's terminal record is written.
func (e *Engine) EmergencyStop() State {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.state == StateSafetyHalt {
		return e.state
	}
	e.setStateLocked(StateSafetyHalt, "emergency stop")
	go e.notify("EMERGENCY STOP: engine halted by operator")
	return e.state
}

// AcknowledgeHalt is the only path out of SAFETY_HALT, and it is never
// automatic.
func (e *Engine) AcknowledgeHalt() (State, error) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.state != StateSafetyHalt {
		return e.state, ErrBadTransition{From: e.state, To: StateInactive}
	}
	e.setStateLocked(StateInactive, "operator acknowledged halt")
	return e.state, nil
}

// CurrentState is a snapshot read outside any decision.
func (e *Engine) CurrentState() State {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state
}

// HaltReason reports why the engine last entered SAFETY_HALT.
func (e *Engine) HaltReason() string {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.haltReason
}

// LastCheck reports when the monitoring loop last completed a cycle.
func (e *Engine) LastCheck() time.Time {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.lastCheck
}

// TradingConfig returns the session config by value.
func (e *Engine) TradingConfig() config.TradingConfig {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.cfg
}

// ApplyStagedConfig swaps in a reloaded trading config, but only while the
// engine is inactive. Returns true when applied.
func (e *Engine) ApplyStagedConfig(cfg config.TradingConfig) bool {
	if err := cfg.Validate(); err != nil {
		logger.Warnf("engine: staged config rejected: %v", err)
		return false
	}
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.state != StateInactive {
		return false
	}
	e.cfg = cfg
	logger.Infof("engine: staged trading config applied")
	return true
}

// TradeHistory exposes the audit trail to the API layer.
func (e *Engine) TradeHistory(ctx context.Context, limit int) ([]store.TradeRecord, error) {
	return e.store.ListTrades(ctx, limit)
}

// Run drives the monitoring loop until ctx is done. Only one decision
// cycle executes at a time; a tick arriving mid-cycle is dropped and
// logged rather than queued.
func (e *Engine) Run(ctx context.Context) error {
	interval := e.TradingConfig().MonitorIntervalDuration()
	if interval <= 0 {
		interval = time.Minute
	}
	sched := scheduler.NewIntervalScheduler(ctx, interval)
	sched.Start(func() {
		if !e.cycleMu.TryLock() {
			logger.Warnf("engine: tick dropped, cycle in progress")
			return
		}
		defer e.cycleMu.Unlock()
		e.runCycleLocked(ctx)
	})
	return ctx.Err()
}

// Tick runs one decision cycle on demand (fresh signal available). Returns
// false when a cycle was already in progress.
func (e *Engine) Tick(ctx context.Context) bool {
	if !e.cycleMu.TryLock() {
		logger.Warnf("engine: on-demand tick dropped, cycle in progress")
		return false
	}
	defer e.cycleMu.Unlock()
	e.runCycleLocked(ctx)
	return true
}

// setStateLocked transitions and records the reason. Callers hold stateMu.
func (e *Engine) setStateLocked(to State, reason string) {
	from := e.state
	e.state = to
	if to == StateSafetyHalt {
		e.haltReason = reason
	}
	logger.Infof("engine: state %s -> %s (%s)", from, to, reason)
}

func (e *Engine) notify(text string) {
	if err := e.notifier.SendText(text); err != nil {
		logger.Warnf("engine: notification failed: %v", err)
	}
}
