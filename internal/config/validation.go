package config

import (
	"fmt"
	"time"

	"marketpulse/internal/scheduler"
)

// validate rejects a malformed config wholesale; nothing is partially applied.
func validate(c *Config) error {
	if err := c.Signal.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Trading.Validate(); err != nil {
		return err
	}
	if err := c.Broker.validate(); err != nil {
		return err
	}
	return nil
}

func (b *BrokerConfig) validate() error {
	if b.Backend != "paper" {
		return fmt.Errorf("broker.backend must be paper, got %q", b.Backend)
	}
	if b.StartingCash <= 0 {
		return fmt.Errorf("broker.starting_cash must be > 0")
	}
	return nil
}

func (s *SignalConfig) validate() error {
	if s.ConservativeWeight < 1.0 {
		return fmt.Errorf("signal.conservative_weight must be >= 1.0 (never biased optimistic), got %v", s.ConservativeWeight)
	}
	if s.SigmoidSteepness <= 0 {
		return fmt.Errorf("signal.sigmoid_steepness must be > 0")
	}
	if s.VIXFloor < 0 || s.VIXCeiling <= s.VIXFloor {
		return fmt.Errorf("signal vix band invalid: floor=%v ceiling=%v", s.VIXFloor, s.VIXCeiling)
	}
	return nil
}

func (m *MarketConfig) validate() error {
	switch m.VIXSource {
	case "yahoo", "static":
	default:
		return fmt.Errorf("market.vix_source must be yahoo or static, got %q", m.VIXSource)
	}
	if m.VIXSource == "static" && m.VIXStatic < 0 {
		return fmt.Errorf("market.vix_static cannot be negative")
	}
	switch m.PriceSource {
	case "binance", "static":
	default:
		return fmt.Errorf("market.price_source must be binance or static, got %q", m.PriceSource)
	}
	if m.PriceSource == "static" && m.StaticPrice <= 0 {
		return fmt.Errorf("market.static_price must be > 0 for the static source")
	}
	if m.PriceWindow < 2 {
		return fmt.Errorf("market.price_window must be >= 2")
	}
	if m.AbnormalMovePct <= 0 {
		return fmt.Errorf("market.abnormal_move_pct must be > 0")
	}
	return nil
}

// Validate is exported because the engine re-checks the trading config handed
// to Start.
func (t *TradingConfig) Validate() error {
	if t.MaxInvestment <= 0 {
		return fmt.Errorf("trading.max_investment must be > 0")
	}
	if t.MaxPositionSize <= 0 {
		return fmt.Errorf("trading.max_position_size must be > 0")
	}
	if t.MaxPositionSize > t.MaxInvestment {
		return fmt.Errorf("trading.max_position_size cannot exceed max_investment")
	}
	if !t.RiskLevel.Valid() {
		return fmt.Errorf("trading.risk_level must be low, medium or high, got %q", t.RiskLevel)
	}
	start, end, err := t.TradingWindow()
	if err != nil {
		return fmt.Errorf("trading window must use HH:MM: %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("trading.trading_end must be after trading_start")
	}
	if t.StopLossPct <= 0 || t.StopLossPct >= 100 {
		return fmt.Errorf("trading.stop_loss_pct must be in (0, 100)")
	}
	if t.BuyThreshold <= t.SellThreshold {
		return fmt.Errorf("trading.buy_threshold must be above sell_threshold")
	}
	if t.BuyThreshold > 100 || t.SellThreshold < 0 {
		return fmt.Errorf("trading thresholds must stay within [0, 100]")
	}
	if t.DailyLossLimit < 0 {
		return fmt.Errorf("trading.daily_loss_limit cannot be negative")
	}
	if t.SubmitRetries < 1 || t.SubmitRetries > 10 {
		return fmt.Errorf("trading.submit_retries must be in [1, 10]")
	}
	for _, field := range []string{t.MonitorInterval, t.OrderTimeout, t.SubmitBackoffStart} {
		if field == "" {
			continue
		}
		if _, ok := scheduler.ParseIntervalDuration(field); ok {
			continue
		}
		if _, err := time.ParseDuration(field); err != nil {
			return fmt.Errorf("trading duration %q invalid: %w", field, err)
		}
	}
	return nil
}
