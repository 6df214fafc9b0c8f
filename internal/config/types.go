package config

import (
	"strings"
	"time"

	"marketpulse/internal/scheduler"
)

// Config is the top-level configuration carrier.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Signal  SignalConfig  `mapstructure:"signal"`
	Market  MarketConfig  `mapstructure:"market"`
	Trading TradingConfig `mapstructure:"trading"`
	Broker  BrokerConfig  `mapstructure:"broker"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Store   StoreConfig   `mapstructure:"store"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	HTTPAddr string `mapstructure:"http_addr"`
	LogPath  string `mapstructure:"log_path"`
}

// SignalConfig tunes the sentiment signal pipeline.
type SignalConfig struct {
	ConservativeWeight float64 `mapstructure:"conservative_weight"` // negative-sentiment multiplier, never < 1.0
	SigmoidSteepness   float64 `mapstructure:"sigmoid_steepness"`
	VIXFloor           float64 `mapstructure:"vix_floor"`
	VIXCeiling         float64 `mapstructure:"vix_ceiling"`
	CacheTTL           string  `mapstructure:"cache_ttl"`
}

type MarketConfig struct {
	VIXSource            string  `mapstructure:"vix_source"`   // "yahoo" | "static"
	PriceSource          string  `mapstructure:"price_source"` // "binance" | "static"
	VIXStatic            float64 `mapstructure:"vix_static"`
	PriceSymbol          string  `mapstructure:"price_symbol"`
	StaticPrice          float64 `mapstructure:"static_price"`
	PriceWindow          int     `mapstructure:"price_window"` // closes fed to the market breaker
	AbnormalMovePct      float64 `mapstructure:"abnormal_move_pct"`
	AbnormalVIXThreshold float64 `mapstructure:"abnormal_vix_threshold"`
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Multiplier scales the per-trade cap with operator risk appetite.
func (r RiskLevel) Multiplier() float64 {
	switch r {
	case RiskLow:
		return 0.5
	case RiskHigh:
		return 1.5
	default:
		return 1.0
	}
}

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// TradingConfig is loaded once per session and referenced by value on every
// decision. Changes staged by the watcher only apply while the engine is
// inactive.
type TradingConfig struct {
	MaxInvestment      float64   `mapstructure:"max_investment"`
	MaxPositionSize    float64   `mapstructure:"max_position_size"` // per-trade cap before the risk multiplier
	RiskLevel          RiskLevel `mapstructure:"risk_level"`
	TradingStart       string    `mapstructure:"trading_start"` // "HH:MM"
	TradingEnd         string    `mapstructure:"trading_end"`
	StopLossPct        float64   `mapstructure:"stop_loss_pct"` // positive percentage, e.g. 5.0
	BuyThreshold       int       `mapstructure:"buy_threshold"`
	SellThreshold      int       `mapstructure:"sell_threshold"`
	DailyLossLimit     float64   `mapstructure:"daily_loss_limit"` // 0 = unlimited
	AllowedSymbols     []string  `mapstructure:"allowed_symbols"`
	ExcludedSymbols    []string  `mapstructure:"excluded_symbols"`
	MonitorInterval    string    `mapstructure:"monitor_interval"`
	OrderTimeout       string    `mapstructure:"order_timeout"`
	SubmitRetries      int       `mapstructure:"submit_retries"`
	SubmitBackoffStart string    `mapstructure:"submit_backoff_start"`
}

// TradingWindow parses the configured window. Validation guarantees the
// formats are sound by the time this is called.
func (t TradingConfig) TradingWindow() (start, end time.Time, err error) {
	start, err = time.Parse("15:04", strings.TrimSpace(t.TradingStart))
	if err != nil {
		return
	}
	end, err = time.Parse("15:04", strings.TrimSpace(t.TradingEnd))
	return
}

// WithinWindow reports whether the wall-clock time of now falls inside the
// trading window, boundaries inclusive.
func (t TradingConfig) WithinWindow(now time.Time) bool {
	start, end, err := t.TradingWindow()
	if err != nil {
		return false
	}
	minutes := now.Hour()*60 + now.Minute()
	s := start.Hour()*60 + start.Minute()
	e := end.Hour()*60 + end.Minute()
	return minutes >= s && minutes <= e
}

// SymbolAllowed applies the exclusion list first, then the allow list if one
// is configured.
func (t TradingConfig) SymbolAllowed(symbol string) bool {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, s := range t.ExcludedSymbols {
		if strings.ToUpper(strings.TrimSpace(s)) == symbol {
			return false
		}
	}
	if len(t.AllowedSymbols) == 0 {
		return true
	}
	for _, s := range t.AllowedSymbols {
		if strings.ToUpper(strings.TrimSpace(s)) == symbol {
			return true
		}
	}
	return false
}

func (t TradingConfig) MonitorIntervalDuration() time.Duration {
	return durationOr(t.MonitorInterval, time.Minute)
}

func (t TradingConfig) OrderTimeoutDuration() time.Duration {
	return durationOr(t.OrderTimeout, 10*time.Second)
}

func (t TradingConfig) SubmitBackoffStartDuration() time.Duration {
	return durationOr(t.SubmitBackoffStart, time.Second)
}

func (s SignalConfig) CacheTTLDuration() time.Duration {
	return durationOr(s.CacheTTL, time.Hour)
}

// durationOr accepts both Go duration syntax and the scheduler's short
// "30s/1m/4h/1d" form.
func durationOr(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	if d, ok := scheduler.ParseIntervalDuration(raw); ok {
		return d
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// BrokerConfig selects the brokerage backend. Only the built-in paper
// broker ships today; the interface leaves room for a live adapter.
type BrokerConfig struct {
	Backend      string  `mapstructure:"backend"` // "paper"
	StartingCash float64 `mapstructure:"starting_cash"`
}
