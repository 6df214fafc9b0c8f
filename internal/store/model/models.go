package model

import (
	"gorm.io/datatypes"
)

// TradeRecordModel maps the append-only audit log. Rows are inserted and
// never updated.
type TradeRecordModel struct {
	ID             int64          `gorm:"column:id;primaryKey"`
	CorrelationID  string         `gorm:"column:correlation_id;index"`
	Symbol         string         `gorm:"column:symbol;index"`
	Side           string         `gorm:"column:side"`
	Quantity       int64          `gorm:"column:quantity"`
	PriceHint      float64        `gorm:"column:price_hint"`
	ExecutedPrice  float64        `gorm:"column:executed_price"`
	Reason         string         `gorm:"column:reason"`
	SignalRatio    int            `gorm:"column:signal_ratio"`
	Outcome        string         `gorm:"column:outcome;index"`
	Detail         string         `gorm:"column:detail"`
	PnLUSD         float64        `gorm:"column:pnl_usd"`
	OrderJSON      datatypes.JSON `gorm:"column:order_json;type:TEXT"`
	ExecutedAtUnix int64          `gorm:"column:executed_at;index"`
	CreatedAtUnix  int64          `gorm:"column:created_at"`
}

func (TradeRecordModel) TableName() string { return "trade_records" }

// SignalSnapshotModel keeps one row per asset scope with the latest
// computed weekly signal.
type SignalSnapshotModel struct {
	ID             int64   `gorm:"column:id;primaryKey"`
	Scope          string  `gorm:"column:scope;uniqueIndex"`
	Ratio          int     `gorm:"column:ratio"`
	RawScore       float64 `gorm:"column:raw_score"`
	TrendSummary   string  `gorm:"column:trend_summary"`
	ComputedAtUnix int64   `gorm:"column:computed_at"`
	TTLSeconds     int64   `gorm:"column:ttl_seconds"`
	UpdatedAtUnix  int64   `gorm:"column:updated_at"`
}

func (SignalSnapshotModel) TableName() string { return "signal_snapshots" }

// TradingConfigModel persists the operator's trading configuration as a
// single-row document.
type TradingConfigModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	ConfigJSON    datatypes.JSON `gorm:"column:config_json;type:TEXT"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (TradingConfigModel) TableName() string { return "trading_configs" }
