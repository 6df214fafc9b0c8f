package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"marketpulse/internal/broker"
	"marketpulse/internal/config"
	"marketpulse/internal/signal"
	"marketpulse/internal/store"
	storemodel "marketpulse/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormStore implements store.Store on SQLite.
type GormStore struct {
	db *gorm.DB
}

var _ store.Store = (*GormStore)(nil)

func New(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: database path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	models := []interface{}{
		&storemodel.TradeRecordModel{},
		&storemodel.SignalSnapshotModel{},
		&storemodel.TradingConfigModel{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: a little parallelism for HTTP reads while keeping
	// lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) AppendTrade(ctx context.Context, rec store.TradeRecord) error {
	orderJSON, err := json.Marshal(rec.Order)
	if err != nil {
		return fmt.Errorf("gorm store: marshal order: %w", err)
	}
	now := time.Now().Unix()
	row := storemodel.TradeRecordModel{
		CorrelationID:  rec.Order.CorrelationID,
		Symbol:         strings.ToUpper(rec.Order.Symbol),
		Side:           string(rec.Order.Side),
		Quantity:       rec.Order.Quantity,
		PriceHint:      rec.Order.PriceHint,
		ExecutedPrice:  rec.ExecutedPrice,
		Reason:         rec.Order.Reason,
		SignalRatio:    rec.SignalRatio,
		Outcome:        string(rec.Outcome),
		Detail:         rec.Detail,
		PnLUSD:         rec.PnL,
		OrderJSON:      orderJSON,
		ExecutedAtUnix: rec.ExecutedAt.Unix(),
		CreatedAtUnix:  now,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *GormStore) ListTrades(ctx context.Context, limit int) ([]store.TradeRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []storemodel.TradeRecordModel
	if err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]store.TradeRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, recordFromRow(row))
	}
	return out, nil
}

func (s *GormStore) DailyPnL(ctx context.Context, day time.Time) (float64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	var total float64
	err := s.db.WithContext(ctx).
		Model(&storemodel.TradeRecordModel{}).
		Select("COALESCE(SUM(pnl_usd), 0)").
		Where("executed_at >= ? AND executed_at < ? AND outcome = ?",
			start.Unix(), end.Unix(), string(store.OutcomeFilled)).
		Scan(&total).Error
	return total, err
}

func (s *GormStore) HasFilledCorrelation(ctx context.Context, correlationID string) (bool, error) {
	if strings.TrimSpace(correlationID) == "" {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&storemodel.TradeRecordModel{}).
		Where("correlation_id = ? AND outcome = ?", correlationID, string(store.OutcomeFilled)).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) SaveSignal(ctx context.Context, scope string, sig signal.WeeklySignal, summary string) error {
	row := storemodel.SignalSnapshotModel{
		Scope:          strings.ToUpper(strings.TrimSpace(scope)),
		Ratio:          sig.Ratio,
		RawScore:       sig.RawScore,
		TrendSummary:   summary,
		ComputedAtUnix: sig.ComputedAt.Unix(),
		TTLSeconds:     int64(sig.TTL / time.Second),
		UpdatedAtUnix:  time.Now().Unix(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}

func (s *GormStore) LatestSignal(ctx context.Context, scope string) (signal.WeeklySignal, string, error) {
	var row storemodel.SignalSnapshotModel
	err := s.db.WithContext(ctx).
		Where("scope = ?", strings.ToUpper(strings.TrimSpace(scope))).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return signal.WeeklySignal{}, "", nil
		}
		return signal.WeeklySignal{}, "", err
	}
	sig := signal.WeeklySignal{
		Ratio:      row.Ratio,
		RawScore:   row.RawScore,
		ComputedAt: time.Unix(row.ComputedAtUnix, 0),
		TTL:        time.Duration(row.TTLSeconds) * time.Second,
	}
	return sig, row.TrendSummary, nil
}

func (s *GormStore) SaveTradingConfig(ctx context.Context, cfg config.TradingConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("gorm store: marshal trading config: %w", err)
	}
	row := storemodel.TradingConfigModel{
		ID:            1,
		ConfigJSON:    raw,
		UpdatedAtUnix: time.Now().Unix(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}

func (s *GormStore) LoadTradingConfig(ctx context.Context) (*config.TradingConfig, error) {
	var row storemodel.TradingConfigModel
	err := s.db.WithContext(ctx).First(&row, 1).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var cfg config.TradingConfig
	if err := json.Unmarshal(row.ConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("gorm store: unmarshal trading config: %w", err)
	}
	return &cfg, nil
}

func recordFromRow(row storemodel.TradeRecordModel) store.TradeRecord {
	rec := store.TradeRecord{
		ID:            row.ID,
		ExecutedPrice: row.ExecutedPrice,
		ExecutedAt:    time.Unix(row.ExecutedAtUnix, 0),
		SignalRatio:   row.SignalRatio,
		Outcome:       store.Outcome(row.Outcome),
		Detail:        row.Detail,
		PnL:           row.PnLUSD,
	}
	if len(row.OrderJSON) > 0 {
		_ = json.Unmarshal(row.OrderJSON, &rec.Order)
	}
	if rec.Order.Symbol == "" {
		rec.Order = broker.Order{
			Symbol:        row.Symbol,
			Side:          broker.Side(row.Side),
			Quantity:      row.Quantity,
			PriceHint:     row.PriceHint,
			Reason:        row.Reason,
			CorrelationID: row.CorrelationID,
		}
	}
	return rec
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
