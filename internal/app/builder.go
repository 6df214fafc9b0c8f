package app

import (
	"context"
	"fmt"

	"marketpulse/internal/broker"
	"marketpulse/internal/config"
	"marketpulse/internal/engine"
	"marketpulse/internal/logger"
	"marketpulse/internal/market"
	"marketpulse/internal/notifier"
	"marketpulse/internal/risk"
	"marketpulse/internal/signal"
	"marketpulse/internal/store"
	"marketpulse/internal/store/gormstore"
	httpapi "marketpulse/internal/transport/http"
)

// build wires the dependency graph by hand, bottom-up: store, market
// sources, signal pipeline, risk, engine, transport.
func build(cfg *config.Config, cfgPath string) (*App, error) {
	st, err := gormstore.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	quantifier := signal.NewQuantifier(cfg.Signal.ConservativeWeight)
	book := market.NewSentimentBook(quantifier)

	vix := buildVIXSource(cfg.Market)
	prices, err := buildPriceSource(cfg.Market)
	if err != nil {
		return nil, err
	}

	analysis, err := market.NewAnalysisService(book, vix, cfg.Signal, st)
	if err != nil {
		return nil, fmt.Errorf("analysis service: %w", err)
	}

	brokerage := broker.NewPaper(cfg.Broker.StartingCash)
	note := buildNotifier(cfg.Notify)

	tradingCfg := resolveTradingConfig(st, cfg.Trading)

	eng := engine.New(engine.Params{
		Symbol:    cfg.Market.PriceSymbol,
		MarketCfg: cfg.Market,
		Risk:      risk.NewManager(),
		Brokerage: brokerage,
		Store:     st,
		Signals:   analysis,
		Prices:    prices,
		VIX:       vix,
		Notifier:  note,
	})
	if !eng.ApplyStagedConfig(tradingCfg) {
		return nil, fmt.Errorf("initial trading config rejected")
	}

	httpSrv, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:     cfg.App.HTTPAddr,
		Engine:   eng,
		Analysis: analysis,
		Book:     book,
		Scope:    cfg.Market.PriceSymbol,
	})
	if err != nil {
		return nil, fmt.Errorf("http server: %w", err)
	}

	return &App{
		cfg:      cfg,
		store:    st,
		book:     book,
		analysis: analysis,
		engine:   eng,
		httpSrv:  httpSrv,
		watcher:  config.NewWatcher(cfgPath),
	}, nil
}

func buildVIXSource(cfg config.MarketConfig) market.VolatilitySource {
	if cfg.VIXSource == "static" {
		return market.StaticVIX(cfg.VIXStatic)
	}
	return market.NewYahooVIX()
}

func buildPriceSource(cfg config.MarketConfig) (engine.PriceSource, error) {
	switch cfg.PriceSource {
	case "static":
		closes := make([]float64, cfg.PriceWindow)
		for i := range closes {
			closes[i] = cfg.StaticPrice
		}
		return &market.StaticPrices{Closes: map[string][]float64{
			cfg.PriceSymbol: closes,
		}}, nil
	case "binance":
		return market.NewBinanceSource(), nil
	}
	return nil, fmt.Errorf("unknown price source %q", cfg.PriceSource)
}

func buildNotifier(cfg config.NotifyConfig) notifier.TextNotifier {
	tg := cfg.Telegram
	if tg.Enabled && tg.BotToken != "" && tg.ChatID != "" {
		return notifier.NewTelegram(tg.BotToken, tg.ChatID)
	}
	return notifier.Noop{}
}

// resolveTradingConfig prefers the operator's last persisted session config
// over the file; the file is the fallback for a fresh database.
func resolveTradingConfig(st store.Store, fileCfg config.TradingConfig) config.TradingConfig {
	persisted, err := st.LoadTradingConfig(context.Background())
	if err != nil {
		logger.Warnf("app: persisted trading config unavailable: %v", err)
		return fileCfg
	}
	if persisted == nil {
		return fileCfg
	}
	if err := persisted.Validate(); err != nil {
		logger.Warnf("app: persisted trading config invalid, using file: %v", err)
		return fileCfg
	}
	logger.Infof("app: resuming trading config from last session")
	return *persisted
}
