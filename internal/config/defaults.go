package config

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":9980"
	}
	if c.Signal.ConservativeWeight == 0 {
		c.Signal.ConservativeWeight = 1.5
	}
	if c.Signal.SigmoidSteepness == 0 {
		c.Signal.SigmoidSteepness = 0.3
	}
	if c.Signal.VIXFloor == 0 {
		c.Signal.VIXFloor = 10.0
	}
	if c.Signal.VIXCeiling == 0 {
		c.Signal.VIXCeiling = 40.0
	}
	if c.Signal.CacheTTL == "" {
		c.Signal.CacheTTL = "1h"
	}
	if c.Market.VIXSource == "" {
		c.Market.VIXSource = "yahoo"
	}
	if c.Market.PriceSource == "" {
		c.Market.PriceSource = "binance"
	}
	if c.Market.PriceSymbol == "" {
		c.Market.PriceSymbol = "BTCUSDT"
	}
	if c.Broker.Backend == "" {
		c.Broker.Backend = "paper"
	}
	if c.Broker.StartingCash == 0 {
		c.Broker.StartingCash = 100000
	}
	if c.Market.PriceWindow == 0 {
		c.Market.PriceWindow = 30
	}
	if c.Market.AbnormalMovePct == 0 {
		c.Market.AbnormalMovePct = 7.0
	}
	if c.Market.AbnormalVIXThreshold == 0 {
		c.Market.AbnormalVIXThreshold = 40.0
	}
	if c.Trading.RiskLevel == "" {
		c.Trading.RiskLevel = RiskMedium
	}
	if c.Trading.TradingStart == "" {
		c.Trading.TradingStart = "09:00"
	}
	if c.Trading.TradingEnd == "" {
		c.Trading.TradingEnd = "15:30"
	}
	if c.Trading.StopLossPct == 0 {
		c.Trading.StopLossPct = 5.0
	}
	if c.Trading.BuyThreshold == 0 {
		c.Trading.BuyThreshold = 80
	}
	if c.Trading.SellThreshold == 0 {
		c.Trading.SellThreshold = 20
	}
	if c.Trading.MonitorInterval == "" {
		c.Trading.MonitorInterval = "1m"
	}
	if c.Trading.OrderTimeout == "" {
		c.Trading.OrderTimeout = "10s"
	}
	if c.Trading.SubmitRetries == 0 {
		c.Trading.SubmitRetries = 3
	}
	if c.Trading.SubmitBackoffStart == "" {
		c.Trading.SubmitBackoffStart = "1s"
	}
	if c.Store.Path == "" {
		c.Store.Path = "data/marketpulse.db"
	}
}
