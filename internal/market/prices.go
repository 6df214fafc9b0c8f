package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
)

// PriceSource feeds the market circuit breaker with recent closes and the
// engine with a current price per symbol.
type PriceSource interface {
	RecentCloses(ctx context.Context, symbol string, limit int) ([]float64, error)
	LatestPrice(ctx context.Context, symbol string) (float64, error)
}

// BinanceSource implements PriceSource on the Binance spot kline endpoint,
// for the crypto asset scope.
type BinanceSource struct {
	client   *binance.Client
	interval string
}

func NewBinanceSource() *BinanceSource {
	return &BinanceSource{
		client:   binance.NewClient("", ""),
		interval: "1m",
	}
}

func (s *BinanceSource) RecentCloses(ctx context.Context, symbol string, limit int) ([]float64, error) {
	if limit <= 0 {
		limit = 30
	}
	clean := cleanSymbol(symbol)
	if clean == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	kls, err := s.client.NewKlinesService().
		Symbol(clean).
		Interval(s.interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", clean, err)
	}
	closes := make([]float64, 0, len(kls))
	for _, k := range kls {
		v, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("binance kline close %q: %w", k.Close, err)
		}
		closes = append(closes, v)
	}
	return closes, nil
}

func (s *BinanceSource) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	closes, err := s.RecentCloses(ctx, symbol, 1)
	if err != nil {
		return 0, err
	}
	if len(closes) == 0 {
		return 0, fmt.Errorf("binance returned no klines for %s", symbol)
	}
	return closes[len(closes)-1], nil
}

// StaticPrices is a fixed in-memory source for paper runs and tests.
type StaticPrices struct {
	Closes map[string][]float64
}

func (s *StaticPrices) RecentCloses(_ context.Context, symbol string, limit int) ([]float64, error) {
	closes, ok := s.Closes[cleanSymbol(symbol)]
	if !ok {
		return nil, fmt.Errorf("no price series for %s", symbol)
	}
	if limit > 0 && len(closes) > limit {
		closes = closes[len(closes)-limit:]
	}
	return closes, nil
}

func (s *StaticPrices) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	closes, err := s.RecentCloses(ctx, symbol, 0)
	if err != nil {
		return 0, err
	}
	if len(closes) == 0 {
		return 0, fmt.Errorf("empty price series for %s", symbol)
	}
	return closes[len(closes)-1], nil
}

func cleanSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(symbol), "/", ""))
}
