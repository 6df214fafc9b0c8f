package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"marketpulse/internal/logger"
	"marketpulse/internal/pkg/circuit"

	"github.com/tidwall/gjson"
)

const (
	yahooVIXEndpoint = "https://query1.finance.yahoo.com/v8/finance/chart/%5EVIX?interval=1d&range=1d"
	// defaultVIX stands in for a failed fetch: moderate volatility, never
	// a reason to make the signal artificially confident.
	defaultVIX = 20.0
)

// VolatilitySource supplies the current raw volatility index reading.
type VolatilitySource interface {
	CurrentVIX(ctx context.Context) (float64, error)
}

// StaticVIX returns a fixed reading; used for paper runs and tests.
type StaticVIX float64

func (s StaticVIX) CurrentVIX(context.Context) (float64, error) {
	return float64(s), nil
}

// YahooVIX fetches ^VIX from the Yahoo chart endpoint. Repeated failures
// open the breaker so a broken endpoint is not hammered every cycle; while
// open it serves the default reading.
type YahooVIX struct {
	endpoint string
	client   *http.Client
	breaker  *circuit.CircuitBreaker
}

func NewYahooVIX() *YahooVIX {
	return &YahooVIX{
		endpoint: yahooVIXEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		breaker:  circuit.NewCircuitBreaker("YahooVIX", 3, 2*time.Minute),
	}
}

func (y *YahooVIX) CurrentVIX(ctx context.Context) (float64, error) {
	if !y.breaker.Allow() {
		logger.Debugf("vix: breaker open, serving default %.1f", defaultVIX)
		return defaultVIX, nil
	}
	value, err := y.fetch(ctx)
	if err != nil {
		y.breaker.RecordFailure()
		logger.Warnf("vix: fetch failed (%v), serving default %.1f", err, defaultVIX)
		return defaultVIX, nil
	}
	y.breaker.RecordSuccess()
	return value, nil
}

func (y *YahooVIX) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := y.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("yahoo chart status=%d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, err
	}
	price := gjson.GetBytes(body, "chart.result.0.meta.regularMarketPrice")
	if !price.Exists() {
		return 0, fmt.Errorf("yahoo chart payload missing regularMarketPrice")
	}
	value := price.Float()
	if value <= 0 {
		return 0, fmt.Errorf("yahoo chart returned non-positive VIX %v", value)
	}
	return value, nil
}
