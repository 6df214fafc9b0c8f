package market

import (
	"context"
	"fmt"
	"time"

	"marketpulse/internal/config"
	"marketpulse/internal/logger"
	"marketpulse/internal/signal"
)

// SignalStore is the slice of persistence the analysis service needs.
type SignalStore interface {
	SaveSignal(ctx context.Context, scope string, sig signal.WeeklySignal, summary string) error
}

// AnalysisService runs the full pipeline for one asset scope: trailing
// daily scores weighted by current volatility, squashed to a ratio, cached
// and persisted.
type AnalysisService struct {
	book       *SentimentBook
	vix        VolatilitySource
	normalizer *signal.Normalizer
	calculator *signal.Calculator
	cache      *signal.Cache
	store      SignalStore
	now        func() time.Time
}

func NewAnalysisService(
	book *SentimentBook,
	vix VolatilitySource,
	cfg config.SignalConfig,
	store SignalStore,
) (*AnalysisService, error) {
	normalizer, err := signal.NewNormalizer(cfg.VIXFloor, cfg.VIXCeiling)
	if err != nil {
		return nil, err
	}
	ttl := cfg.CacheTTLDuration()
	return &AnalysisService{
		book:       book,
		vix:        vix,
		normalizer: normalizer,
		calculator: signal.NewCalculator(cfg.SigmoidSteepness, ttl),
		cache:      signal.NewCache(ttl),
		store:      store,
		now:        time.Now,
	}, nil
}

// CurrentSignal serves from cache when fresh, otherwise recomputes.
func (s *AnalysisService) CurrentSignal(ctx context.Context, scope string) (signal.WeeklySignal, string, error) {
	if sig, summary, ok := s.cache.Get(scope); ok {
		return sig, summary, nil
	}
	return s.Recompute(ctx, scope)
}

// Recompute runs the pipeline unconditionally and refreshes the cache.
func (s *AnalysisService) Recompute(ctx context.Context, scope string) (signal.WeeklySignal, string, error) {
	end := s.now()
	if covered := s.book.CoveredDays(scope, end, signal.WindowDays); covered < signal.WindowDays {
		return signal.WeeklySignal{}, "", fmt.Errorf("%w: %d of %d days covered for %s",
			signal.ErrInsufficientData, covered, signal.WindowDays, scope)
	}
	scores := s.book.TrailingScores(scope, end, signal.WindowDays)

	rawVIX, err := s.vix.CurrentVIX(ctx)
	if err != nil {
		return signal.WeeklySignal{}, "", fmt.Errorf("volatility source: %w", err)
	}
	reading, err := s.normalizer.Reading(rawVIX, end)
	if err != nil {
		return signal.WeeklySignal{}, "", err
	}
	// One reading weights the whole window; per-day readings can slot in
	// here without touching the calculator.
	weights := make([]float64, len(scores))
	for i := range weights {
		weights[i] = reading.Normalized
	}

	sig, err := s.calculator.WeeklySignal(scores, weights)
	if err != nil {
		return signal.WeeklySignal{}, "", err
	}
	summary := s.book.TrendSummary(scope)
	s.cache.Put(scope, sig, summary, sig.TTL)
	if s.store != nil {
		if err := s.store.SaveSignal(ctx, scope, sig, summary); err != nil {
			logger.Warnf("analysis: persist signal for %s failed: %v", scope, err)
		}
	}
	logger.Infof("analysis: %s ratio=%d raw=%.2f vix=%.1f (%s)", scope, sig.Ratio, sig.RawScore, rawVIX, sig.Interpretation())
	return sig, summary, nil
}

// SweepCache evicts expired entries; wired to the cron scheduler.
func (s *AnalysisService) SweepCache() {
	if n := s.cache.Sweep(); n > 0 {
		logger.Debugf("analysis: swept %d expired cache entries", n)
	}
}
