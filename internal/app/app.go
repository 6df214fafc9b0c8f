package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"marketpulse/internal/config"
	"marketpulse/internal/engine"
	"marketpulse/internal/logger"
	"marketpulse/internal/market"
	"marketpulse/internal/store"
	httpapi "marketpulse/internal/transport/http"
)

// App owns application orchestration: build the dependency graph, then run
// the HTTP server, the engine loop, the config watcher and the schedulers
// until the context is cancelled.
type App struct {
	cfg      *config.Config
	store    store.Store
	book     *market.SentimentBook
	analysis *market.AnalysisService
	engine   *engine.Engine
	httpSrv  *httpapi.Server
	watcher  *config.Watcher
}

// NewApp builds the application from a loaded config without starting it.
// cfgPath is watched for trading-config edits.
func NewApp(cfg *config.Config, cfgPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return build(cfg, cfgPath)
}

// Engine exposes the engine for test and replay harnesses.
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

// Run blocks until ctx is done or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer func() {
		if err := a.store.Close(); err != nil {
			logger.Warnf("app: store close: %v", err)
		}
	}()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Infof("app: http api listening on %s", a.httpSrv.Addr())
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		return a.engine.Run(ctx)
	})

	group.Go(func() error {
		err := a.watcher.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warnf("app: config watcher stopped: %v", err)
		}
		return nil
	})

	group.Go(func() error {
		a.applyStagedLoop(ctx)
		return nil
	})

	sched, err := a.startCron()
	if err != nil {
		return err
	}
	group.Go(func() error {
		<-ctx.Done()
		<-sched.Stop().Done()
		return nil
	})

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// applyStagedLoop hands staged trading configs to the engine, which only
// accepts them while inactive.
func (a *App) applyStagedLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			staged := a.watcher.Staged()
			if staged == nil {
				continue
			}
			if !a.engine.ApplyStagedConfig(*staged) {
				logger.Infof("app: staged config held, engine not inactive")
			}
		}
	}
}

// startCron schedules the daily signal recompute after each day boundary
// and an hourly cache sweep.
func (a *App) startCron() (*cron.Cron, error) {
	sched := cron.New()
	if _, err := sched.AddFunc("5 0 * * *", a.recomputeAll); err != nil {
		return nil, fmt.Errorf("cron recompute: %w", err)
	}
	if _, err := sched.AddFunc("@hourly", a.analysis.SweepCache); err != nil {
		return nil, fmt.Errorf("cron sweep: %w", err)
	}
	sched.Start()
	return sched, nil
}

func (a *App) recomputeAll() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	for _, scope := range a.book.Scopes() {
		if _, _, err := a.analysis.Recompute(ctx, scope); err != nil {
			logger.Warnf("app: daily recompute for %s: %v", scope, err)
		}
	}
}
