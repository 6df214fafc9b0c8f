package config

import (
	"context"
	"sync"
	"time"

	"marketpulse/internal/logger"

	"github.com/fsnotify/fsnotify"
)

// Watcher stages trading-config changes from disk. The engine consumes a
// staged config only while inactive; nothing is hot-swapped mid-session.
type Watcher struct {
	path string

	mu     sync.Mutex
	staged *TradingConfig
}

func NewWatcher(path string) *Watcher {
	return &Watcher{path: path}
}

// Staged returns the most recent valid trading config seen on disk and
// clears it, or nil if nothing new has arrived.
func (w *Watcher) Staged() *TradingConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	staged := w.staged
	w.staged = nil
	return staged
}

// Run blocks until ctx is done, staging a reload on every write to the
// config file. Invalid files are logged and ignored; the running session is
// never disturbed by a bad edit.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(w.path); err != nil {
		return err
	}
	logger.Infof("config watcher: watching %s", w.path)

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Editors fire bursts of writes; settle before reloading.
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, w.reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("config watcher: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logger.Warnf("config watcher: reload rejected: %v", err)
		return
	}
	w.mu.Lock()
	staged := cfg.Trading
	w.staged = &staged
	w.mu.Unlock()
	logger.Infof("config watcher: trading config staged (applies when engine is inactive)")
}
