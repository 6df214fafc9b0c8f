package signal

import (
	"strings"
	"sync"
	"time"
)

// Cache memoizes the last computed signal per asset scope. Purely a latency
// optimization: a miss just means recomputation.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	defaultTTL time.Duration
	now        func() time.Time
}

type cacheEntry struct {
	signal    WeeklySignal
	summary   string
	expiresAt time.Time
}

func NewCache(defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Cache{
		entries:    make(map[string]cacheEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the cached signal and its trend summary. Entries past their
// TTL are treated as absent, never returned stale.
func (c *Cache) Get(key string) (WeeklySignal, string, bool) {
	key = normalizeKey(key)
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return WeeklySignal{}, "", false
	}
	return entry.signal, entry.summary, true
}

// Put stores a signal with its opaque trend summary. A non-positive ttl
// falls back to the cache default.
func (c *Cache) Put(key string, sig WeeklySignal, summary string, ttl time.Duration) {
	key = normalizeKey(key)
	if key == "" {
		return
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry{
		signal:    sig,
		summary:   summary,
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
}

// Sweep drops expired entries; wired to the cron scheduler.
func (c *Cache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func normalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
