package checker

import (
	"sync"
	"time"

	"github.com/statuskit/statusd/internal/contracts"
	"github.com/statuskit/statusd/internal/domain"
)

// DefaultCacheTTL is how long a check result stays visible before a fresh
// cycle must replace it.
const DefaultCacheTTL = 5 * time.Minute

// ResultCache keeps the most recent DualHealthCheckResult per server with
// TTL-based expiry. Eviction happens lazily on read and via Prune, which the
// orchestrator schedules periodically.
// NewResultCache should be used to create instances of ResultCache.
type ResultCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

var _ contracts.ResultCache = (*ResultCache)(nil)

type cacheEntry struct {
	result   domain.DualHealthCheckResult
	storedAt time.Time
}

// NewResultCache creates a cache with the given TTL; ttl <= 0 selects the default.
func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResultCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Store records the latest result for its server.
func (c *ResultCache) Store(result domain.DualHealthCheckResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[result.ServerName] = cacheEntry{
		result:   result,
		storedAt: c.now(),
	}
}

// Latest returns the most recent unexpired result for a server.
func (c *ResultCache) Latest(name string) (domain.DualHealthCheckResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[name]
	if !ok || c.expired(entry) {
		return domain.DualHealthCheckResult{}, false
	}
	return entry.result, true
}

// LatestAll returns the most recent unexpired result for every server.
func (c *ResultCache) LatestAll() []domain.DualHealthCheckResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.DualHealthCheckResult, 0, len(c.entries))
	for _, entry := range c.entries {
		if c.expired(entry) {
			continue
		}
		out = append(out, entry.result)
	}
	return out
}

// Prune drops expired entries.
func (c *ResultCache) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, name)
		}
	}
}

// Remove drops the entry for a server, if any. Used when a server is
// removed from the configuration.
func (c *ResultCache) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}

func (c *ResultCache) expired(entry cacheEntry) bool {
	return c.now().Sub(entry.storedAt) > c.ttl
}
