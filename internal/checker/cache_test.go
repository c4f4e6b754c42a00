package checker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/statuskit/statusd/internal/domain"
)

func resultFor(name string, status domain.Status) domain.DualHealthCheckResult {
	return domain.DualHealthCheckResult{
		ServerName:    name,
		Timestamp:     time.Now().UTC(),
		OverallStatus: status,
	}
}

func TestResultCache_StoreAndLatest(t *testing.T) {
	t.Parallel()

	cache := NewResultCache(time.Minute)
	cache.Store(resultFor("a", domain.StatusHealthy))

	got, ok := cache.Latest("a")
	require.True(t, ok)
	require.Equal(t, "a", got.ServerName)
	require.Equal(t, domain.StatusHealthy, got.OverallStatus)

	_, ok = cache.Latest("unknown")
	require.False(t, ok)
}

func TestResultCache_StoreReplacesPrevious(t *testing.T) {
	t.Parallel()

	cache := NewResultCache(time.Minute)
	cache.Store(resultFor("a", domain.StatusHealthy))
	cache.Store(resultFor("a", domain.StatusUnhealthy))

	got, ok := cache.Latest("a")
	require.True(t, ok)
	require.Equal(t, domain.StatusUnhealthy, got.OverallStatus)

	require.Len(t, cache.LatestAll(), 1)
}

func TestResultCache_TTLExpiry(t *testing.T) {
	t.Parallel()

	current := time.Now()
	cache := NewResultCache(time.Minute)
	cache.now = func() time.Time { return current }

	cache.Store(resultFor("a", domain.StatusHealthy))

	_, ok := cache.Latest("a")
	require.True(t, ok)

	// Advance past the TTL: the entry is no longer visible.
	current = current.Add(time.Minute + time.Second)
	_, ok = cache.Latest("a")
	require.False(t, ok)
	require.Empty(t, cache.LatestAll())
}

func TestResultCache_Prune(t *testing.T) {
	t.Parallel()

	current := time.Now()
	cache := NewResultCache(time.Minute)
	cache.now = func() time.Time { return current }

	cache.Store(resultFor("old", domain.StatusHealthy))
	current = current.Add(30 * time.Second)
	cache.Store(resultFor("fresh", domain.StatusHealthy))
	current = current.Add(45 * time.Second)

	cache.Prune()

	_, ok := cache.Latest("old")
	require.False(t, ok)
	_, ok = cache.Latest("fresh")
	require.True(t, ok)
}

func TestResultCache_Remove(t *testing.T) {
	t.Parallel()

	cache := NewResultCache(time.Minute)
	cache.Store(resultFor("a", domain.StatusHealthy))
	cache.Store(resultFor("b", domain.StatusDegraded))

	cache.Remove("a")

	_, ok := cache.Latest("a")
	require.False(t, ok)
	_, ok = cache.Latest("b")
	require.True(t, ok)
}

func TestNewResultCache_DefaultTTL(t *testing.T) {
	t.Parallel()

	cache := NewResultCache(0)
	require.Equal(t, DefaultCacheTTL, cache.ttl)

	cache = NewResultCache(-time.Second)
	require.Equal(t, DefaultCacheTTL, cache.ttl)
}
