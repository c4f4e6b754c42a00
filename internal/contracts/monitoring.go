package contracts

import (
	"context"
	"time"

	"github.com/statuskit/statusd/internal/config"
	"github.com/statuskit/statusd/internal/domain"
)

// HealthChecker runs dual-path health checks against configured servers.
type HealthChecker interface {
	// CheckServer probes one server over every enabled path and aggregates
	// the outcome. An error is returned only for programming mistakes such
	// as an empty server name; failed probes are data on the result.
	CheckServer(ctx context.Context, entry config.ServerEntry) (domain.DualHealthCheckResult, error)

	// CheckServers fans out over the supplied entries with bounded
	// concurrency and returns one result per entry. A crashing or
	// unreachable server never aborts its siblings.
	CheckServers(ctx context.Context, entries []config.ServerEntry) []domain.DualHealthCheckResult
}

// ResultCache holds the most recent check result per server with TTL eviction.
type ResultCache interface {
	// Store records the latest result for its server.
	Store(result domain.DualHealthCheckResult)

	// Latest returns the most recent unexpired result for a server.
	Latest(name string) (domain.DualHealthCheckResult, bool)

	// LatestAll returns the most recent unexpired result for every server.
	LatestAll() []domain.DualHealthCheckResult

	// Prune drops expired entries.
	Prune()
}

// MetricsRecorder ingests every completed check result, failed ones included.
type MetricsRecorder interface {
	// Record ingests one completed check result. It must be called exactly
	// once per completed check.
	Record(result domain.DualHealthCheckResult)

	// Window aggregates recorded results for a server over the trailing window.
	Window(name string, window time.Duration) (WindowStats, error)

	// Prune drops recorded samples that fell out of the retention window.
	Prune()
}

// WindowStats summarizes recorded checks for one server over a time window.
type WindowStats struct {
	ServerName     string
	Window         time.Duration
	TotalChecks    int
	HealthyChecks  int
	DegradedChecks int
	FailedChecks   int
	SuccessRate    float64
	AverageLatency time.Duration
	P95Latency     time.Duration
	AverageScore   float64
}

// TrafficGate decides whether probe or application traffic may be sent to a
// server path, based on circuit breaker state rather than last-check success.
type TrafficGate interface {
	// AllowMCP reports whether MCP traffic may currently flow to the server.
	AllowMCP(name string) bool

	// AllowREST reports whether REST traffic may currently flow to the server.
	AllowREST(name string) bool

	// AvailablePaths returns the traffic-routing view for a server:
	// ["both"], ["mcp"], ["rest"] or ["none"].
	AvailablePaths(name string) []string
}
