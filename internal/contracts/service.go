package contracts

import (
	"context"
	"time"

	"github.com/statuskit/statusd/internal/circuit"
	"github.com/statuskit/statusd/internal/config"
	"github.com/statuskit/statusd/internal/domain"
)

// StatusService is the orchestrator surface consumed by the HTTP API layer.
type StatusService interface {
	// LatestResults returns the cached latest verdict for every server.
	LatestResults() []domain.DualHealthCheckResult

	// LatestResult returns the cached latest verdict for one server.
	LatestResult(name string) (domain.DualHealthCheckResult, error)

	// TriggerCheck runs an on-demand check for one server (or all servers
	// when name is empty) and returns the fresh results. Results are fed
	// through the circuit breaker and metrics exactly like scheduled checks.
	TriggerCheck(ctx context.Context, name string) ([]domain.DualHealthCheckResult, error)

	// WindowStats aggregates recorded checks for one server.
	WindowStats(name string, window time.Duration) (WindowStats, error)

	// AllWindowStats aggregates recorded checks for every known server.
	AllWindowStats(window time.Duration) []WindowStats

	// BreakerSnapshot returns the per-path breaker states, the derived
	// overall state and the routing view for one server.
	BreakerSnapshot(name string) (mcp circuit.PathSnapshot, rest circuit.PathSnapshot, overall circuit.OverallState, paths []string, err error)

	// ResetBreaker force-closes one or both breaker paths for a server.
	ResetBreaker(name string, path *domain.PathType) error

	// ServerConfigs returns the current monitoring configuration.
	ServerConfigs() []config.ServerEntry

	// UpsertServerConfig validates, applies and persists a server entry.
	UpsertServerConfig(entry config.ServerEntry) error
}
