package metrics

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/statuskit/statusd/internal/domain"
	apperrors "github.com/statuskit/statusd/internal/errors"
)

func newTestCollector(t *testing.T, retention time.Duration) (*Collector, *time.Time) {
	t.Helper()

	c, err := NewCollector(hclog.NewNullLogger(), retention, prometheus.NewRegistry())
	require.NoError(t, err)

	current := time.Now()
	c.now = func() time.Time { return current }
	return c, &current
}

func sampleResult(name string, status domain.Status, score float64, combined time.Duration, at time.Time) domain.DualHealthCheckResult {
	return domain.DualHealthCheckResult{
		ServerName:           name,
		Timestamp:            at,
		OverallStatus:        status,
		HealthScore:          score,
		CombinedResponseTime: combined,
		MCPResult:            &domain.MCPHealthCheckResult{ServerName: name, Success: status == domain.StatusHealthy},
		MCPSuccess:           status == domain.StatusHealthy,
		RESTResult:           &domain.RESTHealthCheckResult{ServerName: name, Success: status != domain.StatusUnhealthy},
		RESTSuccess:          status != domain.StatusUnhealthy,
	}
}

func TestCollector_WindowStats(t *testing.T) {
	t.Parallel()

	c, current := newTestCollector(t, time.Hour)
	at := *current

	c.Record(sampleResult("srv", domain.StatusHealthy, 1.0, 100*time.Millisecond, at))
	c.Record(sampleResult("srv", domain.StatusHealthy, 0.9, 200*time.Millisecond, at))
	c.Record(sampleResult("srv", domain.StatusDegraded, 0.65, 300*time.Millisecond, at))
	c.Record(sampleResult("srv", domain.StatusUnhealthy, 0.0, 400*time.Millisecond, at))

	stats, err := c.Window("srv", 30*time.Minute)
	require.NoError(t, err)

	require.Equal(t, "srv", stats.ServerName)
	require.Equal(t, 30*time.Minute, stats.Window)
	require.Equal(t, 4, stats.TotalChecks)
	require.Equal(t, 2, stats.HealthyChecks)
	require.Equal(t, 1, stats.DegradedChecks)
	require.Equal(t, 1, stats.FailedChecks)
	require.InDelta(t, 0.5, stats.SuccessRate, 1e-9)
	require.Equal(t, 250*time.Millisecond, stats.AverageLatency)
	require.Equal(t, 300*time.Millisecond, stats.P95Latency)
	require.InDelta(t, 0.6375, stats.AverageScore, 1e-9)
}

func TestCollector_WindowFiltersByAge(t *testing.T) {
	t.Parallel()

	c, current := newTestCollector(t, time.Hour)

	old := current.Add(-45 * time.Minute)
	c.Record(sampleResult("srv", domain.StatusUnhealthy, 0.0, time.Second, old))
	c.Record(sampleResult("srv", domain.StatusHealthy, 1.0, 100*time.Millisecond, *current))

	stats, err := c.Window("srv", 10*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalChecks)
	require.Equal(t, 1, stats.HealthyChecks)

	// The full retention window still sees both samples.
	stats, err = c.Window("srv", 0)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalChecks)
}

func TestCollector_WindowUnknownServer(t *testing.T) {
	t.Parallel()

	c, _ := newTestCollector(t, time.Hour)

	_, err := c.Window("never-recorded", time.Minute)
	require.Error(t, err)
	require.ErrorIs(t, err, apperrors.ErrResultNotFound)
}

func TestCollector_EmptyWindow(t *testing.T) {
	t.Parallel()

	c, current := newTestCollector(t, time.Hour)
	c.Record(sampleResult("srv", domain.StatusHealthy, 1.0, time.Millisecond, current.Add(-50*time.Minute)))

	stats, err := c.Window("srv", time.Minute)
	require.NoError(t, err)
	require.Zero(t, stats.TotalChecks)
	require.Zero(t, stats.SuccessRate)
	require.Zero(t, stats.AverageLatency)
}

func TestCollector_Servers(t *testing.T) {
	t.Parallel()

	c, current := newTestCollector(t, time.Hour)
	c.Record(sampleResult("zeta", domain.StatusHealthy, 1.0, time.Millisecond, *current))
	c.Record(sampleResult("alpha", domain.StatusHealthy, 1.0, time.Millisecond, *current))

	require.Equal(t, []string{"alpha", "zeta"}, c.Servers())
}

func TestCollector_Prune(t *testing.T) {
	t.Parallel()

	c, current := newTestCollector(t, time.Hour)

	c.Record(sampleResult("srv", domain.StatusHealthy, 1.0, time.Millisecond, *current))
	*current = current.Add(2 * time.Hour)
	c.Prune()

	_, err := c.Window("srv", 0)
	require.ErrorIs(t, err, apperrors.ErrResultNotFound)
	require.Empty(t, c.Servers())
}

func TestCollector_PrometheusExposition(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c, err := NewCollector(hclog.NewNullLogger(), time.Hour, reg)
	require.NoError(t, err)

	c.Record(sampleResult("srv", domain.StatusHealthy, 0.95, 100*time.Millisecond, time.Now()))
	c.Record(sampleResult("srv", domain.StatusDegraded, 0.65, 100*time.Millisecond, time.Now()))

	require.InDelta(t, 1.0, testutil.ToFloat64(c.checksTotal.WithLabelValues("srv", "HEALTHY")), 1e-9)
	require.InDelta(t, 1.0, testutil.ToFloat64(c.checksTotal.WithLabelValues("srv", "DEGRADED")), 1e-9)
	require.InDelta(t, 0.65, testutil.ToFloat64(c.healthScore.WithLabelValues("srv")), 1e-9)
	require.InDelta(t, 0.0, testutil.ToFloat64(c.pathUp.WithLabelValues("srv", "mcp")), 1e-9)
	require.InDelta(t, 1.0, testutil.ToFloat64(c.pathUp.WithLabelValues("srv", "rest")), 1e-9)
}

func TestCollector_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewCollector(hclog.NewNullLogger(), time.Hour, reg)
	require.NoError(t, err)

	_, err = NewCollector(hclog.NewNullLogger(), time.Hour, reg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to register")
}
