// Package metrics records every completed health check into bounded
// in-memory time series and mirrors the latest values into Prometheus
// collectors for scraping.
package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/statuskit/statusd/internal/contracts"
	"github.com/statuskit/statusd/internal/domain"
	apperrors "github.com/statuskit/statusd/internal/errors"
)

const (
	// DefaultRetention is how long samples stay queryable.
	DefaultRetention = 60 * time.Minute

	// maxSamplesPerServer caps per-server memory regardless of retention.
	maxSamplesPerServer = 10000
)

type sample struct {
	at       time.Time
	status   domain.Status
	score    float64
	combined time.Duration
}

// Collector is the in-memory MetricsRecorder. Record must be called exactly
// once per completed check, failed and UNHEALTHY ones included; concurrent
// appends from multiple server-check tasks are safe.
// NewCollector should be used to create instances of Collector.
type Collector struct {
	logger    hclog.Logger
	retention time.Duration

	mu      sync.RWMutex
	samples map[string][]sample

	checksTotal   *prometheus.CounterVec
	healthScore   *prometheus.GaugeVec
	pathUp        *prometheus.GaugeVec
	probeDuration *prometheus.HistogramVec

	now func() time.Time
}

var _ contracts.MetricsRecorder = (*Collector)(nil)

// NewCollector creates a collector and registers its Prometheus metrics.
// A nil registerer uses the default registry; tests pass their own.
func NewCollector(logger hclog.Logger, retention time.Duration, reg prometheus.Registerer) (*Collector, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		logger:    logger.Named("metrics"),
		retention: retention,
		samples:   make(map[string][]sample),
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statusd_checks_total",
			Help: "Completed dual health checks by server and overall status.",
		}, []string{"server", "status"}),
		healthScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "statusd_health_score",
			Help: "Latest aggregated health score per server (0.0-1.0).",
		}, []string{"server"}),
		pathUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "statusd_path_up",
			Help: "Whether the last probe on a path succeeded (1) or failed (0).",
		}, []string{"server", "path"}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statusd_probe_duration_seconds",
			Help:    "Probe round-trip time by server and path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"server", "path"}),
		now: time.Now,
	}

	for _, col := range []prometheus.Collector{c.checksTotal, c.healthScore, c.pathUp, c.probeDuration} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("failed to register metrics collector: %w", err)
		}
	}

	return c, nil
}

// Record ingests one completed check result.
func (c *Collector) Record(result domain.DualHealthCheckResult) {
	c.mu.Lock()
	s := append(c.samples[result.ServerName], sample{
		at:       result.Timestamp,
		status:   result.OverallStatus,
		score:    result.HealthScore,
		combined: result.CombinedResponseTime,
	})
	c.samples[result.ServerName] = pruneSamples(s, c.now().Add(-c.retention))
	c.mu.Unlock()

	c.checksTotal.WithLabelValues(result.ServerName, string(result.OverallStatus)).Inc()
	c.healthScore.WithLabelValues(result.ServerName).Set(result.HealthScore)

	if result.MCPResult != nil {
		c.pathUp.WithLabelValues(result.ServerName, string(domain.PathMCP)).Set(boolGauge(result.MCPSuccess))
		c.probeDuration.WithLabelValues(result.ServerName, string(domain.PathMCP)).
			Observe(result.MCPResponseTime.Seconds())
	}
	if result.RESTResult != nil {
		c.pathUp.WithLabelValues(result.ServerName, string(domain.PathREST)).Set(boolGauge(result.RESTSuccess))
		c.probeDuration.WithLabelValues(result.ServerName, string(domain.PathREST)).
			Observe(result.RESTResponseTime.Seconds())
	}
}

// Window aggregates recorded results for a server over the trailing window.
func (c *Collector) Window(name string, window time.Duration) (contracts.WindowStats, error) {
	if window <= 0 || window > c.retention {
		window = c.retention
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	all, ok := c.samples[name]
	if !ok {
		return contracts.WindowStats{}, fmt.Errorf("%w: %s", apperrors.ErrResultNotFound, name)
	}

	cutoff := c.now().Add(-window)
	stats := contracts.WindowStats{ServerName: name, Window: window}

	var latencies []time.Duration
	var latencySum time.Duration
	var scoreSum float64
	for _, s := range all {
		if !s.at.After(cutoff) {
			continue
		}
		stats.TotalChecks++
		switch s.status {
		case domain.StatusHealthy:
			stats.HealthyChecks++
		case domain.StatusDegraded:
			stats.DegradedChecks++
		default:
			stats.FailedChecks++
		}
		latencies = append(latencies, s.combined)
		latencySum += s.combined
		scoreSum += s.score
	}

	if stats.TotalChecks == 0 {
		return stats, nil
	}

	stats.SuccessRate = float64(stats.HealthyChecks) / float64(stats.TotalChecks)
	stats.AverageLatency = latencySum / time.Duration(stats.TotalChecks)
	stats.AverageScore = scoreSum / float64(stats.TotalChecks)
	stats.P95Latency = percentile(latencies, 0.95)

	return stats, nil
}

// Servers returns the names of all servers with recorded samples.
func (c *Collector) Servers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.samples))
	for name := range c.samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Prune drops samples that fell out of the retention window.
func (c *Collector) Prune() {
	cutoff := c.now().Add(-c.retention)

	c.mu.Lock()
	defer c.mu.Unlock()

	for name, s := range c.samples {
		pruned := pruneSamples(s, cutoff)
		if len(pruned) == 0 {
			delete(c.samples, name)
			continue
		}
		c.samples[name] = pruned
	}
}

// pruneSamples drops entries at or before cutoff and enforces the ring cap.
// Samples are appended in time order, so a single scan suffices.
func pruneSamples(s []sample, cutoff time.Time) []sample {
	idx := 0
	for idx < len(s) && !s[idx].at.After(cutoff) {
		idx++
	}
	s = s[idx:]
	if len(s) > maxSamplesPerServer {
		s = s[len(s)-maxSamplesPerServer:]
	}
	return s
}

// percentile returns the p-th percentile of the given latencies.
func percentile(latencies []time.Duration, p float64) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
