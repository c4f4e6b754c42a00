// Package daemon wires the checker, circuit breaker, metrics collector and
// HTTP API into one long-running monitoring service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/statuskit/statusd/internal/checker"
	"github.com/statuskit/statusd/internal/circuit"
	"github.com/statuskit/statusd/internal/config"
	"github.com/statuskit/statusd/internal/contracts"
	"github.com/statuskit/statusd/internal/domain"
	apperrors "github.com/statuskit/statusd/internal/errors"
	"github.com/statuskit/statusd/internal/metrics"
)

// Service is the monitoring orchestrator: it owns the scheduled check loop,
// feeds every completed result through the circuit breaker and the metrics
// collector, caches the latest verdicts, and serves the HTTP API.
// NewService should be used to create instances of Service.
type Service struct {
	logger    hclog.Logger
	checker   *checker.DualHealthChecker
	cache     *checker.ResultCache
	breaker   *circuit.Breaker
	collector *metrics.Collector
	apiServer *APIServer
	cfgLoader config.Loader
	cfgPath   string
	opts      Options

	cfg *configState
}

var (
	_ contracts.StatusService = (*Service)(nil)
	_ contracts.TrafficGate   = (*circuit.Breaker)(nil)
)

// NewService creates a fully wired monitoring service listening on apiAddr.
func NewService(logger hclog.Logger, cfgLoader config.Loader, cfgPath string, apiAddr string, opt ...Option) (*Service, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfgLoader == nil || reflect.ValueOf(cfgLoader).IsNil() {
		return nil, fmt.Errorf("config loader cannot be nil")
	}

	opts, err := NewOptions(opt...)
	if err != nil {
		return nil, fmt.Errorf("invalid service options: %w", err)
	}

	breaker, err := circuit.NewBreaker(logger, opts.BreakerConfig)
	if err != nil {
		return nil, err
	}

	collector, err := metrics.NewCollector(logger, opts.MetricsRetention, opts.MetricsRegisterer)
	if err != nil {
		return nil, err
	}

	s := &Service{
		logger:    logger.Named("daemon"),
		checker:   checker.NewDualHealthChecker(logger, &http.Client{}, nil, opts.MaxConcurrency),
		cache:     checker.NewResultCache(opts.CacheTTL),
		breaker:   breaker,
		collector: collector,
		cfgLoader: cfgLoader,
		cfgPath:   cfgPath,
		opts:      opts,
		cfg:       newConfigState(),
	}

	deps, err := NewAPIDependencies(logger, s, apiAddr)
	if err != nil {
		return nil, err
	}
	apiServer, err := NewAPIServer(deps, opts.APIOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create API server: %w", err)
	}
	s.apiServer = apiServer

	return s, nil
}

// StartAndManage loads the configuration, runs an initial check cycle, then
// blocks serving scheduled checks, cleanup jobs, config watching and the
// HTTP API until the context is canceled.
func (s *Service) StartAndManage(ctx context.Context) error {
	cfg, err := s.cfgLoader.Load(s.cfgPath)
	if err != nil {
		return err
	}
	s.cfg.replace(cfg)

	entries := s.cfg.entries()
	s.logger.Info("Loaded monitoring config", "servers", len(entries))

	// First cycle runs immediately so the API has data at startup.
	s.runCycle(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.checkLoop(gctx)
	})
	g.Go(func() error {
		return s.pruneLoop(gctx)
	})
	if s.opts.WatchConfig {
		watcher, err := config.NewWatcher(s.logger, s.cfgLoader, s.cfgPath, s.onConfigReload)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return watcher.Start(gctx)
		})
	}
	g.Go(func() error {
		return s.apiServer.Start(gctx)
	})

	return g.Wait()
}

// checkLoop runs the scheduled check cycle until the context is canceled.
func (s *Service) checkLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping scheduled health checks")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// pruneLoop periodically drops expired cache entries and aged-out metrics
// samples. The job is owned by the service lifecycle, not a free-running
// goroutine.
func (s *Service) pruneLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.cache.Prune()
			s.collector.Prune()
		}
	}
}

// runCycle checks every configured server, with probe paths gated by the
// circuit breaker, and feeds the results through the breaker, the metrics
// collector and the result cache.
func (s *Service) runCycle(ctx context.Context) {
	entries := s.cfg.entries()
	if len(entries) == 0 {
		return
	}

	gated := make([]config.ServerEntry, 0, len(entries))
	for _, entry := range entries {
		eff, skip := s.gate(entry)
		if skip {
			s.logger.Debug("Skipping server, circuit breaker blocks all paths", "server", entry.Name)
			continue
		}
		gated = append(gated, eff)
	}
	if len(gated) == 0 {
		return
	}

	results := s.checker.CheckServers(ctx, gated)
	for _, result := range results {
		s.ingest(result)
	}
}

// gate disables probe paths that the circuit breaker currently blocks.
// skip is true when every config-enabled path is blocked.
func (s *Service) gate(entry config.ServerEntry) (config.ServerEntry, bool) {
	if !entry.MCPEnabled && !entry.RESTEnabled {
		// Nothing to gate; the check aggregates to UNKNOWN.
		return entry, false
	}

	eff := entry
	if eff.MCPEnabled && !s.breaker.AllowMCP(entry.Name) {
		eff.MCPEnabled = false
	}
	if eff.RESTEnabled && !s.breaker.AllowREST(entry.Name) {
		eff.RESTEnabled = false
	}

	return eff, !eff.MCPEnabled && !eff.RESTEnabled
}

// ingest applies one completed result to the breaker, metrics and cache.
func (s *Service) ingest(result domain.DualHealthCheckResult) {
	overall := s.breaker.Evaluate(result.ServerName, result)
	s.collector.Record(result)
	s.cache.Store(result)

	if result.OverallStatus != domain.StatusHealthy {
		s.logger.Warn("Server is not healthy",
			"server", result.ServerName,
			"status", result.OverallStatus,
			"circuit", overall,
			"error", result.ErrorMessage,
		)
	}
}

// onConfigReload swaps in a freshly loaded config and drops state for
// servers that disappeared from it.
func (s *Service) onConfigReload(cfg config.Modifier) {
	known := make(map[string]struct{})
	for _, e := range cfg.ListServers() {
		known[e.Name] = struct{}{}
	}
	for _, e := range s.cfg.entries() {
		if _, ok := known[e.Name]; !ok {
			s.logger.Info("Server removed from config, dropping state", "server", e.Name)
			s.breaker.Forget(e.Name)
			s.cache.Remove(e.Name)
		}
	}

	s.cfg.replace(cfg)
}

// LatestResults returns the cached latest verdict for every server.
func (s *Service) LatestResults() []domain.DualHealthCheckResult {
	return s.cache.LatestAll()
}

// LatestResult returns the cached latest verdict for one server.
func (s *Service) LatestResult(name string) (domain.DualHealthCheckResult, error) {
	if result, ok := s.cache.Latest(name); ok {
		return result, nil
	}
	if _, ok := s.cfg.get(name); !ok {
		return domain.DualHealthCheckResult{}, fmt.Errorf("%w: %s", apperrors.ErrServerNotFound, name)
	}
	return domain.DualHealthCheckResult{}, fmt.Errorf("%w: %s", apperrors.ErrResultNotFound, name)
}

// TriggerCheck runs an on-demand check for one server, or every server when
// name is empty. On-demand checks bypass circuit breaker gating: they are an
// explicit operator request, and their results still feed the breaker.
func (s *Service) TriggerCheck(ctx context.Context, name string) ([]domain.DualHealthCheckResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrCheckFailed, err)
	}

	var entries []config.ServerEntry
	if name == "" {
		entries = s.cfg.entries()
	} else {
		entry, ok := s.cfg.get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrServerNotFound, name)
		}
		entries = []config.ServerEntry{entry}
	}

	results := s.checker.CheckServers(ctx, entries)
	for _, result := range results {
		s.ingest(result)
	}
	return results, nil
}

// WindowStats aggregates recorded checks for one server.
func (s *Service) WindowStats(name string, window time.Duration) (contracts.WindowStats, error) {
	stats, err := s.collector.Window(name, window)
	if err != nil {
		if _, ok := s.cfg.get(name); !ok {
			return contracts.WindowStats{}, fmt.Errorf("%w: %s", apperrors.ErrServerNotFound, name)
		}
		return contracts.WindowStats{}, err
	}
	return stats, nil
}

// AllWindowStats aggregates recorded checks for every server with samples.
func (s *Service) AllWindowStats(window time.Duration) []contracts.WindowStats {
	names := s.collector.Servers()
	out := make([]contracts.WindowStats, 0, len(names))
	for _, name := range names {
		stats, err := s.collector.Window(name, window)
		if err != nil {
			continue
		}
		out = append(out, stats)
	}
	return out
}

// BreakerSnapshot returns the breaker view for one server.
func (s *Service) BreakerSnapshot(name string) (circuit.PathSnapshot, circuit.PathSnapshot, circuit.OverallState, []string, error) {
	mcp, rest, err := s.breaker.PathStates(name)
	if err != nil {
		if _, ok := s.cfg.get(name); !ok {
			return circuit.PathSnapshot{}, circuit.PathSnapshot{}, "", nil,
				fmt.Errorf("%w: %s", apperrors.ErrServerNotFound, name)
		}
		return circuit.PathSnapshot{}, circuit.PathSnapshot{}, "", nil, err
	}

	return mcp, rest, s.breaker.OverallStateFor(name), s.breaker.AvailablePaths(name), nil
}

// ResetBreaker force-closes one or both breaker paths for a server.
func (s *Service) ResetBreaker(name string, path *domain.PathType) error {
	if _, ok := s.cfg.get(name); !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrServerNotFound, name)
	}
	return s.breaker.Reset(name, path)
}

// ServerConfigs returns the current monitoring configuration.
func (s *Service) ServerConfigs() []config.ServerEntry {
	return s.cfg.entries()
}

// UpsertServerConfig validates, applies and persists a server entry.
// Validation failures are client errors; a missing config or a failed save
// is a server-side fault and keeps its own sentinel.
func (s *Service) UpsertServerConfig(entry config.ServerEntry) error {
	switch err := s.cfg.upsert(entry); {
	case err == nil:
	case errors.Is(err, config.ErrConfigSaveFailed):
		return fmt.Errorf("%w: %w", apperrors.ErrConfigSaveFailed, err)
	case errors.Is(err, config.ErrConfigLoadFailed):
		return fmt.Errorf("%w: %w", apperrors.ErrConfigLoadFailed, err)
	default:
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidServerConfig, err)
	}

	s.logger.Info("Applied server config update", "server", entry.Name)
	return nil
}
