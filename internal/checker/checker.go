package checker

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/statuskit/statusd/internal/config"
	"github.com/statuskit/statusd/internal/contracts"
	"github.com/statuskit/statusd/internal/domain"
	"github.com/statuskit/statusd/internal/probe"
)

// DefaultMaxConcurrency bounds how many servers a batch check probes at once.
const DefaultMaxConcurrency = 10

// DualHealthChecker probes servers over both paths concurrently and
// aggregates the outcomes. NewDualHealthChecker should be used to create
// instances of DualHealthChecker.
type DualHealthChecker struct {
	logger         hclog.Logger
	mcpProbe       *probe.MCPProbe
	restProbe      *probe.RESTProbe
	aggregator     *Aggregator
	maxConcurrency int
}

var _ contracts.HealthChecker = (*DualHealthChecker)(nil)

// NewDualHealthChecker creates a checker. A nil aggregator selects the
// default scoring configuration; maxConcurrency <= 0 selects the default
// batch bound. The HTTP client is shared by both probes so connection
// pooling spans the fleet.
func NewDualHealthChecker(logger hclog.Logger, client *http.Client, aggregator *Aggregator, maxConcurrency int) *DualHealthChecker {
	if aggregator == nil {
		aggregator = DefaultAggregator()
	}
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}

	return &DualHealthChecker{
		logger:         logger.Named("checker"),
		mcpProbe:       probe.NewMCPProbe(logger, client),
		restProbe:      probe.NewRESTProbe(logger, client),
		aggregator:     aggregator,
		maxConcurrency: maxConcurrency,
	}
}

// CheckServer probes one server over every enabled path and aggregates the
// outcome. Both probes run concurrently with independent timeouts; a slow or
// failing path never blocks or corrupts the other. The error return is
// reserved for programming mistakes such as an unnamed entry.
func (c *DualHealthChecker) CheckServer(ctx context.Context, entry config.ServerEntry) (domain.DualHealthCheckResult, error) {
	if strings.TrimSpace(entry.Name) == "" {
		return domain.DualHealthCheckResult{}, fmt.Errorf("server entry has no name")
	}

	var (
		wg         sync.WaitGroup
		mcpResult  *domain.MCPHealthCheckResult
		restResult *domain.RESTHealthCheckResult
	)

	if entry.MCPEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mcpResult = c.runMCPProbe(ctx, entry)
		}()
	}
	if entry.RESTEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			restResult = c.runRESTProbe(ctx, entry)
		}()
	}

	// Both results are fully resolved before aggregation begins.
	wg.Wait()

	result := c.aggregator.Aggregate(entry.Name, mcpResult, restResult, entry.MCPEnabled, entry.RESTEnabled)
	c.logger.Debug("Completed dual health check",
		"server", entry.Name,
		"status", result.OverallStatus,
		"score", result.HealthScore,
		"combined_response_time", result.CombinedResponseTime,
	)

	return result, nil
}

// CheckServers fans out over the supplied entries with bounded concurrency.
// Exactly one result is returned per entry, in input order. A crashing probe
// or an unnamed entry is converted into an UNHEALTHY result rather than
// aborting the batch.
func (c *DualHealthChecker) CheckServers(ctx context.Context, entries []config.ServerEntry) []domain.DualHealthCheckResult {
	results := make([]domain.DualHealthCheckResult, len(entries))

	g := &errgroup.Group{}
	g.SetLimit(c.maxConcurrency)

	for i, entry := range entries {
		g.Go(func() error {
			result, err := c.CheckServer(ctx, entry)
			if err != nil {
				result = c.failedResult(entry, err.Error())
			}
			results[i] = result
			return nil
		})
	}

	// Worker errors are folded into per-server results above.
	_ = g.Wait()

	return results
}

// runMCPProbe shields the batch from a panicking probe by converting the
// panic into a failed result.
func (c *DualHealthChecker) runMCPProbe(ctx context.Context, entry config.ServerEntry) (result *domain.MCPHealthCheckResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("MCP probe panicked", "server", entry.Name, "panic", r)
			result = &domain.MCPHealthCheckResult{
				ServerName:      entry.Name,
				Timestamp:       time.Now().UTC(),
				ConnectionError: fmt.Sprintf("probe crashed: %v", r),
			}
		}
	}()

	r := c.mcpProbe.Probe(ctx, entry)
	return &r
}

// runRESTProbe shields the batch from a panicking probe by converting the
// panic into a failed result.
func (c *DualHealthChecker) runRESTProbe(ctx context.Context, entry config.ServerEntry) (result *domain.RESTHealthCheckResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("REST probe panicked", "server", entry.Name, "panic", r)
			result = &domain.RESTHealthCheckResult{
				ServerName:        entry.Name,
				Timestamp:         time.Now().UTC(),
				HealthEndpointURL: entry.RESTHealthEndpoint,
				ConnectionError:   fmt.Sprintf("probe crashed: %v", r),
			}
		}
	}()

	r := c.restProbe.Probe(ctx, entry)
	return &r
}

// failedResult builds an UNHEALTHY verdict for a server whose check could
// not run at all.
func (c *DualHealthChecker) failedResult(entry config.ServerEntry, reason string) domain.DualHealthCheckResult {
	mcpResult := &domain.MCPHealthCheckResult{
		ServerName:      entry.Name,
		Timestamp:       time.Now().UTC(),
		ConnectionError: reason,
	}
	restResult := &domain.RESTHealthCheckResult{
		ServerName:        entry.Name,
		Timestamp:         time.Now().UTC(),
		HealthEndpointURL: entry.RESTHealthEndpoint,
		ConnectionError:   reason,
	}
	return c.aggregator.Aggregate(entry.Name, mcpResult, restResult, true, true)
}
