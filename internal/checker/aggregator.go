// Package checker runs dual-path health checks: it probes a server over MCP
// and REST concurrently, aggregates the two outcomes into a single verdict,
// and caches the latest verdict per server.
package checker

import (
	"fmt"
	"strings"
	"time"

	"github.com/statuskit/statusd/internal/domain"
)

const (
	// DefaultMCPWeight and DefaultRESTWeight set the relative contribution
	// of each path to the health score. MCP is weighted higher because it
	// exercises the full protocol rather than a liveness endpoint.
	DefaultMCPWeight  = 0.6
	DefaultRESTWeight = 0.4

	// DefaultFastResponse is the per-path latency at or under which a
	// response earns the score bonus.
	DefaultFastResponse = 1000 * time.Millisecond

	// responseTimeBonus is added per successful path that answered within
	// the fast-response bound.
	responseTimeBonus = 0.05

	// healthyBase is the score floor when every enabled path succeeded.
	healthyBase = 0.9
)

// Aggregator combines per-path probe results into one DualHealthCheckResult.
// The scoring algorithm is deterministic: aggregating the same inputs twice
// yields identical output apart from the timestamp.
//
// Scoring:
//   - every enabled path succeeded (two paths): healthyBase plus a bonus of
//     responseTimeBonus per path that answered within FastResponse, so a
//     fully healthy fast server scores 1.0;
//   - exactly one path succeeded: the weight of the succeeding path
//     (normalized over both weights) plus the same bonus for that path,
//     which keeps the score inside [0.3, 0.7] with the default weights;
//   - no path succeeded: 0.0;
//   - no path enabled: 0.0 with status UNKNOWN.
//
// NewAggregator should be used to create instances of Aggregator.
type Aggregator struct {
	mcpWeight    float64
	restWeight   float64
	fastResponse time.Duration
}

// NewAggregator creates an aggregator, validating that the weights are
// positive and the fast-response bound is positive.
func NewAggregator(mcpWeight, restWeight float64, fastResponse time.Duration) (*Aggregator, error) {
	if mcpWeight <= 0 {
		return nil, fmt.Errorf("mcp weight must be positive, got %v", mcpWeight)
	}
	if restWeight <= 0 {
		return nil, fmt.Errorf("rest weight must be positive, got %v", restWeight)
	}
	if fastResponse <= 0 {
		return nil, fmt.Errorf("fast response bound must be positive, got %v", fastResponse)
	}

	return &Aggregator{
		mcpWeight:    mcpWeight,
		restWeight:   restWeight,
		fastResponse: fastResponse,
	}, nil
}

// DefaultAggregator returns an aggregator with the default weights and bounds.
func DefaultAggregator() *Aggregator {
	agg, err := NewAggregator(DefaultMCPWeight, DefaultRESTWeight, DefaultFastResponse)
	if err != nil {
		// Defaults are compile-time constants, this cannot happen.
		panic(err)
	}
	return agg
}

// Aggregate combines the per-path results for one server into the final
// verdict. A nil result means the path was not probed; the enabled flags
// distinguish "disabled by config" from "probed and failed".
func (a *Aggregator) Aggregate(
	serverName string,
	mcpResult *domain.MCPHealthCheckResult,
	restResult *domain.RESTHealthCheckResult,
	mcpEnabled bool,
	restEnabled bool,
) domain.DualHealthCheckResult {
	out := domain.DualHealthCheckResult{
		ServerName: serverName,
		Timestamp:  time.Now().UTC(),
		MCPResult:  mcpResult,
		RESTResult: restResult,
	}

	if mcpResult != nil {
		out.MCPSuccess = mcpResult.Success
		out.MCPResponseTime = mcpResult.ResponseTime
	}
	if restResult != nil {
		out.RESTSuccess = restResult.Success
		out.RESTResponseTime = restResult.ResponseTime
	}

	if out.MCPSuccess {
		out.AvailablePaths = append(out.AvailablePaths, domain.PathMCP)
	}
	if out.RESTSuccess {
		out.AvailablePaths = append(out.AvailablePaths, domain.PathREST)
	}

	out.CombinedResponseTime = combinedResponseTime(mcpResult, restResult)

	switch {
	case !mcpEnabled && !restEnabled:
		out.OverallStatus = domain.StatusUnknown
		out.HealthScore = 0.0
	case mcpEnabled && restEnabled && out.MCPSuccess && out.RESTSuccess:
		out.OverallStatus = domain.StatusHealthy
		out.OverallSuccess = true
		out.HealthScore = a.healthyScore(out)
	case out.MCPSuccess || out.RESTSuccess:
		// Either a mixed result, or a single enabled path that succeeded.
		// Coverage is impaired in both cases.
		out.OverallStatus = domain.StatusDegraded
		out.HealthScore = a.degradedScore(out)
	default:
		out.OverallStatus = domain.StatusUnhealthy
		out.HealthScore = 0.0
	}

	if !out.OverallSuccess {
		out.ErrorMessage = composeErrorMessage(mcpResult, restResult, mcpEnabled, restEnabled)
	}

	return out
}

func (a *Aggregator) healthyScore(r domain.DualHealthCheckResult) float64 {
	score := healthyBase
	if r.MCPResponseTime <= a.fastResponse {
		score += responseTimeBonus
	}
	if r.RESTResponseTime <= a.fastResponse {
		score += responseTimeBonus
	}
	return min(score, 1.0)
}

func (a *Aggregator) degradedScore(r domain.DualHealthCheckResult) float64 {
	total := a.mcpWeight + a.restWeight

	var score float64
	if r.MCPSuccess {
		score = a.mcpWeight / total
		if r.MCPResponseTime <= a.fastResponse {
			score += responseTimeBonus
		}
	} else {
		score = a.restWeight / total
		if r.RESTResponseTime <= a.fastResponse {
			score += responseTimeBonus
		}
	}
	return min(score, 1.0)
}

// combinedResponseTime is the mean response time of the paths that were
// actually probed, regardless of their success.
func combinedResponseTime(mcpResult *domain.MCPHealthCheckResult, restResult *domain.RESTHealthCheckResult) time.Duration {
	var sum time.Duration
	var n int
	if mcpResult != nil {
		sum += mcpResult.ResponseTime
		n++
	}
	if restResult != nil {
		sum += restResult.ResponseTime
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / time.Duration(n)
}

// composeErrorMessage joins the per-path failure reasons for enabled paths
// that failed, in MCP-then-REST order.
func composeErrorMessage(
	mcpResult *domain.MCPHealthCheckResult,
	restResult *domain.RESTHealthCheckResult,
	mcpEnabled bool,
	restEnabled bool,
) string {
	var parts []string
	if mcpEnabled && (mcpResult == nil || !mcpResult.Success) {
		parts = append(parts, "MCP: "+mcpResult.ErrorSummary())
	}
	if restEnabled && (restResult == nil || !restResult.Success) {
		parts = append(parts, "REST: "+restResult.ErrorSummary())
	}
	return strings.Join(parts, "; ")
}
