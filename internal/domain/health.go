package domain

import (
	"strings"
	"time"
)

const (
	// StatusHealthy indicates every enabled path answered successfully.
	StatusHealthy Status = "HEALTHY"

	// StatusDegraded indicates exactly one of the enabled paths answered successfully.
	StatusDegraded Status = "DEGRADED"

	// StatusUnhealthy indicates no enabled path answered successfully.
	StatusUnhealthy Status = "UNHEALTHY"

	// StatusUnknown indicates no path was enabled, so nothing could be checked.
	StatusUnknown Status = "UNKNOWN"
)

const (
	PathMCP  PathType = "mcp"
	PathREST PathType = "rest"
)

// Status represents the aggregated health verdict for a server.
type Status string

// PathType identifies one of the two probe paths used to check a server.
type PathType string

// MCPHealthCheckResult is the outcome of a single JSON-RPC tools/list probe.
// Expected failures (network errors, timeouts, protocol violations) are
// recorded on the result rather than returned as errors.
type MCPHealthCheckResult struct {
	ServerName         string
	Timestamp          time.Time
	Success            bool
	ResponseTime       time.Duration
	ToolsCount         int
	ExpectedToolsFound []string
	MissingTools       []string
	ValidationErrors   []string
	ConnectionError    string
	RequestID          string
	JSONRPCVersion     string
}

// ErrorSummary returns a single human-readable string describing why the
// probe failed, or an empty string for a successful probe.
func (r *MCPHealthCheckResult) ErrorSummary() string {
	if r == nil {
		return "not checked"
	}
	if r.Success {
		return ""
	}
	if r.ConnectionError != "" {
		return r.ConnectionError
	}
	if len(r.ValidationErrors) > 0 {
		return strings.Join(r.ValidationErrors, ", ")
	}
	return "unknown failure"
}

// RESTHealthCheckResult is the outcome of a single REST health endpoint probe.
type RESTHealthCheckResult struct {
	ServerName        string
	Timestamp         time.Time
	Success           bool
	ResponseTime      time.Duration
	StatusCode        int
	ResponseBody      map[string]any
	HealthEndpointURL string
	HTTPError         string
	ValidationErrors  []string
	ConnectionError   string
}

// ErrorSummary returns a single human-readable string describing why the
// probe failed, or an empty string for a successful probe.
func (r *RESTHealthCheckResult) ErrorSummary() string {
	if r == nil {
		return "not checked"
	}
	if r.Success {
		return ""
	}
	if r.ConnectionError != "" {
		return r.ConnectionError
	}
	if r.HTTPError != "" {
		return r.HTTPError
	}
	if len(r.ValidationErrors) > 0 {
		return strings.Join(r.ValidationErrors, ", ")
	}
	return "unknown failure"
}

// DualHealthCheckResult is the aggregated per-server verdict for one check
// cycle. It is created once by the aggregator and never mutated afterwards.
type DualHealthCheckResult struct {
	ServerName string
	Timestamp  time.Time

	MCPResult       *MCPHealthCheckResult
	MCPSuccess      bool
	MCPResponseTime time.Duration

	RESTResult       *RESTHealthCheckResult
	RESTSuccess      bool
	RESTResponseTime time.Duration

	// CombinedResponseTime is the mean response time across the paths that
	// were actually probed, regardless of their success.
	CombinedResponseTime time.Duration

	OverallStatus  Status
	OverallSuccess bool

	// HealthScore is always within [0.0, 1.0] and monotonic with the number
	// of successful paths.
	HealthScore float64

	// AvailablePaths holds exactly the paths whose probe succeeded.
	AvailablePaths []PathType

	// ErrorMessage combines the per-path failure reasons for paths that
	// failed, empty when OverallSuccess is true.
	ErrorMessage string
}

// PathAvailable reports whether the given path succeeded in this check.
func (r *DualHealthCheckResult) PathAvailable(p PathType) bool {
	for _, ap := range r.AvailablePaths {
		if ap == p {
			return true
		}
	}
	return false
}
