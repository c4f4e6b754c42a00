// Package api defines the HTTP surface of the monitoring service: the
// versioned status endpoints served through huma, and the legacy flattened
// endpoints kept for pre-dual-check clients.
package api

import (
	"time"

	"github.com/statuskit/statusd/internal/circuit"
	"github.com/statuskit/statusd/internal/contracts"
	"github.com/statuskit/statusd/internal/domain"
)

// MCPResult is the API shape of a single tools/list probe outcome.
type MCPResult struct {
	ServerName         string    `json:"server_name"`
	Timestamp          time.Time `json:"timestamp"`
	Success            bool      `json:"success"`
	ResponseTimeMS     float64   `json:"response_time_ms"`
	ToolsCount         int       `json:"tools_count"`
	ExpectedToolsFound []string  `json:"expected_tools_found,omitempty"`
	MissingTools       []string  `json:"missing_tools,omitempty"`
	ValidationErrors   []string  `json:"validation_errors,omitempty"`
	ConnectionError    string    `json:"connection_error,omitempty"`
	RequestID          string    `json:"request_id,omitempty"`
	JSONRPCVersion     string    `json:"jsonrpc_version,omitempty"`
}

// RESTResult is the API shape of a single REST health probe outcome.
type RESTResult struct {
	ServerName        string         `json:"server_name"`
	Timestamp         time.Time      `json:"timestamp"`
	Success           bool           `json:"success"`
	ResponseTimeMS    float64        `json:"response_time_ms"`
	StatusCode        int            `json:"status_code,omitempty"`
	ResponseBody      map[string]any `json:"response_body,omitempty"`
	HealthEndpointURL string         `json:"health_endpoint_url"`
	HTTPError         string         `json:"http_error,omitempty"`
	ValidationErrors  []string       `json:"validation_errors,omitempty"`
	ConnectionError   string         `json:"connection_error,omitempty"`
}

// DualResult is the API shape of an aggregated per-server verdict.
type DualResult struct {
	ServerName             string      `json:"server_name"`
	Timestamp              time.Time   `json:"timestamp"`
	MCPResult              *MCPResult  `json:"mcp_result,omitempty"`
	MCPSuccess             bool        `json:"mcp_success"`
	MCPResponseTimeMS      float64     `json:"mcp_response_time_ms"`
	RESTResult             *RESTResult `json:"rest_result,omitempty"`
	RESTSuccess            bool        `json:"rest_success"`
	RESTResponseTimeMS     float64     `json:"rest_response_time_ms"`
	CombinedResponseTimeMS float64     `json:"combined_response_time_ms"`
	OverallStatus          string      `json:"overall_status"`
	OverallSuccess         bool        `json:"overall_success"`
	HealthScore            float64     `json:"health_score"`
	AvailablePaths         []string    `json:"available_paths"`
	ErrorMessage           string      `json:"error_message,omitempty"`
}

// CircuitPath is the API shape of one path circuit's snapshot.
type CircuitPath struct {
	Path             string     `json:"path"`
	State            string     `json:"state"`
	FailureCount     int        `json:"failure_count"`
	SuccessCount     int        `json:"success_count"`
	LastFailureTime  *time.Time `json:"last_failure_time,omitempty"`
	LastSuccessTime  *time.Time `json:"last_success_time,omitempty"`
	OpenedTime       *time.Time `json:"opened_time,omitempty"`
	HalfOpenRequests int        `json:"half_open_requests"`
}

// CircuitStatus is the API shape of a server's dual-path breaker state.
type CircuitStatus struct {
	MCP            CircuitPath `json:"mcp"`
	REST           CircuitPath `json:"rest"`
	OverallState   string      `json:"overall_state"`
	AvailablePaths []string    `json:"available_paths"`
}

// WindowStats is the API shape of windowed metrics for one server.
type WindowStats struct {
	ServerName       string  `json:"server_name"`
	WindowMinutes    float64 `json:"window_minutes"`
	TotalChecks      int     `json:"total_checks"`
	HealthyChecks    int     `json:"healthy_checks"`
	DegradedChecks   int     `json:"degraded_checks"`
	FailedChecks     int     `json:"failed_checks"`
	SuccessRate      float64 `json:"success_rate"`
	AverageLatencyMS float64 `json:"average_latency_ms"`
	P95LatencyMS     float64 `json:"p95_latency_ms"`
	AverageScore     float64 `json:"average_score"`
}

func toAPIMCPResult(r *domain.MCPHealthCheckResult) *MCPResult {
	if r == nil {
		return nil
	}
	return &MCPResult{
		ServerName:         r.ServerName,
		Timestamp:          r.Timestamp,
		Success:            r.Success,
		ResponseTimeMS:     durationMS(r.ResponseTime),
		ToolsCount:         r.ToolsCount,
		ExpectedToolsFound: r.ExpectedToolsFound,
		MissingTools:       r.MissingTools,
		ValidationErrors:   r.ValidationErrors,
		ConnectionError:    r.ConnectionError,
		RequestID:          r.RequestID,
		JSONRPCVersion:     r.JSONRPCVersion,
	}
}

func toAPIRESTResult(r *domain.RESTHealthCheckResult) *RESTResult {
	if r == nil {
		return nil
	}
	return &RESTResult{
		ServerName:        r.ServerName,
		Timestamp:         r.Timestamp,
		Success:           r.Success,
		ResponseTimeMS:    durationMS(r.ResponseTime),
		StatusCode:        r.StatusCode,
		ResponseBody:      r.ResponseBody,
		HealthEndpointURL: r.HealthEndpointURL,
		HTTPError:         r.HTTPError,
		ValidationErrors:  r.ValidationErrors,
		ConnectionError:   r.ConnectionError,
	}
}

func toAPIDualResult(r domain.DualHealthCheckResult) DualResult {
	paths := make([]string, 0, len(r.AvailablePaths))
	for _, p := range r.AvailablePaths {
		paths = append(paths, string(p))
	}

	return DualResult{
		ServerName:             r.ServerName,
		Timestamp:              r.Timestamp,
		MCPResult:              toAPIMCPResult(r.MCPResult),
		MCPSuccess:             r.MCPSuccess,
		MCPResponseTimeMS:      durationMS(r.MCPResponseTime),
		RESTResult:             toAPIRESTResult(r.RESTResult),
		RESTSuccess:            r.RESTSuccess,
		RESTResponseTimeMS:     durationMS(r.RESTResponseTime),
		CombinedResponseTimeMS: durationMS(r.CombinedResponseTime),
		OverallStatus:          string(r.OverallStatus),
		OverallSuccess:         r.OverallSuccess,
		HealthScore:            r.HealthScore,
		AvailablePaths:         paths,
		ErrorMessage:           r.ErrorMessage,
	}
}

func toAPICircuitPath(s circuit.PathSnapshot) CircuitPath {
	return CircuitPath{
		Path:             string(s.Path),
		State:            string(s.State),
		FailureCount:     s.FailureCount,
		SuccessCount:     s.SuccessCount,
		LastFailureTime:  s.LastFailureTime,
		LastSuccessTime:  s.LastSuccessTime,
		OpenedTime:       s.OpenedTime,
		HalfOpenRequests: s.HalfOpenRequests,
	}
}

func toAPIWindowStats(s contracts.WindowStats) WindowStats {
	return WindowStats{
		ServerName:       s.ServerName,
		WindowMinutes:    s.Window.Minutes(),
		TotalChecks:      s.TotalChecks,
		HealthyChecks:    s.HealthyChecks,
		DegradedChecks:   s.DegradedChecks,
		FailedChecks:     s.FailedChecks,
		SuccessRate:      s.SuccessRate,
		AverageLatencyMS: durationMS(s.AverageLatency),
		P95LatencyMS:     durationMS(s.P95Latency),
		AverageScore:     s.AverageScore,
	}
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
