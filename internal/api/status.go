package api

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/statuskit/statusd/internal/config"
	"github.com/statuskit/statusd/internal/contracts"
	"github.com/statuskit/statusd/internal/domain"
)

// ServersStatusResponse is the response for GET /status/health.
type ServersStatusResponse struct {
	Body struct {
		Servers []DualResult `doc:"Latest dual health check result per server" json:"servers"`
	}
}

// ServerStatusRequest identifies one monitored server.
type ServerStatusRequest struct {
	Name string `doc:"Name of the server" example:"search" path:"name"`
}

// ServerStatusResponse is the response for GET /status/servers/{name}.
type ServerStatusResponse struct {
	Body struct {
		Result  DualResult     `doc:"Latest dual health check result" json:"result"`
		Circuit *CircuitStatus `doc:"Circuit breaker state, absent before the first evaluation" json:"circuit,omitempty"`
		Metrics *WindowStats   `doc:"Windowed check statistics" json:"metrics,omitempty"`
	}
}

// ResetBreakerRequest triggers a manual circuit breaker reset.
type ResetBreakerRequest struct {
	Name string `doc:"Name of the server" path:"name"`
	Body struct {
		Path string `doc:"Path to reset ('mcp' or 'rest'); both when omitted" enum:"mcp,rest," json:"path,omitempty" required:"false"`
	}
}

// ResetBreakerResponse reports the breaker state after a reset.
type ResetBreakerResponse struct {
	Body struct {
		Circuit CircuitStatus `json:"circuit"`
	}
}

// MetricsRequest selects the aggregation window for GET /status/metrics.
type MetricsRequest struct {
	WindowMinutes int `doc:"Aggregation window in minutes, defaults to the full retention" minimum:"0" query:"window_minutes" required:"false"`
}

// MetricsResponse is the response for GET /status/metrics.
type MetricsResponse struct {
	Body struct {
		Servers []WindowStats `doc:"Windowed check statistics per server" json:"servers"`
	}
}

// DualCheckRequest triggers an on-demand check for one server or the fleet.
type DualCheckRequest struct {
	Body struct {
		ServerName string `doc:"Server to check; all servers when omitted" json:"server_name,omitempty" required:"false"`
	}
}

// DualCheckResponse carries the fresh results of an on-demand check.
type DualCheckResponse struct {
	Body struct {
		Results []DualResult `json:"results"`
	}
}

// ConfigResponse is the response for GET /status/config.
// Auth tokens are redacted.
type ConfigResponse struct {
	Body struct {
		Servers []config.ServerEntry `json:"servers"`
	}
}

// ConfigUpdateRequest applies one server entry for PUT /status/config.
type ConfigUpdateRequest struct {
	Body config.ServerEntry
}

// RegisterStatusRoutes sets up the status API endpoint routes.
func RegisterStatusRoutes(routerAPI huma.API, service contracts.StatusService, apiPathPrefix string) {
	statusAPI := huma.NewGroup(routerAPI, apiPathPrefix)
	tags := []string{"Status"}

	huma.Register(
		statusAPI,
		huma.Operation{
			OperationID: "listServersStatus",
			Method:      http.MethodGet,
			Path:        "/health",
			Summary:     "List the latest dual health check result for all servers",
			Tags:        tags,
		},
		func(ctx context.Context, _ *struct{}) (*ServersStatusResponse, error) {
			return handleServersStatus(service)
		},
	)

	huma.Register(
		statusAPI,
		huma.Operation{
			OperationID: "getServerStatus",
			Method:      http.MethodGet,
			Path:        "/servers/{name}",
			Summary:     "Get the full status of a server: latest result, circuit breaker and metrics",
			Tags:        tags,
		},
		func(ctx context.Context, input *ServerStatusRequest) (*ServerStatusResponse, error) {
			return handleServerStatus(service, input.Name)
		},
	)

	huma.Register(
		statusAPI,
		huma.Operation{
			OperationID: "resetServerBreaker",
			Method:      http.MethodPost,
			Path:        "/servers/{name}/reset",
			Summary:     "Force-reset the circuit breaker for a server",
			Tags:        tags,
		},
		func(ctx context.Context, input *ResetBreakerRequest) (*ResetBreakerResponse, error) {
			return handleResetBreaker(service, input)
		},
	)

	huma.Register(
		statusAPI,
		huma.Operation{
			OperationID: "getMetrics",
			Method:      http.MethodGet,
			Path:        "/metrics",
			Summary:     "Get windowed check statistics for all servers",
			Tags:        tags,
		},
		func(ctx context.Context, input *MetricsRequest) (*MetricsResponse, error) {
			return handleMetrics(service, input.WindowMinutes)
		},
	)

	huma.Register(
		statusAPI,
		huma.Operation{
			OperationID: "runDualCheck",
			Method:      http.MethodPost,
			Path:        "/dual-check",
			Summary:     "Run an on-demand dual health check",
			Tags:        tags,
		},
		func(ctx context.Context, input *DualCheckRequest) (*DualCheckResponse, error) {
			return handleDualCheck(ctx, service, input.Body.ServerName)
		},
	)

	huma.Register(
		statusAPI,
		huma.Operation{
			OperationID: "getConfig",
			Method:      http.MethodGet,
			Path:        "/config",
			Summary:     "List the monitoring configuration",
			Tags:        tags,
		},
		func(ctx context.Context, _ *struct{}) (*ConfigResponse, error) {
			return handleGetConfig(service)
		},
	)

	huma.Register(
		statusAPI,
		huma.Operation{
			OperationID: "putConfig",
			Method:      http.MethodPut,
			Path:        "/config",
			Summary:     "Add or update a monitored server",
			Tags:        tags,
		},
		func(ctx context.Context, input *ConfigUpdateRequest) (*ConfigResponse, error) {
			return handlePutConfig(service, input.Body)
		},
	)
}

func handleServersStatus(service contracts.StatusService) (*ServersStatusResponse, error) {
	results := service.LatestResults()

	slices.SortFunc(results, func(a, b domain.DualHealthCheckResult) int {
		return strings.Compare(a.ServerName, b.ServerName)
	})

	servers := make([]DualResult, 0, len(results))
	for _, r := range results {
		servers = append(servers, toAPIDualResult(r))
	}

	resp := &ServersStatusResponse{}
	resp.Body.Servers = servers
	return resp, nil
}

func handleServerStatus(service contracts.StatusService, name string) (*ServerStatusResponse, error) {
	result, err := service.LatestResult(name)
	if err != nil {
		return nil, err
	}

	resp := &ServerStatusResponse{}
	resp.Body.Result = toAPIDualResult(result)

	// Breaker and metrics views are best-effort additions to the result.
	if circuitStatus, err := breakerStatus(service, name); err == nil {
		resp.Body.Circuit = circuitStatus
	}
	if stats, err := service.WindowStats(name, 0); err == nil {
		s := toAPIWindowStats(stats)
		resp.Body.Metrics = &s
	}

	return resp, nil
}

func handleResetBreaker(service contracts.StatusService, input *ResetBreakerRequest) (*ResetBreakerResponse, error) {
	var path *domain.PathType
	if p := strings.TrimSpace(input.Body.Path); p != "" {
		pt := domain.PathType(p)
		path = &pt
	}

	if err := service.ResetBreaker(input.Name, path); err != nil {
		return nil, err
	}

	circuitStatus, err := breakerStatus(service, input.Name)
	if err != nil {
		return nil, err
	}

	resp := &ResetBreakerResponse{}
	resp.Body.Circuit = *circuitStatus
	return resp, nil
}

func handleMetrics(service contracts.StatusService, windowMinutes int) (*MetricsResponse, error) {
	window := time.Duration(windowMinutes) * time.Minute

	stats := service.AllWindowStats(window)
	servers := make([]WindowStats, 0, len(stats))
	for _, s := range stats {
		servers = append(servers, toAPIWindowStats(s))
	}

	resp := &MetricsResponse{}
	resp.Body.Servers = servers
	return resp, nil
}

func handleDualCheck(ctx context.Context, service contracts.StatusService, serverName string) (*DualCheckResponse, error) {
	results, err := service.TriggerCheck(ctx, strings.TrimSpace(serverName))
	if err != nil {
		return nil, err
	}

	apiResults := make([]DualResult, 0, len(results))
	for _, r := range results {
		apiResults = append(apiResults, toAPIDualResult(r))
	}

	resp := &DualCheckResponse{}
	resp.Body.Results = apiResults
	return resp, nil
}

func handleGetConfig(service contracts.StatusService) (*ConfigResponse, error) {
	entries := service.ServerConfigs()

	redacted := make([]config.ServerEntry, 0, len(entries))
	for _, e := range entries {
		redacted = append(redacted, e.Redacted())
	}

	resp := &ConfigResponse{}
	resp.Body.Servers = redacted
	return resp, nil
}

func handlePutConfig(service contracts.StatusService, entry config.ServerEntry) (*ConfigResponse, error) {
	if err := service.UpsertServerConfig(entry); err != nil {
		return nil, err
	}
	return handleGetConfig(service)
}

func breakerStatus(service contracts.StatusService, name string) (*CircuitStatus, error) {
	mcp, rest, overall, paths, err := service.BreakerSnapshot(name)
	if err != nil {
		return nil, err
	}

	return &CircuitStatus{
		MCP:            toAPICircuitPath(mcp),
		REST:           toAPICircuitPath(rest),
		OverallState:   string(overall),
		AvailablePaths: paths,
	}, nil
}
