package checker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/statuskit/statusd/internal/domain"
)

func mcpOK(rt time.Duration) *domain.MCPHealthCheckResult {
	return &domain.MCPHealthCheckResult{
		ServerName:   "srv",
		Timestamp:    time.Now().UTC(),
		Success:      true,
		ResponseTime: rt,
		ToolsCount:   3,
	}
}

func mcpFail(reason string, rt time.Duration) *domain.MCPHealthCheckResult {
	return &domain.MCPHealthCheckResult{
		ServerName:      "srv",
		Timestamp:       time.Now().UTC(),
		ResponseTime:    rt,
		ConnectionError: reason,
	}
}

func restOK(rt time.Duration) *domain.RESTHealthCheckResult {
	return &domain.RESTHealthCheckResult{
		ServerName:   "srv",
		Timestamp:    time.Now().UTC(),
		Success:      true,
		ResponseTime: rt,
		StatusCode:   200,
	}
}

func restFail(httpErr string, rt time.Duration) *domain.RESTHealthCheckResult {
	return &domain.RESTHealthCheckResult{
		ServerName:   "srv",
		Timestamp:    time.Now().UTC(),
		ResponseTime: rt,
		StatusCode:   503,
		HTTPError:    httpErr,
	}
}

func TestNewAggregator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		mcpWeight    float64
		restWeight   float64
		fastResponse time.Duration
		wantErr      string
	}{
		{
			name:         "valid weights",
			mcpWeight:    0.6,
			restWeight:   0.4,
			fastResponse: time.Second,
		},
		{
			name:         "zero mcp weight",
			mcpWeight:    0,
			restWeight:   0.4,
			fastResponse: time.Second,
			wantErr:      "mcp weight must be positive",
		},
		{
			name:         "negative rest weight",
			mcpWeight:    0.6,
			restWeight:   -0.1,
			fastResponse: time.Second,
			wantErr:      "rest weight must be positive",
		},
		{
			name:         "zero fast response bound",
			mcpWeight:    0.6,
			restWeight:   0.4,
			fastResponse: 0,
			wantErr:      "fast response bound must be positive",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			agg, err := NewAggregator(tc.mcpWeight, tc.restWeight, tc.fastResponse)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				require.Nil(t, agg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, agg)
		})
	}
}

func TestAggregate_BothPathsSucceed(t *testing.T) {
	t.Parallel()

	agg := DefaultAggregator()
	result := agg.Aggregate("srv", mcpOK(150*time.Millisecond), restOK(50*time.Millisecond), true, true)

	require.Equal(t, domain.StatusHealthy, result.OverallStatus)
	require.True(t, result.OverallSuccess)
	require.InDelta(t, 1.0, result.HealthScore, 1e-9)
	require.ElementsMatch(t, []domain.PathType{domain.PathMCP, domain.PathREST}, result.AvailablePaths)
	require.Empty(t, result.ErrorMessage)
	require.Equal(t, 100*time.Millisecond, result.CombinedResponseTime)
}

func TestAggregate_BothPathsSucceedSlow(t *testing.T) {
	t.Parallel()

	agg := DefaultAggregator()
	result := agg.Aggregate("srv", mcpOK(2*time.Second), restOK(3*time.Second), true, true)

	require.Equal(t, domain.StatusHealthy, result.OverallStatus)
	require.InDelta(t, 0.9, result.HealthScore, 1e-9)
}

func TestAggregate_MCPSucceedsRESTFails(t *testing.T) {
	t.Parallel()

	agg := DefaultAggregator()
	result := agg.Aggregate("srv",
		mcpOK(100*time.Millisecond),
		restFail("HTTP 503 Service Unavailable", 20*time.Millisecond),
		true, true,
	)

	require.Equal(t, domain.StatusDegraded, result.OverallStatus)
	require.False(t, result.OverallSuccess)
	require.InDelta(t, 0.65, result.HealthScore, 1e-9)
	require.Equal(t, []domain.PathType{domain.PathMCP}, result.AvailablePaths)
	require.Equal(t, "REST: HTTP 503 Service Unavailable", result.ErrorMessage)
}

func TestAggregate_RESTSucceedsMCPFails(t *testing.T) {
	t.Parallel()

	agg := DefaultAggregator()
	result := agg.Aggregate("srv",
		mcpFail("timeout", 10*time.Second),
		restOK(40*time.Millisecond),
		true, true,
	)

	require.Equal(t, domain.StatusDegraded, result.OverallStatus)
	require.InDelta(t, 0.45, result.HealthScore, 1e-9)
	require.Equal(t, []domain.PathType{domain.PathREST}, result.AvailablePaths)
	require.Equal(t, "MCP: timeout", result.ErrorMessage)
}

func TestAggregate_BothPathsFail(t *testing.T) {
	t.Parallel()

	agg := DefaultAggregator()
	result := agg.Aggregate("srv",
		mcpFail("timeout", 10*time.Second),
		restFail("HTTP 503 Service Unavailable", 30*time.Millisecond),
		true, true,
	)

	require.Equal(t, domain.StatusUnhealthy, result.OverallStatus)
	require.False(t, result.OverallSuccess)
	require.Zero(t, result.HealthScore)
	require.Empty(t, result.AvailablePaths)
	require.Equal(t, "MCP: timeout; REST: HTTP 503 Service Unavailable", result.ErrorMessage)
}

func TestAggregate_SingleEnabledPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mcp        *domain.MCPHealthCheckResult
		rest       *domain.RESTHealthCheckResult
		mcpEnabled bool
		restEnable bool
		wantStatus domain.Status
		wantScore  float64
	}{
		{
			name:       "mcp only success is degraded coverage",
			mcp:        mcpOK(100 * time.Millisecond),
			mcpEnabled: true,
			wantStatus: domain.StatusDegraded,
			wantScore:  0.65,
		},
		{
			name:       "rest only success is degraded coverage",
			rest:       restOK(100 * time.Millisecond),
			restEnable: true,
			wantStatus: domain.StatusDegraded,
			wantScore:  0.45,
		},
		{
			name:       "mcp only failure is unhealthy",
			mcp:        mcpFail("connection refused", 5 * time.Millisecond),
			mcpEnabled: true,
			wantStatus: domain.StatusUnhealthy,
			wantScore:  0.0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			agg := DefaultAggregator()
			result := agg.Aggregate("srv", tc.mcp, tc.rest, tc.mcpEnabled, tc.restEnable)

			require.Equal(t, tc.wantStatus, result.OverallStatus)
			require.InDelta(t, tc.wantScore, result.HealthScore, 1e-9)
		})
	}
}

func TestAggregate_NoPathEnabled(t *testing.T) {
	t.Parallel()

	agg := DefaultAggregator()
	result := agg.Aggregate("srv", nil, nil, false, false)

	require.Equal(t, domain.StatusUnknown, result.OverallStatus)
	require.False(t, result.OverallSuccess)
	require.Zero(t, result.HealthScore)
	require.Empty(t, result.AvailablePaths)
	require.Zero(t, result.CombinedResponseTime)
}

func TestAggregate_Deterministic(t *testing.T) {
	t.Parallel()

	agg := DefaultAggregator()
	mcp := mcpOK(150 * time.Millisecond)
	rest := restFail("HTTP 500 Internal Server Error", 30*time.Millisecond)

	first := agg.Aggregate("srv", mcp, rest, true, true)
	second := agg.Aggregate("srv", mcp, rest, true, true)

	require.Equal(t, first.OverallStatus, second.OverallStatus)
	require.Equal(t, first.HealthScore, second.HealthScore)
	require.Equal(t, first.ErrorMessage, second.ErrorMessage)
	require.Equal(t, first.AvailablePaths, second.AvailablePaths)
}

func TestAggregate_ScoreBounds(t *testing.T) {
	t.Parallel()

	agg := DefaultAggregator()

	cases := []domain.DualHealthCheckResult{
		agg.Aggregate("srv", mcpOK(0), restOK(0), true, true),
		agg.Aggregate("srv", mcpOK(time.Minute), restOK(time.Minute), true, true),
		agg.Aggregate("srv", mcpOK(0), restFail("x", 0), true, true),
		agg.Aggregate("srv", mcpFail("x", 0), restOK(0), true, true),
		agg.Aggregate("srv", mcpFail("x", 0), restFail("y", 0), true, true),
		agg.Aggregate("srv", nil, nil, false, false),
	}

	for _, result := range cases {
		require.GreaterOrEqual(t, result.HealthScore, 0.0)
		require.LessOrEqual(t, result.HealthScore, 1.0)
	}
}
