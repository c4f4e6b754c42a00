package daemon

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/statuskit/statusd/internal/circuit"
	"github.com/statuskit/statusd/internal/config"
	"github.com/statuskit/statusd/internal/domain"
	"github.com/statuskit/statusd/internal/errors"
)

func writeServiceConfig(t *testing.T, mcpURL, restURL string) string {
	t.Helper()

	content := fmt.Sprintf(`
[[servers]]
name = "search"
mcp_endpoint_url = %q
rest_health_endpoint_url = %q
mcp_enabled = true
rest_enabled = true
`, mcpURL, restURL)

	path := filepath.Join(t.TempDir(), ".statusd.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewService_Validation(t *testing.T) {
	t.Parallel()

	loader := &config.DefaultLoader{}

	_, err := NewService(nil, loader, "x.toml", "localhost:0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "logger cannot be nil")

	_, err = NewService(hclog.NewNullLogger(), nil, "x.toml", "localhost:0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "config loader cannot be nil")

	_, err = NewService(hclog.NewNullLogger(), loader, "x.toml", "not-an-addr",
		WithMetricsRegisterer(prometheus.NewRegistry()))
	require.Error(t, err)

	badBreaker := circuit.DefaultConfig()
	badBreaker.RecoveryTimeout = 0
	_, err = NewService(hclog.NewNullLogger(), loader, "x.toml", "localhost:0",
		WithBreakerConfig(badBreaker),
		WithMetricsRegisterer(prometheus.NewRegistry()))
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrInvalidBreakerConfig)
}

func TestService_StartAndManage(t *testing.T) {
	t.Parallel()

	mcpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// The JSON-RPC envelope is invalid on purpose: the probe fails but
		// the cycle still completes and caches an UNHEALTHY result.
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(mcpSrv.Close)
	restSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(restSrv.Close)

	cfgPath := writeServiceConfig(t, mcpSrv.URL, restSrv.URL)

	svc, err := NewService(
		hclog.NewNullLogger(),
		&config.DefaultLoader{},
		cfgPath,
		"localhost:0",
		WithCheckInterval(time.Hour), // Only the initial cycle runs during the test.
		WithConfigWatching(false),
		WithMetricsRegisterer(prometheus.NewRegistry()),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- svc.StartAndManage(ctx)
	}()

	// The initial cycle populates the cache shortly after startup.
	require.Eventually(t, func() bool {
		_, err := svc.LatestResult("search")
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	result, err := svc.LatestResult("search")
	require.NoError(t, err)
	require.Equal(t, domain.StatusDegraded, result.OverallStatus)
	require.False(t, result.MCPSuccess)
	require.True(t, result.RESTSuccess)

	// Unknown servers are distinguished from servers without results.
	_, err = svc.LatestResult("ghost")
	require.ErrorIs(t, err, errors.ErrServerNotFound)

	_, err = svc.TriggerCheck(ctx, "ghost")
	require.ErrorIs(t, err, errors.ErrServerNotFound)

	// On-demand check returns fresh results and feeds the stores.
	results, err := svc.TriggerCheck(ctx, "search")
	require.NoError(t, err)
	require.Len(t, results, 1)

	stats, err := svc.WindowStats("search", 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, stats.TotalChecks, 2)
	require.Equal(t, stats.DegradedChecks, stats.TotalChecks)

	mcp, rest, overall, paths, err := svc.BreakerSnapshot("search")
	require.NoError(t, err)
	require.Equal(t, domain.PathMCP, mcp.Path)
	require.Equal(t, domain.PathREST, rest.Path)
	require.Equal(t, circuit.OverallClosed, overall)
	require.Equal(t, []string{"both"}, paths)

	require.NoError(t, svc.ResetBreaker("search", nil))
	require.ErrorIs(t, svc.ResetBreaker("ghost", nil), errors.ErrServerNotFound)

	// Config updates validate before they apply.
	err = svc.UpsertServerConfig(config.ServerEntry{Name: "bad", MCPEnabled: true})
	require.ErrorIs(t, err, errors.ErrInvalidServerConfig)

	require.NoError(t, svc.UpsertServerConfig(config.ServerEntry{
		Name:               "extra",
		RESTHealthEndpoint: restSrv.URL,
		RESTEnabled:        true,
	}))
	require.Len(t, svc.ServerConfigs(), 2)

	cancel()
	select {
	case err := <-done:
		require.True(t, err == nil || stdErrors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("service did not shut down")
	}
}

func TestService_UpsertServerConfig_ErrorClassification(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".statusd.toml")
	require.NoError(t, os.WriteFile(path, []byte(`servers = []`), 0o600))

	cfg, err := (&config.DefaultLoader{}).Load(path)
	require.NoError(t, err)

	svc := &Service{logger: hclog.NewNullLogger(), cfg: newConfigState()}
	svc.cfg.replace(cfg)

	// A malformed entry is the caller's fault.
	err = svc.UpsertServerConfig(config.ServerEntry{Name: "bad", MCPEnabled: true})
	require.ErrorIs(t, err, errors.ErrInvalidServerConfig)

	// Replace the config file with a directory so persistence fails: the
	// entry is valid, so the failure must not read as a client error.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o700))

	err = svc.UpsertServerConfig(config.ServerEntry{
		Name:               "extra",
		RESTHealthEndpoint: "http://localhost:9000/health",
		RESTEnabled:        true,
	})
	require.ErrorIs(t, err, errors.ErrConfigSaveFailed)
	require.NotErrorIs(t, err, errors.ErrInvalidServerConfig)

	// Before any config is loaded there is nothing to update.
	unloaded := &Service{logger: hclog.NewNullLogger(), cfg: newConfigState()}
	err = unloaded.UpsertServerConfig(config.ServerEntry{
		Name:               "extra",
		RESTHealthEndpoint: "http://localhost:9000/health",
		RESTEnabled:        true,
	})
	require.ErrorIs(t, err, errors.ErrConfigLoadFailed)
}

func TestService_TriggerCheck_CanceledContext(t *testing.T) {
	t.Parallel()

	svc := &Service{logger: hclog.NewNullLogger(), cfg: newConfigState()}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := svc.TriggerCheck(ctx, "")
	require.ErrorIs(t, err, errors.ErrCheckFailed)
}

func TestService_GateSkipsBlockedPaths(t *testing.T) {
	t.Parallel()

	svc, err := NewService(
		hclog.NewNullLogger(),
		&config.DefaultLoader{},
		"unused.toml",
		"localhost:0",
		WithMetricsRegisterer(prometheus.NewRegistry()),
	)
	require.NoError(t, err)

	entry := config.ServerEntry{
		Name:               "srv",
		MCPEndpoint:        "http://localhost:9000/mcp",
		RESTHealthEndpoint: "http://localhost:9000/health",
		MCPEnabled:         true,
		RESTEnabled:        true,
	}

	// Trip the MCP path.
	failing := domain.DualHealthCheckResult{
		ServerName:  "srv",
		MCPResult:   &domain.MCPHealthCheckResult{ServerName: "srv", ConnectionError: "timeout"},
		RESTResult:  &domain.RESTHealthCheckResult{ServerName: "srv", Success: true},
		RESTSuccess: true,
	}
	for i := 0; i < 3; i++ {
		svc.breaker.Evaluate("srv", failing)
	}

	gated, skip := svc.gate(entry)
	require.False(t, skip)
	require.False(t, gated.MCPEnabled)
	require.True(t, gated.RESTEnabled)

	// Trip REST as well: all paths blocked, the server is skipped.
	failing.RESTResult = &domain.RESTHealthCheckResult{ServerName: "srv", HTTPError: "HTTP 503"}
	failing.RESTSuccess = false
	for i := 0; i < 3; i++ {
		svc.breaker.Evaluate("srv", failing)
	}

	_, skip = svc.gate(entry)
	require.True(t, skip)

	// A server with no enabled paths is never skipped; it aggregates to UNKNOWN.
	_, skip = svc.gate(config.ServerEntry{Name: "idle"})
	require.False(t, skip)
}
