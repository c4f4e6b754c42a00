package daemon

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/statuskit/statusd/internal/api"
	"github.com/statuskit/statusd/internal/cmd"
	"github.com/statuskit/statusd/internal/contracts"
	"github.com/statuskit/statusd/internal/errors"
)

// APIServer manages the HTTP API for the monitoring service.
// NewAPIServer should be used to create instances of APIServer.
type APIServer struct {
	logger          hclog.Logger
	service         contracts.StatusService
	addr            string
	cors            CORSConfig
	shutdownTimeout time.Duration
}

// NewAPIServer creates a new API server with the provided dependencies and options.
func NewAPIServer(deps APIDependencies, opt ...APIOption) (*APIServer, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies for API server: %w", err)
	}

	apiOpts, err := NewAPIOptions(opt...)
	if err != nil {
		return nil, fmt.Errorf("invalid API options: %w", err)
	}

	return &APIServer{
		logger:          deps.Logger.Named("api"),
		service:         deps.Service,
		addr:            deps.Addr,
		cors:            apiOpts.CORS,
		shutdownTimeout: apiOpts.ShutdownTimeout,
	}, nil
}

// Start starts the API server and blocks until the context is canceled or an
// error occurs.
func (a *APIServer) Start(ctx context.Context) error {
	mux := a.Handler()

	srv := &http.Server{
		Addr:    a.addr,
		Handler: mux,
	}
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("Starting API server", "address", a.addr)
		if err := srv.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()
		a.logger.Info("Shutting down API server...")
		_ = srv.Shutdown(shutdownCtx)
		a.logger.Info("Shutdown complete")
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Handler builds the full route tree: the versioned status API under
// /api/v1, the legacy flattened endpoints at the root, and the Prometheus
// exposition endpoint.
func (a *APIServer) Handler() http.Handler {
	mux := chi.NewMux()
	mux.Use(middleware.StripSlashes)

	if a.cors.Enabled {
		a.applyCORS(mux)
	}

	config := huma.DefaultConfig("statusd docs", cmd.Version())
	router := humachi.New(mux, config)

	huma.NewErrorWithContext = errorHandler(a.logger)

	apiPathPrefix, err := url.JoinPath("/api", "v1")
	if err != nil {
		// Static inputs, cannot fail.
		panic(err)
	}

	v1 := huma.NewGroup(router, apiPathPrefix)
	api.RegisterStatusRoutes(v1, a.service, "/status")

	// Legacy-compatible flattened endpoints and Prometheus exposition live
	// outside the versioned group.
	api.RegisterLegacyRoutes(mux, a.service)
	mux.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return mux
}

// applyCORS applies CORS middleware to the router based on the configured options.
func (a *APIServer) applyCORS(mux *chi.Mux) {
	a.logger.Info("Enabling CORS", "origins", a.cors.AllowOrigins)

	corsOptions := cors.Options{
		AllowedOrigins:   a.cors.AllowOrigins,
		AllowedMethods:   a.cors.AllowMethods,
		AllowedHeaders:   a.cors.AllowedHeaders,
		AllowCredentials: a.cors.AllowCredentials,
		MaxAge:           int(a.cors.MaxAge.Seconds()),
	}

	// Wildcard origins cannot be combined with credentials.
	for i, origin := range corsOptions.AllowedOrigins {
		if origin == "*" {
			corsOptions.AllowedOrigins = []string{"*"}
			corsOptions.AllowCredentials = false
			break
		}
		corsOptions.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	mux.Use(cors.Handler(corsOptions))
}

// mapError maps application domain errors to appropriate HTTP status codes.
//
// This function is the central place where domain errors from internal/errors
// are converted to HTTP responses. When adding new errors to
// internal/errors/errors.go, add them here to keep them from falling through
// to the default case which returns HTTP 500.
func mapError(logger hclog.Logger, err error) huma.StatusError {
	switch {
	case stdErrors.Is(err, errors.ErrBadRequest):
		return huma.Error400BadRequest(err.Error())
	case stdErrors.Is(err, errors.ErrInvalidServerConfig):
		return huma.Error400BadRequest(err.Error())
	case stdErrors.Is(err, errors.ErrInvalidBreakerConfig):
		return huma.Error400BadRequest(err.Error())
	case stdErrors.Is(err, errors.ErrServerNotFound):
		return huma.Error404NotFound(err.Error())
	case stdErrors.Is(err, errors.ErrResultNotFound):
		return huma.Error404NotFound(err.Error())
	case stdErrors.Is(err, errors.ErrBreakerNotTracked):
		return huma.Error404NotFound(err.Error())
	case stdErrors.Is(err, errors.ErrCheckFailed):
		logger.Error("On-demand check failed", "error", err)
		return huma.Error502BadGateway("health check failed to run", err)
	case stdErrors.Is(err, errors.ErrConfigLoadFailed),
		stdErrors.Is(err, errors.ErrConfigSaveFailed):
		logger.Error("Config operation failed", "error", err)
		return huma.Error500InternalServerError("configuration error", err)
	default:
		logger.Error("Unexpected error handling status request", "error", err)
		return huma.Error500InternalServerError("Internal server error", err)
	}
}

// errorHandler wraps error handling for the application when converting to
// API friendly errors.
func errorHandler(logger hclog.Logger) func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
	return func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		switch len(errs) {
		case 0:
			return huma.NewError(status, msg)
		case 1:
			return mapError(logger, errs[0])
		default:
			return mapError(logger, stdErrors.Join(errs...))
		}
	}
}
