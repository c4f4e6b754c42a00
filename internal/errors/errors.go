// Package errors defines domain-level errors used throughout the application.
// These errors represent business logic failures and are mapped to appropriate HTTP status codes at the API boundary.
//
// NOTE: Important for developers
// When adding a new error here, you MUST consider how it should be handled when returned from API endpoints.
//
// Unmapped errors will default to HTTP 500 Internal Server Error.
//
// Don't forget to:
// 1. Add your error to mapError (internal/daemon/api_server.go)
// 2. Add a test case to TestMapError (internal/daemon/api_server_test.go)
package errors

import (
	"errors"
)

var (
	// ErrBadRequest indicates that the client provided invalid input or made a malformed request.
	// This typically results from validation failures or incorrect request parameters.
	// Recommended to map to HTTP 400 Bad Request.
	ErrBadRequest = errors.New("bad request")

	// ErrServerNotFound indicates that the requested server is not present in the monitoring configuration.
	// Recommended to map to HTTP 404 Not Found.
	ErrServerNotFound = errors.New("server not found")

	// ErrResultNotFound indicates that no health check result is cached for the requested server yet.
	// This occurs between startup and the first completed check cycle.
	// Recommended to map to HTTP 404 Not Found.
	ErrResultNotFound = errors.New("no health check result available")

	// ErrBreakerNotTracked indicates that no circuit breaker state exists for the requested server.
	// Recommended to map to HTTP 404 Not Found.
	ErrBreakerNotTracked = errors.New("circuit breaker is not tracking server")

	// ErrInvalidServerConfig indicates that a supplied server configuration failed validation.
	// Recommended to map to HTTP 400 Bad Request.
	ErrInvalidServerConfig = errors.New("invalid server configuration")

	// ErrInvalidBreakerConfig indicates that circuit breaker thresholds or timeouts failed validation.
	// Breaker configuration is rejected at construction rather than clamped.
	// Recommended to map to HTTP 400 Bad Request.
	ErrInvalidBreakerConfig = errors.New("invalid circuit breaker configuration")

	// ErrConfigLoadFailed indicates that the monitoring configuration file could not be loaded.
	// Recommended to map to HTTP 500 Internal Server Error.
	ErrConfigLoadFailed = errors.New("failed to load config")

	// ErrConfigSaveFailed indicates that a configuration update could not be persisted.
	// Recommended to map to HTTP 500 Internal Server Error.
	ErrConfigSaveFailed = errors.New("failed to save config")

	// ErrCheckFailed indicates that an on-demand health check could not be started.
	// This represents an orchestration failure, not a failed probe (failed probes are data, not errors).
	// Recommended to map to HTTP 502 Bad Gateway.
	ErrCheckFailed = errors.New("health check failed to run")
)
