//go:build docsgen_api
// +build docsgen_api

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"

	"github.com/statuskit/statusd/internal/api"
	"github.com/statuskit/statusd/internal/circuit"
	"github.com/statuskit/statusd/internal/config"
	"github.com/statuskit/statusd/internal/contracts"
	"github.com/statuskit/statusd/internal/domain"
)

// stubStatusService provides a stub implementation for documentation generation.
type stubStatusService struct{}

func (s *stubStatusService) LatestResults() []domain.DualHealthCheckResult { return nil }

func (s *stubStatusService) LatestResult(string) (domain.DualHealthCheckResult, error) {
	return domain.DualHealthCheckResult{}, nil
}

func (s *stubStatusService) TriggerCheck(context.Context, string) ([]domain.DualHealthCheckResult, error) {
	return nil, nil
}

func (s *stubStatusService) WindowStats(string, time.Duration) (contracts.WindowStats, error) {
	return contracts.WindowStats{}, nil
}

func (s *stubStatusService) AllWindowStats(time.Duration) []contracts.WindowStats { return nil }

func (s *stubStatusService) BreakerSnapshot(string) (circuit.PathSnapshot, circuit.PathSnapshot, circuit.OverallState, []string, error) {
	return circuit.PathSnapshot{}, circuit.PathSnapshot{}, circuit.OverallClosed, nil, nil
}

func (s *stubStatusService) ResetBreaker(string, *domain.PathType) error { return nil }

func (s *stubStatusService) ServerConfigs() []config.ServerEntry { return nil }

func (s *stubStatusService) UpsertServerConfig(config.ServerEntry) error { return nil }

// main generates the OpenAPI specification for the statusd API.
// It assumes it is run from the repository root.
func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "statusd.docsgen.api",
		Level:  hclog.Info,
		Output: os.Stderr,
	})

	// Output path for the OpenAPI spec, relative to the repository root.
	outputPath := "./docs/api/openapi.yaml"

	// Create a chi router (same as the daemon).
	mux := chi.NewMux()
	mux.Use(middleware.StripSlashes)

	// Create Huma config and router (same as the daemon).
	humaConfig := huma.DefaultConfig("statusd docs", "dev")
	router := humachi.New(mux, humaConfig)

	// Register routes using a stub service.
	// The OpenAPI spec generation only needs the route definitions, not the actual handlers.
	v1 := huma.NewGroup(router, "/api/v1")
	api.RegisterStatusRoutes(v1, &stubStatusService{}, "/status")

	// Get the OpenAPI spec as YAML.
	yamlBytes, err := router.OpenAPI().YAML()
	if err != nil {
		logger.Error("failed to generate OpenAPI YAML", "error", err)
		os.Exit(1)
	}

	// Ensure the docs directory exists.
	docsDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		logger.Error("failed to create docs directory", "path", docsDir, "error", err)
		os.Exit(1)
	}

	// Write the YAML to the output file.
	if err := os.WriteFile(outputPath, yamlBytes, 0o644); err != nil {
		logger.Error("failed to write OpenAPI spec", "path", outputPath, "error", err)
		os.Exit(1)
	}

	logger.Info("OpenAPI spec generated", "path", outputPath, "size", fmt.Sprintf("%d bytes", len(yamlBytes)))
}
