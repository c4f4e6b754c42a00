package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/statuskit/statusd/internal/contracts"
	"github.com/statuskit/statusd/internal/domain"
)

// LegacyHealth is the flattened shape served on GET /health for clients that
// predate dual-path checking.
type LegacyHealth struct {
	Status  string `json:"status"`
	Healthy bool   `json:"healthy"`
}

// LegacyServerCounts summarizes the fleet for the legacy status endpoint.
type LegacyServerCounts struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Degraded  int `json:"degraded"`
	Unhealthy int `json:"unhealthy"`
}

// LegacyStatus is the flattened shape served on GET /status.
type LegacyStatus struct {
	Status  string             `json:"status"`
	Healthy bool               `json:"healthy"`
	Servers LegacyServerCounts `json:"servers"`
}

// RegisterLegacyRoutes mounts the legacy-compatible endpoints on the root of
// the router, outside the versioned API group. Health payloads are always
// served with HTTP 200; the body carries the verdict.
func RegisterLegacyRoutes(mux *chi.Mux, service contracts.StatusService) {
	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		status, healthy, _ := summarize(service.LatestResults())
		writeJSON(w, LegacyHealth{Status: status, Healthy: healthy})
	})

	mux.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		status, healthy, counts := summarize(service.LatestResults())
		writeJSON(w, LegacyStatus{Status: status, Healthy: healthy, Servers: counts})
	})
}

// summarize projects the per-server dual results into the legacy shape:
// healthy when every server is healthy, degraded when any server still has
// an available path, unhealthy when at least one server has none.
func summarize(results []domain.DualHealthCheckResult) (string, bool, LegacyServerCounts) {
	counts := LegacyServerCounts{Total: len(results)}
	for _, r := range results {
		switch r.OverallStatus {
		case domain.StatusHealthy:
			counts.Healthy++
		case domain.StatusDegraded:
			counts.Degraded++
		case domain.StatusUnhealthy:
			counts.Unhealthy++
		}
	}

	switch {
	case counts.Total == 0:
		return "unknown", false, counts
	case counts.Healthy == counts.Total:
		return "healthy", true, counts
	case counts.Unhealthy > 0:
		return "unhealthy", false, counts
	default:
		return "degraded", false, counts
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
