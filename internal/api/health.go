package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// StatsProvider reports runtime statistics for the health endpoint.
type StatsProvider interface {
	HealthStats() map[string]int
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	stats   StatsProvider
	started time.Time
}

// NewHealthHandler creates a new health handler. stats may be nil.
func NewHealthHandler(stats StatsProvider) *HealthHandler {
	return &HealthHandler{stats: stats, started: time.Now()}
}

// Health returns the health status of the API and its components.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	status := map[string]interface{}{
		"status":         "healthy",
		"checks":         map[string]string{"api": "ok"},
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	}
	if h.stats != nil {
		status["checks"].(map[string]string)["chat"] = "ok"
		status["stats"] = h.stats.HealthStats()
	}
	JSON(w, http.StatusOK, status)
}

// RegisterHealth registers the health check route. Plain /health liveness
// is served by the heartbeat middleware.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.Health)
}
