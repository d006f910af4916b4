// Package handlers exposes the engine's HTTP surface: health checks and
// scheduler introspection.
package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/config"
	"github.com/chartops/chart-engine/pkg/scheduler"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthHandler handles health check, ping and job status endpoints.
type HealthHandler struct {
	cfg    *config.Config
	queue  *scheduler.Queue
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. queue may be nil when the
// scheduler is disabled.
func NewHealthHandler(cfg *config.Config, queue *scheduler.Queue, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, queue: queue, logger: logger}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ping", h.Ping)
	mux.HandleFunc("/jobs", h.Jobs)
}

// Health handles GET /health requests.
// Returns a simple "ok" status for load-balancer health checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "chart-engine",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}

// Jobs handles GET /jobs requests, returning a snapshot of the refresh job
// queue for operational inspection.
func (h *HealthHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		if err := WriteJSON(w, http.StatusOK, map[string]any{"scheduler": "disabled"}); err != nil {
			h.logger.Error("Failed to encode jobs response", zap.Error(err))
		}
		return
	}

	response := map[string]any{
		"active": h.queue.ActiveCount(),
		"jobs":   h.queue.Jobs(),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode jobs response", zap.Error(err))
	}
}
