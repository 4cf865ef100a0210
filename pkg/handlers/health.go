package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/config"
	"github.com/bidfit-inc/bidfit-engine/pkg/database"
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

// ReadyResponse reports per-dependency readiness.
type ReadyResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// HealthHandler handles liveness, readiness and ping endpoints.
type HealthHandler struct {
	cfg    *config.Config
	db     *database.DB
	redis  *redis.Client
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. The redis client may be
// nil when caching is not configured; readiness then reports it as
// disabled rather than failing.
func NewHealthHandler(cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, db: db, redis: redisClient, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ready", h.Ready)
	mux.HandleFunc("/ping", h.Ping)
}

// Health handles GET /health requests.
// Returns a simple "ok" status for load balancer liveness checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready handles GET /ready requests. It pings postgres and redis with a
// short deadline and returns 503 if a required dependency is down.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := ReadyResponse{Status: "ok", Database: "ok", Redis: "ok"}
	status := http.StatusOK

	if h.db == nil {
		response.Database = "not configured"
		response.Status = "degraded"
		status = http.StatusServiceUnavailable
	} else if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("database readiness check failed", zap.Error(err))
		response.Database = "unavailable"
		response.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	// Redis is optional; scoring runs uncached without it.
	if h.redis == nil {
		response.Redis = "disabled"
	} else if err := h.redis.Ping(ctx).Err(); err != nil {
		h.logger.Warn("redis readiness check failed", zap.Error(err))
		response.Redis = "unavailable"
	}

	if err := WriteJSON(w, status, response); err != nil {
		h.logger.Error("Failed to encode ready response", zap.Error(err))
	}
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
		Service:     "bidfit-engine",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
