// Package handler provides HTTP handlers for all API endpoints. Handlers
// talk straight to the queue store, snapshot store, and index builder — no
// service layer.
package handler

import (
	"net/http"
	"time"

	"github.com/albapepper/prekick-data/internal/api/respond"
	"github.com/albapepper/prekick-data/internal/config"
	"github.com/albapepper/prekick-data/internal/db"
	"github.com/albapepper/prekick-data/internal/index"
	"github.com/albapepper/prekick-data/internal/pipeline"
	"github.com/albapepper/prekick-data/internal/queue"
	"github.com/albapepper/prekick-data/internal/snapshot"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool     *db.Pool
	jobs     queue.Store
	store    *snapshot.Store
	indexer  *index.Builder
	pipeline *pipeline.Orchestrator
	cfg      *config.Config
}

// New creates a Handler with shared dependencies.
func New(pool *db.Pool, jobs queue.Store, store *snapshot.Store, indexer *index.Builder, orch *pipeline.Orchestrator, cfg *config.Config) *Handler {
	return &Handler{
		pool:     pool,
		jobs:     jobs,
		store:    store,
		indexer:  indexer,
		pipeline: orch,
		cfg:      cfg,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Prekick Data API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"leagues": h.cfg.Leagues,
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.HealthCheck(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckStore verifies snapshot storage reachability by probing a key
// that never exists. Absence is fine; a transport error is not.
// @Summary Snapshot store health check
// @Description Verifies the snapshot blob backend is reachable.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/store [get]
func (h *Handler) HealthCheckStore(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.Exists(r.Context(), "healthz/probe"); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"storage":   "unreachable",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"storage":   h.cfg.StorageBackend,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
