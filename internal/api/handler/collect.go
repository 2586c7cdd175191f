package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/prekick-data/internal/api/respond"
	"github.com/albapepper/prekick-data/internal/snapshot"
)

// runInFlight guards against overlapping manual runs. A scheduled run and a
// manual run racing each other is harmless (claims are atomic) but wasteful.
var runInFlight atomic.Bool

// TriggerRun kicks off a collection cycle in the background.
// @Summary Trigger a collection run
// @Description Starts a discovery + execution cycle. Returns 409 if a manual run is already in flight.
// @Tags collector
// @Produce json
// @Security BearerAuth
// @Success 202 {object} map[string]interface{}
// @Failure 409 {object} respond.ErrorResponse
// @Router /api/v1/collector/run [post]
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if !runInFlight.CompareAndSwap(false, true) {
		respond.WriteError(w, http.StatusConflict, "RUN_IN_FLIGHT", "A collection run is already in progress")
		return
	}

	go func() {
		defer runInFlight.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		result, err := h.pipeline.Run(ctx)
		if err != nil {
			slog.Error("Manual collection run failed", "error", err)
			return
		}
		slog.Info("Manual collection run finished", "summary", result.Summary())
	}()

	respond.WriteJSONObject(w, http.StatusAccepted, map[string]interface{}{
		"status":    "started",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetSnapshot streams a stored odds snapshot as raw JSON.
// @Summary Download a snapshot
// @Description Returns the raw JSON document for one captured snapshot.
// @Tags snapshots
// @Produce json
// @Param league path string true "League key (e.g. soccer_epl)"
// @Param season path string true "Season label (e.g. 2025-2026)"
// @Param snapshotID path string true "Snapshot ID: {fixtureID}_{offset}_{matchDate}"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/snapshots/{league}/{season}/{snapshotID} [get]
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	league := chi.URLParam(r, "league")
	season := chi.URLParam(r, "season")
	id := chi.URLParam(r, "snapshotID")

	key := "leagues/" + league + "/" + season + "/" + id + ".json"
	data, err := h.store.GetRaw(r.Context(), key)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	if data == nil {
		respond.WriteError(w, http.StatusNotFound, "SNAPSHOT_NOT_FOUND", "No snapshot at "+key)
		return
	}
	respond.WriteJSON(w, http.StatusOK, data)
}

// ListSeasonSnapshots lists the snapshot keys stored for a league season.
// @Summary List season snapshots
// @Tags snapshots
// @Produce json
// @Param league path string true "League key"
// @Param season path string true "Season label"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/snapshots/{league}/{season} [get]
func (h *Handler) ListSeasonSnapshots(w http.ResponseWriter, r *http.Request) {
	league := chi.URLParam(r, "league")
	season := chi.URLParam(r, "season")

	keys, err := h.store.ListSeason(r.Context(), league, season)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"league": league,
		"season": season,
		"count":  len(keys),
		"keys":   keys,
	})
}

// GetMatchIndex serves a league season's index document.
// @Summary Get an index document
// @Description kind is one of by_match, by_date, by_team.
// @Tags indexes
// @Produce json
// @Param league path string true "League key"
// @Param season path string true "Season label"
// @Param kind path string true "Index kind" Enums(by_match, by_date, by_team)
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/indexes/{league}/{season}/{kind} [get]
func (h *Handler) GetMatchIndex(w http.ResponseWriter, r *http.Request) {
	league := chi.URLParam(r, "league")
	season := chi.URLParam(r, "season")
	kind := chi.URLParam(r, "kind")

	switch snapshot.IndexType(kind) {
	case snapshot.IndexByMatch, snapshot.IndexByDate, snapshot.IndexByTeam:
	default:
		respond.WriteError(w, http.StatusBadRequest, "BAD_INDEX_KIND", "kind must be by_match, by_date, or by_team")
		return
	}

	data, err := h.store.GetIndex(r.Context(), league, season, snapshot.IndexType(kind))
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	if data == nil {
		respond.WriteError(w, http.StatusNotFound, "INDEX_NOT_FOUND", "No "+kind+" index for "+league+"/"+season)
		return
	}
	respond.WriteJSON(w, http.StatusOK, data)
}

// GetQueueSummary returns queue status counts and the next scheduled job.
// @Summary Queue summary
// @Tags queue
// @Produce json
// @Success 200 {object} queue.Summary
// @Router /api/v1/queue/summary [get]
func (h *Handler) GetQueueSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.jobs.Summary(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, summary)
}

// GetMetrics returns per-day per-league collection counters.
// @Summary Collection metrics
// @Description Date range defaults to the last 7 days. Dates are YYYY-MM-DD.
// @Tags queue
// @Produce json
// @Param from query string false "Start date (inclusive)"
// @Param to query string false "End date (inclusive)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/metrics [get]
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" {
		from = now.AddDate(0, 0, -7).Format("2006-01-02")
	}
	if to == "" {
		to = now.Format("2006-01-02")
	}
	for _, d := range []string{from, to} {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			respond.WriteError(w, http.StatusBadRequest, "BAD_DATE", "Dates must be YYYY-MM-DD")
			return
		}
	}

	rows, err := h.jobs.GetMetrics(r.Context(), from, to)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"from":    from,
		"to":      to,
		"metrics": rows,
	})
}
