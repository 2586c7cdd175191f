package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/prekick-data/internal/api/respond"
)

// teamParam converts a path segment back to the normalized team name the
// indexes store: underscores stand in for spaces.
func teamParam(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

// GetMatch looks up one match's snapshot locations by team names and date.
// @Summary Look up a match
// @Description Team names use underscores for spaces (e.g. Arsenal_FC).
// @Tags matches
// @Produce json
// @Param league path string true "League key"
// @Param season path string true "Season label"
// @Param home path string true "Home team (underscored)"
// @Param away path string true "Away team (underscored)"
// @Param date path string true "Match date YYYY-MM-DD"
// @Success 200 {object} index.MatchEntry
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/matches/{league}/{season}/{home}/{away}/{date} [get]
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	league := chi.URLParam(r, "league")
	season := chi.URLParam(r, "season")

	entry, err := h.indexer.LookupMatch(r.Context(), league, season,
		teamParam(chi.URLParam(r, "home")),
		teamParam(chi.URLParam(r, "away")),
		chi.URLParam(r, "date"))
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	if entry == nil {
		respond.WriteError(w, http.StatusNotFound, "MATCH_NOT_FOUND", "Match not indexed")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, entry)
}

// GetMatchesForDate lists the matches indexed on a calendar date.
// @Summary Matches on a date
// @Tags matches
// @Produce json
// @Param league path string true "League key"
// @Param season path string true "Season label"
// @Param date path string true "Match date YYYY-MM-DD"
// @Success 200 {object} index.DateEntry
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/matches/{league}/{season}/date/{date} [get]
func (h *Handler) GetMatchesForDate(w http.ResponseWriter, r *http.Request) {
	league := chi.URLParam(r, "league")
	season := chi.URLParam(r, "season")

	entry, err := h.indexer.MatchesForDate(r.Context(), league, season, chi.URLParam(r, "date"))
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	if entry == nil {
		respond.WriteError(w, http.StatusNotFound, "DATE_NOT_FOUND", "No matches indexed on that date")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, entry)
}

// GetMatchesForTeam lists the match keys a team appears in.
// @Summary Matches for a team
// @Tags matches
// @Produce json
// @Param league path string true "League key"
// @Param season path string true "Season label"
// @Param team path string true "Team name (underscored)"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/matches/{league}/{season}/team/{team} [get]
func (h *Handler) GetMatchesForTeam(w http.ResponseWriter, r *http.Request) {
	league := chi.URLParam(r, "league")
	season := chi.URLParam(r, "season")
	team := teamParam(chi.URLParam(r, "team"))

	keys, err := h.indexer.MatchesForTeam(r.Context(), league, season, team)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"team":    team,
		"count":   len(keys),
		"matches": keys,
	})
}
