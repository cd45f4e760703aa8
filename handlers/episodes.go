package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"cinestack/internal/auth"
	"cinestack/internal/database"
	"cinestack/services/progress"
)

// EpisodesHandler handles per-episode watch progress.
type EpisodesHandler struct {
	progress *progress.Service
}

// NewEpisodesHandler creates a new episodes handler.
func NewEpisodesHandler(progressSvc *progress.Service) *EpisodesHandler {
	return &EpisodesHandler{progress: progressSvc}
}

// Upsert handles POST /api/episodes/progress, creating or replacing one
// episode record.
func (h *EpisodesHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var input progress.UpsertInput
	if !decodeJSON(w, r, &input) {
		return
	}

	record, err := h.progress.Upsert(r.Context(), auth.GetUserID(r), input)
	if err != nil {
		h.writeProgressError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// List handles GET /api/episodes/progress with optional seriesId, season
// and episode query filters.
func (h *EpisodesHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter database.ProgressFilter
	q := r.URL.Query()
	if v := q.Get("seriesId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid seriesId")
			return
		}
		filter.SeriesID = id
	}
	if v := q.Get("season"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid season")
			return
		}
		filter.Season = n
	}
	if v := q.Get("episode"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid episode")
			return
		}
		filter.Episode = n
	}

	records, err := h.progress.List(r.Context(), auth.GetUserID(r), filter)
	if err != nil {
		writeInternalError(w, "episodes", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Delete handles DELETE /api/episodes/progress/{id}.
func (h *EpisodesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.progress.Delete(r.Context(), auth.GetUserID(r), id); err != nil {
		h.writeProgressError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *EpisodesHandler) writeProgressError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, progress.ErrSeriesNotFound):
		writeError(w, http.StatusNotFound, "series not found")
	case errors.Is(err, progress.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "episode progress not found")
	case errors.Is(err, progress.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid episode status")
	case errors.Is(err, progress.ErrInvalidRating):
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
	case errors.Is(err, progress.ErrInvalidPosition):
		writeError(w, http.StatusBadRequest, "season and episode must be positive")
	default:
		writeInternalError(w, "episodes", err)
	}
}
