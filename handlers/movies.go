package handlers

import (
	"errors"
	"net/http"

	"cinestack/internal/auth"
	"cinestack/models"
	"cinestack/services/catalog"
	"cinestack/services/library"
)

// MoviesHandler handles the local title catalog and direct status changes.
type MoviesHandler struct {
	catalog *catalog.Service
	library *library.Service
}

// NewMoviesHandler creates a new movies handler.
func NewMoviesHandler(catalogSvc *catalog.Service, librarySvc *library.Service) *MoviesHandler {
	return &MoviesHandler{catalog: catalogSvc, library: librarySvc}
}

// List handles GET /api/movies.
func (h *MoviesHandler) List(w http.ResponseWriter, r *http.Request) {
	movies, err := h.catalog.List(r.Context())
	if err != nil {
		writeInternalError(w, "movies", err)
		return
	}
	writeJSON(w, http.StatusOK, movies)
}

// Get handles GET /api/movies/{id}.
func (h *MoviesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	movie, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

// Create handles POST /api/movies, a manually entered title.
func (h *MoviesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input catalog.ManualTitleInput
	if !decodeJSON(w, r, &input) {
		return
	}

	movie, err := h.catalog.CreateManual(r.Context(), input)
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, movie)
}

// Update handles PUT /api/movies/{id}.
func (h *MoviesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var input catalog.ManualTitleInput
	if !decodeJSON(w, r, &input) {
		return
	}

	movie, err := h.catalog.Update(r.Context(), id, input)
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

// Delete handles DELETE /api/movies/{id}.
func (h *MoviesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.catalog.Delete(r.Context(), id); err != nil {
		h.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetOrCreateRequest identifies a title at the metadata provider.
type GetOrCreateRequest struct {
	TMDBID    int64  `json:"tmdbId"`
	MediaType string `json:"mediaType"`
}

// GetOrCreateResponse wraps the resolved title.
type GetOrCreateResponse struct {
	Movie   *models.Movie `json:"movie"`
	Created bool          `json:"created"`
}

// GetOrCreate handles POST /api/movies/get_or_create: resolve a TMDB id
// to a local title, fetching it on first reference.
func (h *MoviesHandler) GetOrCreate(w http.ResponseWriter, r *http.Request) {
	var req GetOrCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TMDBID < 1 {
		writeError(w, http.StatusBadRequest, "tmdbId is required")
		return
	}

	movie, created, err := h.catalog.Resolve(r.Context(), req.TMDBID, req.MediaType)
	if err != nil {
		if errors.Is(err, catalog.ErrMetadataNotFound) {
			writeError(w, http.StatusNotFound, "title not found at metadata provider")
			return
		}
		writeInternalError(w, "movies", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, GetOrCreateResponse{Movie: movie, Created: created})
}

// SetStatusRequest carries a watch status value.
type SetStatusRequest struct {
	Status models.WatchStatus `json:"status"`
}

// SetStatus handles PUT /api/movies/{id}/status, the direct status change
// that drives the playlist synchronization.
func (h *MoviesHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req SetStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID := auth.GetUserID(r)
	if err := h.library.SetStatus(r.Context(), userID, id, req.Status); err != nil {
		switch {
		case errors.Is(err, library.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "invalid watch status")
		case errors.Is(err, library.ErrMovieNotFound):
			writeError(w, http.StatusNotFound, "movie not found")
		default:
			writeInternalError(w, "movies", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"movieId": id, "status": req.Status})
}

func (h *MoviesHandler) writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrMovieNotFound):
		writeError(w, http.StatusNotFound, "movie not found")
	case errors.Is(err, catalog.ErrTitleRequired):
		writeError(w, http.StatusBadRequest, "title is required")
	default:
		writeInternalError(w, "movies", err)
	}
}
