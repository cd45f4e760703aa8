package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"cinestack/models"
	"cinestack/services/metadata"
)

// MetadataHandler proxies search, detail and listing lookups to the
// metadata provider.
type MetadataHandler struct {
	client *metadata.Client
}

// NewMetadataHandler creates a new metadata handler.
func NewMetadataHandler(client *metadata.Client) *MetadataHandler {
	return &MetadataHandler{client: client}
}

// Search handles GET /api/tmdb/search?query=...&page=N&type=movie|tv|multi.
func (h *MetadataHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	page := queryPage(r)
	kind := r.URL.Query().Get("type")

	results, err := h.client.Search(r.Context(), query, page, kind)
	if err != nil {
		h.writeMetadataError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// Details handles GET /api/tmdb/{type}/{tmdbID}.
func (h *MetadataHandler) Details(w http.ResponseWriter, r *http.Request) {
	tmdbID, ok := pathID(w, r, "tmdbID")
	if !ok {
		return
	}
	kind := models.NormalizeMediaType(muxVar(r, "type"))

	details, err := h.client.Details(r.Context(), tmdbID, kind)
	if err != nil {
		h.writeMetadataError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// Season handles GET /api/tmdb/tv/{tmdbID}/season/{season}.
func (h *MetadataHandler) Season(w http.ResponseWriter, r *http.Request) {
	tmdbID, ok := pathID(w, r, "tmdbID")
	if !ok {
		return
	}
	seasonNumber, err := strconv.Atoi(muxVar(r, "season"))
	if err != nil || seasonNumber < 0 {
		writeError(w, http.StatusBadRequest, "invalid season number")
		return
	}

	season, err := h.client.Season(r.Context(), tmdbID, seasonNumber)
	if err != nil {
		h.writeMetadataError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, season)
}

// Popular handles GET /api/tmdb/popular?type=movie|tv&page=N.
func (h *MetadataHandler) Popular(w http.ResponseWriter, r *http.Request) {
	results, err := h.client.Popular(r.Context(), r.URL.Query().Get("type"), queryPage(r))
	if err != nil {
		h.writeMetadataError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// TopRated handles GET /api/tmdb/top_rated?type=movie|tv&page=N.
func (h *MetadataHandler) TopRated(w http.ResponseWriter, r *http.Request) {
	results, err := h.client.TopRated(r.Context(), r.URL.Query().Get("type"), queryPage(r))
	if err != nil {
		h.writeMetadataError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// Discover handles GET /api/tmdb/discover, the aggregated homepage bundle.
func (h *MetadataHandler) Discover(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.client.Discover(r.Context())
	if err != nil {
		h.writeMetadataError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// ClearCache handles POST /api/tmdb/cache/clear.
func (h *MetadataHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.client.ClearCache(); err != nil {
		writeInternalError(w, "metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cache cleared"})
}

func (h *MetadataHandler) writeMetadataError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, metadata.ErrNotFound):
		writeError(w, http.StatusNotFound, "title not found")
	case errors.Is(err, metadata.ErrAPIKeyRequired):
		writeError(w, http.StatusServiceUnavailable, "metadata provider not configured")
	default:
		writeInternalError(w, "metadata", err)
	}
}

func queryPage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
