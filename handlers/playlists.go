package handlers

import (
	"errors"
	"net/http"

	"cinestack/internal/auth"
	"cinestack/models"
	"cinestack/services/library"
)

// PlaylistsHandler handles playlist CRUD and membership operations.
type PlaylistsHandler struct {
	library *library.Service
}

// NewPlaylistsHandler creates a new playlists handler.
func NewPlaylistsHandler(librarySvc *library.Service) *PlaylistsHandler {
	return &PlaylistsHandler{library: librarySvc}
}

// List handles GET /api/playlists.
func (h *PlaylistsHandler) List(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.library.ListPlaylists(r.Context(), auth.GetUserID(r))
	if err != nil {
		writeInternalError(w, "playlists", err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

// Create handles POST /api/playlists.
func (h *PlaylistsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input library.PlaylistInput
	if !decodeJSON(w, r, &input) {
		return
	}

	playlist, err := h.library.CreatePlaylist(r.Context(), auth.GetUserID(r), input)
	if err != nil {
		h.writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, playlist)
}

// Get handles GET /api/playlists/{id}.
func (h *PlaylistsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	playlist, err := h.library.GetPlaylist(r.Context(), auth.GetUserID(r), id)
	if err != nil {
		h.writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// Update handles PUT /api/playlists/{id}.
func (h *PlaylistsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var input library.PlaylistInput
	if !decodeJSON(w, r, &input) {
		return
	}

	playlist, err := h.library.UpdatePlaylist(r.Context(), auth.GetUserID(r), id, input)
	if err != nil {
		h.writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// Delete handles DELETE /api/playlists/{id}.
func (h *PlaylistsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.library.DeletePlaylist(r.Context(), auth.GetUserID(r), id); err != nil {
		h.writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Items handles GET /api/playlists/{id}/items.
func (h *PlaylistsHandler) Items(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	items, err := h.library.ListItems(r.Context(), auth.GetUserID(r), id)
	if err != nil {
		h.writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// AddMovieRequest carries a movie id and an optional initial status.
type AddMovieRequest struct {
	MovieID int64              `json:"movieId"`
	Status  models.WatchStatus `json:"status"`
}

// AddMovie handles POST /api/playlists/{id}/add_movie. Adding to a status
// playlist is a status change and is idempotent; adding to a custom
// playlist twice is a conflict.
func (h *PlaylistsHandler) AddMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req AddMovieRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MovieID < 1 {
		writeError(w, http.StatusBadRequest, "movieId is required")
		return
	}

	item, err := h.library.AddToPlaylist(r.Context(), auth.GetUserID(r), id, req.MovieID, req.Status)
	if err != nil {
		h.writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// RemoveMovie handles DELETE /api/playlists/{id}/remove_movie/{movieID}.
func (h *PlaylistsHandler) RemoveMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	movieID, ok := pathID(w, r, "movieID")
	if !ok {
		return
	}

	if err := h.library.RemoveFromPlaylist(r.Context(), auth.GetUserID(r), id, movieID); err != nil {
		h.writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// UpdateItemStatus handles PUT /api/playlists/{id}/update_item_status/{movieID}.
// The status change propagates to every membership of the movie and moves
// it between status playlists.
func (h *PlaylistsHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	movieID, ok := pathID(w, r, "movieID")
	if !ok {
		return
	}
	var req SetStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.library.UpdateItemStatus(r.Context(), auth.GetUserID(r), id, movieID, req.Status)
	if err != nil {
		h.writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// RateRequest carries a 1-5 star rating.
type RateRequest struct {
	Rating int `json:"rating"`
}

// RateMovie handles PUT /api/playlists/{id}/rate/{movieID}. Rating a movie
// not yet in the playlist adds it with the default status.
func (h *PlaylistsHandler) RateMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	movieID, ok := pathID(w, r, "movieID")
	if !ok {
		return
	}
	var req RateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.library.RateItem(r.Context(), auth.GetUserID(r), id, movieID, req.Rating)
	if err != nil {
		h.writeLibraryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *PlaylistsHandler) writeLibraryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, library.ErrPlaylistNotFound):
		writeError(w, http.StatusNotFound, "playlist not found")
	case errors.Is(err, library.ErrMovieNotFound):
		writeError(w, http.StatusNotFound, "movie not found")
	case errors.Is(err, library.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "movie not in playlist")
	case errors.Is(err, library.ErrDuplicateItem):
		writeError(w, http.StatusBadRequest, "movie already in playlist")
	case errors.Is(err, library.ErrDuplicateTitle):
		writeError(w, http.StatusBadRequest, "a playlist with this title already exists")
	case errors.Is(err, library.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid watch status")
	case errors.Is(err, library.ErrInvalidRating):
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
	case errors.Is(err, library.ErrTitleRequired):
		writeError(w, http.StatusBadRequest, "playlist title is required")
	case errors.Is(err, library.ErrStatusPlaylistImmutable):
		writeError(w, http.StatusBadRequest, "status playlists cannot be modified")
	default:
		writeInternalError(w, "playlists", err)
	}
}
