package handlers

import (
	"errors"
	"net/http"

	"cinestack/internal/auth"
	"cinestack/services/social"
)

// SocialHandler handles favorites and reviews.
type SocialHandler struct {
	social *social.Service
}

// NewSocialHandler creates a new social handler.
func NewSocialHandler(socialSvc *social.Service) *SocialHandler {
	return &SocialHandler{social: socialSvc}
}

// FavoriteRequest identifies a movie to favorite.
type FavoriteRequest struct {
	MovieID int64 `json:"movieId"`
}

// AddFavorite handles POST /api/favorites.
func (h *SocialHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var req FavoriteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MovieID < 1 {
		writeError(w, http.StatusBadRequest, "movieId is required")
		return
	}

	favorite, err := h.social.AddFavorite(r.Context(), auth.GetUserID(r), req.MovieID)
	if err != nil {
		h.writeSocialError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, favorite)
}

// ListFavorites handles GET /api/favorites.
func (h *SocialHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.social.ListFavorites(r.Context(), auth.GetUserID(r))
	if err != nil {
		writeInternalError(w, "social", err)
		return
	}
	writeJSON(w, http.StatusOK, favorites)
}

// RemoveFavorite handles DELETE /api/favorites/{movieID}.
func (h *SocialHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	movieID, ok := pathID(w, r, "movieID")
	if !ok {
		return
	}

	if err := h.social.RemoveFavorite(r.Context(), auth.GetUserID(r), movieID); err != nil {
		h.writeSocialError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// UpsertReview handles POST /api/reviews, creating or replacing the
// user's review of a movie.
func (h *SocialHandler) UpsertReview(w http.ResponseWriter, r *http.Request) {
	var input social.ReviewInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.MovieID < 1 {
		writeError(w, http.StatusBadRequest, "movieId is required")
		return
	}

	review, err := h.social.UpsertReview(r.Context(), auth.GetUserID(r), input)
	if err != nil {
		h.writeSocialError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// ListReviews handles GET /api/reviews, the user's own reviews.
func (h *SocialHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.social.ListReviews(r.Context(), auth.GetUserID(r))
	if err != nil {
		writeInternalError(w, "social", err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// ListMovieReviews handles GET /api/movies/{id}/reviews, all reviews of
// one movie.
func (h *SocialHandler) ListMovieReviews(w http.ResponseWriter, r *http.Request) {
	movieID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	reviews, err := h.social.ListMovieReviews(r.Context(), movieID)
	if err != nil {
		writeInternalError(w, "social", err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// DeleteReview handles DELETE /api/reviews/{movieID}.
func (h *SocialHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	movieID, ok := pathID(w, r, "movieID")
	if !ok {
		return
	}

	if err := h.social.DeleteReview(r.Context(), auth.GetUserID(r), movieID); err != nil {
		h.writeSocialError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *SocialHandler) writeSocialError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, social.ErrMovieNotFound):
		writeError(w, http.StatusNotFound, "movie not found")
	case errors.Is(err, social.ErrFavoriteNotFound):
		writeError(w, http.StatusNotFound, "favorite not found")
	case errors.Is(err, social.ErrReviewNotFound):
		writeError(w, http.StatusNotFound, "review not found")
	case errors.Is(err, social.ErrAlreadyFavorite):
		writeError(w, http.StatusBadRequest, "movie already favorited")
	case errors.Is(err, social.ErrInvalidRating):
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
	default:
		writeInternalError(w, "social", err)
	}
}
