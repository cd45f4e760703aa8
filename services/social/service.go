package social

import (
	"context"
	"errors"

	"cinestack/internal/database"
	"cinestack/models"
)

var (
	ErrAlreadyFavorite  = errors.New("movie already favorited")
	ErrFavoriteNotFound = errors.New("favorite not found")
	ErrReviewNotFound   = errors.New("review not found")
	ErrMovieNotFound    = errors.New("movie not found")
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
)

// Service owns favorites and reviews, both single-row per (user, movie).
type Service struct {
	favorites *database.FavoriteRepository
	reviews   *database.ReviewRepository
	movies    *database.MovieRepository
}

// NewService creates a favorites/reviews service.
func NewService(favorites *database.FavoriteRepository, reviews *database.ReviewRepository, movies *database.MovieRepository) *Service {
	return &Service{favorites: favorites, reviews: reviews, movies: movies}
}

// AddFavorite marks a movie as a favorite.
func (s *Service) AddFavorite(ctx context.Context, userID string, movieID int64) (*models.Favorite, error) {
	if err := s.ensureMovie(ctx, movieID); err != nil {
		return nil, err
	}

	favorite := &models.Favorite{UserID: userID, MovieID: movieID}
	if err := s.favorites.CreateFavorite(ctx, favorite); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAlreadyFavorite
		}
		return nil, err
	}
	return favorite, nil
}

// ListFavorites returns the user's favorites with movie data.
func (s *Service) ListFavorites(ctx context.Context, userID string) ([]models.Favorite, error) {
	return s.favorites.ListFavorites(ctx, userID)
}

// RemoveFavorite unmarks a favorite.
func (s *Service) RemoveFavorite(ctx context.Context, userID string, movieID int64) error {
	deleted, err := s.favorites.DeleteFavorite(ctx, userID, movieID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrFavoriteNotFound
	}
	return nil
}

// ReviewInput carries a star rating and optional text.
type ReviewInput struct {
	MovieID    int64  `json:"movieId"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"reviewText"`
}

// UpsertReview creates or replaces the user's review of a movie.
func (s *Service) UpsertReview(ctx context.Context, userID string, input ReviewInput) (*models.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, ErrInvalidRating
	}
	if err := s.ensureMovie(ctx, input.MovieID); err != nil {
		return nil, err
	}

	review := &models.Review{
		UserID:     userID,
		MovieID:    input.MovieID,
		Rating:     input.Rating,
		ReviewText: input.ReviewText,
	}
	if err := s.reviews.UpsertReview(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

// ListReviews returns the user's reviews, newest first.
func (s *Service) ListReviews(ctx context.Context, userID string) ([]models.Review, error) {
	return s.reviews.ListReviewsByUser(ctx, userID)
}

// ListMovieReviews returns all reviews of one movie, newest first.
func (s *Service) ListMovieReviews(ctx context.Context, movieID int64) ([]models.Review, error) {
	return s.reviews.ListReviewsByMovie(ctx, movieID)
}

// DeleteReview removes the user's review of a movie.
func (s *Service) DeleteReview(ctx context.Context, userID string, movieID int64) error {
	deleted, err := s.reviews.DeleteReview(ctx, userID, movieID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrReviewNotFound
	}
	return nil
}

func (s *Service) ensureMovie(ctx context.Context, movieID int64) error {
	movie, err := s.movies.GetMovie(ctx, movieID)
	if err != nil {
		return err
	}
	if movie == nil {
		return ErrMovieNotFound
	}
	return nil
}
