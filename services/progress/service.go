package progress

import (
	"context"
	"errors"

	"cinestack/internal/database"
	"cinestack/models"
)

var (
	ErrInvalidStatus   = errors.New("invalid episode status")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrInvalidPosition = errors.New("season and episode must be positive")
	ErrSeriesNotFound  = errors.New("series not found")
	ErrRecordNotFound  = errors.New("episode progress not found")
)

// Service tracks per-user, per-episode watch state. It is independent of
// the playlist status machinery.
type Service struct {
	episodes *database.EpisodeRepository
	movies   *database.MovieRepository
}

// NewService creates an episode progress service.
func NewService(episodes *database.EpisodeRepository, movies *database.MovieRepository) *Service {
	return &Service{episodes: episodes, movies: movies}
}

// UpsertInput carries one episode watch record.
type UpsertInput struct {
	SeriesID int64                `json:"seriesId"`
	Season   int                  `json:"season"`
	Episode  int                  `json:"episode"`
	Status   models.EpisodeStatus `json:"status"`
	Notes    string               `json:"notes"`
	Rating   *int                 `json:"rating"`
}

// Upsert creates or replaces the record for (user, series, season,
// episode).
func (s *Service) Upsert(ctx context.Context, userID string, input UpsertInput) (*models.EpisodeProgress, error) {
	if input.Season < 1 || input.Episode < 1 {
		return nil, ErrInvalidPosition
	}
	if input.Status == "" {
		input.Status = models.EpisodeNotStarted
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if input.Rating != nil && (*input.Rating < 1 || *input.Rating > 5) {
		return nil, ErrInvalidRating
	}

	series, err := s.movies.GetMovie(ctx, input.SeriesID)
	if err != nil {
		return nil, err
	}
	if series == nil {
		return nil, ErrSeriesNotFound
	}

	record := &models.EpisodeProgress{
		UserID:   userID,
		SeriesID: input.SeriesID,
		Season:   input.Season,
		Episode:  input.Episode,
		Status:   input.Status,
		Notes:    input.Notes,
		Rating:   input.Rating,
	}
	if err := s.episodes.UpsertProgress(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// List returns the user's records, optionally narrowed by series, season
// and episode, ordered by (series, season, episode).
func (s *Service) List(ctx context.Context, userID string, filter database.ProgressFilter) ([]models.EpisodeProgress, error) {
	return s.episodes.ListProgress(ctx, userID, filter)
}

// Delete removes one record owned by the user.
func (s *Service) Delete(ctx context.Context, userID string, id int64) error {
	deleted, err := s.episodes.DeleteProgress(ctx, userID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrRecordNotFound
	}
	return nil
}
