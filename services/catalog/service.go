package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"cinestack/internal/database"
	"cinestack/models"
	"cinestack/services/metadata"
)

var (
	// ErrMetadataNotFound is returned when the external provider reports
	// no title for the requested id.
	ErrMetadataNotFound = errors.New("title not found at metadata provider")
	// ErrTitleRequired is returned when a manual title has no name.
	ErrTitleRequired = errors.New("title is required")
	// ErrMovieNotFound is returned when a local catalog title is missing.
	ErrMovieNotFound = errors.New("movie not found")
)

// metadataClient is the slice of the metadata client the resolver needs.
type metadataClient interface {
	Details(ctx context.Context, tmdbID int64, kind models.MediaType) (*models.TitleDetails, error)
}

var _ metadataClient = (*metadata.Client)(nil)

// Service resolves external catalog ids to locally-owned titles and owns
// manual title CRUD.
type Service struct {
	movies   *database.MovieRepository
	metadata metadataClient
}

// NewService creates a catalog service.
func NewService(movies *database.MovieRepository, metadataClient metadataClient) *Service {
	return &Service{movies: movies, metadata: metadataClient}
}

// Resolve returns the local title for (tmdbID, kind), fetching and
// persisting it on first reference. The second return reports whether a
// new row was created. Unknown kinds are normalized to movie.
func (s *Service) Resolve(ctx context.Context, tmdbID int64, kind string) (*models.Movie, bool, error) {
	mediaType := models.NormalizeMediaType(kind)

	existing, err := s.movies.GetMovieByTMDB(ctx, tmdbID, mediaType)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	details, err := s.metadata.Details(ctx, tmdbID, mediaType)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return nil, false, fmt.Errorf("%w: tmdb id %d", ErrMetadataNotFound, tmdbID)
		}
		return nil, false, err
	}

	movie := &models.Movie{
		Title:       details.Title,
		Description: details.Overview,
		ReleaseYear: details.ReleaseYear,
		MediaType:   mediaType,
		TMDBID:      &tmdbID,
	}
	if details.PosterURL != "" {
		movie.PosterURL = &details.PosterURL
	}
	if details.YouTubeID != "" {
		movie.YouTubeID = &details.YouTubeID
	}

	if err := s.movies.CreateMovie(ctx, movie); err != nil {
		// Lost a race with a concurrent resolve for the same title; the
		// winner's row is the canonical one.
		if database.IsUniqueViolation(err) {
			winner, getErr := s.movies.GetMovieByTMDB(ctx, tmdbID, mediaType)
			if getErr == nil && winner != nil {
				return winner, false, nil
			}
		}
		return nil, false, err
	}

	log.Printf("[catalog] created title %q (%s, tmdb %d)", movie.Title, mediaType, tmdbID)
	return movie, true, nil
}

// ManualTitleInput carries the fields for a locally-created title.
type ManualTitleInput struct {
	Title       string  `json:"title"`
	PosterURL   *string `json:"posterUrl"`
	Description string  `json:"description"`
	ReleaseYear *int    `json:"releaseYear"`
	MediaType   string  `json:"mediaType"`
	YouTubeID   *string `json:"youtubeId"`
}

// CreateManual creates a title that has no external id.
func (s *Service) CreateManual(ctx context.Context, input ManualTitleInput) (*models.Movie, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}

	movie := &models.Movie{
		Title:       strings.TrimSpace(input.Title),
		PosterURL:   input.PosterURL,
		Description: input.Description,
		ReleaseYear: input.ReleaseYear,
		MediaType:   models.NormalizeMediaType(input.MediaType),
		YouTubeID:   input.YouTubeID,
	}
	if err := s.movies.CreateMovie(ctx, movie); err != nil {
		return nil, err
	}
	return movie, nil
}

// Get returns one catalog title.
func (s *Service) Get(ctx context.Context, id int64) (*models.Movie, error) {
	movie, err := s.movies.GetMovie(ctx, id)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, ErrMovieNotFound
	}
	return movie, nil
}

// List returns all catalog titles.
func (s *Service) List(ctx context.Context) ([]models.Movie, error) {
	return s.movies.ListMovies(ctx)
}

// Update changes the mutable fields of a title.
func (s *Service) Update(ctx context.Context, id int64, input ManualTitleInput) (*models.Movie, error) {
	movie, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}

	movie.Title = strings.TrimSpace(input.Title)
	movie.PosterURL = input.PosterURL
	movie.Description = input.Description
	movie.ReleaseYear = input.ReleaseYear
	movie.MediaType = models.NormalizeMediaType(input.MediaType)
	movie.YouTubeID = input.YouTubeID

	if err := s.movies.UpdateMovie(ctx, movie); err != nil {
		return nil, err
	}
	return movie, nil
}

// Delete removes a title. Memberships referencing it are removed by the
// store's cascade.
func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.movies.DeleteMovie(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrMovieNotFound
	}
	return nil
}
