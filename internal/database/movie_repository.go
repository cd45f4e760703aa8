package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cinestack/models"
)

// MovieRepository provides access to the movies table.
type MovieRepository struct {
	db DBTX
}

// NewMovieRepository creates a movie repository bound to db.
func NewMovieRepository(db DBTX) *MovieRepository {
	return &MovieRepository{db: db}
}

const movieColumns = `id, title, poster_url, description, release_year, media_type,
	tmdb_id, youtube_id, created_at, updated_at`

// CreateMovie inserts a new catalog title and fills in its id and
// timestamps.
func (r *MovieRepository) CreateMovie(ctx context.Context, movie *models.Movie) error {
	now := time.Now().UTC()
	movie.CreatedAt = now
	movie.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO movies (title, poster_url, description, release_year, media_type,
			tmdb_id, youtube_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		movie.Title, movie.PosterURL, movie.Description, movie.ReleaseYear,
		movie.MediaType, movie.TMDBID, movie.YouTubeID, movie.CreatedAt, movie.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert movie: %w", err)
	}
	movie.ID, err = res.LastInsertId()
	return err
}

// GetMovie returns a catalog title by id, or nil if absent.
func (r *MovieRepository) GetMovie(ctx context.Context, id int64) (*models.Movie, error) {
	return r.getMovie(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
}

// GetMovieByTMDB returns the local title for an external id and media
// kind, or nil if absent.
func (r *MovieRepository) GetMovieByTMDB(ctx context.Context, tmdbID int64, mediaType models.MediaType) (*models.Movie, error) {
	return r.getMovie(ctx, `SELECT `+movieColumns+` FROM movies
		WHERE tmdb_id = ? AND media_type = ?`, tmdbID, mediaType)
}

// ListMovies returns all catalog titles, newest first.
func (r *MovieRepository) ListMovies(ctx context.Context) ([]models.Movie, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+movieColumns+` FROM movies
		ORDER BY created_at DESC, title`)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	var movies []models.Movie
	for rows.Next() {
		var movie models.Movie
		if err := scanMovie(rows, &movie); err != nil {
			return nil, err
		}
		movies = append(movies, movie)
	}
	return movies, rows.Err()
}

// UpdateMovie updates the mutable fields of a catalog title. Returns
// sql.ErrNoRows if the title does not exist.
func (r *MovieRepository) UpdateMovie(ctx context.Context, movie *models.Movie) error {
	movie.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE movies SET title = ?, poster_url = ?, description = ?, release_year = ?,
			media_type = ?, youtube_id = ?, updated_at = ?
		WHERE id = ?`,
		movie.Title, movie.PosterURL, movie.Description, movie.ReleaseYear,
		movie.MediaType, movie.YouTubeID, movie.UpdatedAt, movie.ID)
	if err != nil {
		return fmt.Errorf("update movie: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteMovie removes a catalog title. Memberships referencing it are
// removed by the foreign-key cascade. Returns true if a row was deleted.
func (r *MovieRepository) DeleteMovie(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete movie: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *MovieRepository) getMovie(ctx context.Context, query string, args ...any) (*models.Movie, error) {
	var movie models.Movie
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&movie.ID, &movie.Title, &movie.PosterURL, &movie.Description,
		&movie.ReleaseYear, &movie.MediaType, &movie.TMDBID, &movie.YouTubeID,
		&movie.CreatedAt, &movie.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query movie: %w", err)
	}
	return &movie, nil
}

func scanMovie(rows *sql.Rows, movie *models.Movie) error {
	return rows.Scan(
		&movie.ID, &movie.Title, &movie.PosterURL, &movie.Description,
		&movie.ReleaseYear, &movie.MediaType, &movie.TMDBID, &movie.YouTubeID,
		&movie.CreatedAt, &movie.UpdatedAt)
}
