package database

import (
	"context"
	"fmt"
	"time"

	"cinestack/models"
)

// FavoriteRepository provides access to the favorites table.
type FavoriteRepository struct {
	db DBTX
}

// NewFavoriteRepository creates a favorite repository bound to db.
func NewFavoriteRepository(db DBTX) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// CreateFavorite inserts a favorite row. A unique-constraint error means
// the movie is already favorited.
func (r *FavoriteRepository) CreateFavorite(ctx context.Context, favorite *models.Favorite) error {
	favorite.AddedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO favorites (user_id, movie_id, added_at) VALUES (?, ?, ?)`,
		favorite.UserID, favorite.MovieID, favorite.AddedAt)
	if err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	favorite.ID, err = res.LastInsertId()
	return err
}

// ListFavorites returns the user's favorites with movie data, newest first.
func (r *FavoriteRepository) ListFavorites(ctx context.Context, userID string) ([]models.Favorite, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT f.id, f.user_id, f.movie_id, f.added_at,
			m.id, m.title, m.poster_url, m.description, m.release_year, m.media_type,
			m.tmdb_id, m.youtube_id, m.created_at, m.updated_at
		FROM favorites f
		JOIN movies m ON m.id = f.movie_id
		WHERE f.user_id = ?
		ORDER BY f.added_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var favorites []models.Favorite
	for rows.Next() {
		var favorite models.Favorite
		var movie models.Movie
		if err := rows.Scan(
			&favorite.ID, &favorite.UserID, &favorite.MovieID, &favorite.AddedAt,
			&movie.ID, &movie.Title, &movie.PosterURL, &movie.Description,
			&movie.ReleaseYear, &movie.MediaType, &movie.TMDBID, &movie.YouTubeID,
			&movie.CreatedAt, &movie.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favorite.Movie = &movie
		favorites = append(favorites, favorite)
	}
	return favorites, rows.Err()
}

// DeleteFavorite removes the favorite for (userID, movieID). Returns true
// if a row was deleted.
func (r *FavoriteRepository) DeleteFavorite(ctx context.Context, userID string, movieID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM favorites WHERE user_id = ? AND movie_id = ?`, userID, movieID)
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
