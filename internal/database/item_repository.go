package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cinestack/models"
)

// ItemRepository provides access to the playlist_items table, including the
// fan-out queries the status synchronization engine runs inside its
// transaction.
type ItemRepository struct {
	db DBTX
}

// NewItemRepository creates an item repository bound to db.
func NewItemRepository(db DBTX) *ItemRepository {
	return &ItemRepository{db: db}
}

// CreateItem inserts a new membership row and fills in its id and
// timestamps.
func (r *ItemRepository) CreateItem(ctx context.Context, item *models.PlaylistItem) error {
	now := time.Now().UTC()
	item.AddedAt = now
	item.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO playlist_items (playlist_id, movie_id, status, user_rating, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.PlaylistID, item.MovieID, item.Status, item.UserRating, item.AddedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert playlist item: %w", err)
	}
	item.ID, err = res.LastInsertId()
	return err
}

// GetItem returns the membership for (playlistID, movieID), or nil if
// absent.
func (r *ItemRepository) GetItem(ctx context.Context, playlistID, movieID int64) (*models.PlaylistItem, error) {
	var item models.PlaylistItem
	err := r.db.QueryRowContext(ctx, `
		SELECT id, playlist_id, movie_id, status, user_rating, added_at, updated_at
		FROM playlist_items WHERE playlist_id = ? AND movie_id = ?`,
		playlistID, movieID).Scan(
		&item.ID, &item.PlaylistID, &item.MovieID, &item.Status,
		&item.UserRating, &item.AddedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query playlist item: %w", err)
	}
	return &item, nil
}

// ListItems returns all memberships of a playlist with their movie data,
// newest first.
func (r *ItemRepository) ListItems(ctx context.Context, playlistID int64) ([]models.PlaylistItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.playlist_id, i.movie_id, i.status, i.user_rating, i.added_at, i.updated_at,
			m.id, m.title, m.poster_url, m.description, m.release_year, m.media_type,
			m.tmdb_id, m.youtube_id, m.created_at, m.updated_at
		FROM playlist_items i
		JOIN movies m ON m.id = i.movie_id
		WHERE i.playlist_id = ?
		ORDER BY i.added_at DESC`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("list playlist items: %w", err)
	}
	defer rows.Close()

	var items []models.PlaylistItem
	for rows.Next() {
		var item models.PlaylistItem
		var movie models.Movie
		if err := rows.Scan(
			&item.ID, &item.PlaylistID, &item.MovieID, &item.Status,
			&item.UserRating, &item.AddedAt, &item.UpdatedAt,
			&movie.ID, &movie.Title, &movie.PosterURL, &movie.Description,
			&movie.ReleaseYear, &movie.MediaType, &movie.TMDBID, &movie.YouTubeID,
			&movie.CreatedAt, &movie.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan playlist item: %w", err)
		}
		item.Movie = &movie
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateStatusForUserMovie propagates a status value to every membership
// row of this user that references the movie, across status and custom
// playlists alike. This is the denormalization fan-out of the engine.
func (r *ItemRepository) UpdateStatusForUserMovie(ctx context.Context, userID string, movieID int64, status models.WatchStatus) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE playlist_items SET status = ?, updated_at = ?
		WHERE movie_id = ?
		  AND playlist_id IN (SELECT id FROM playlists WHERE user_id = ?)`,
		status, time.Now().UTC(), movieID, userID)
	if err != nil {
		return 0, fmt.Errorf("fan out status: %w", err)
	}
	return res.RowsAffected()
}

// UpsertItemStatus ensures a membership exists in the given playlist with
// the given status, creating it if absent and updating it otherwise.
func (r *ItemRepository) UpsertItemStatus(ctx context.Context, playlistID, movieID int64, status models.WatchStatus) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO playlist_items (playlist_id, movie_id, status, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (playlist_id, movie_id)
		DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		playlistID, movieID, status, now, now)
	if err != nil {
		return fmt.Errorf("upsert playlist item: %w", err)
	}
	return nil
}

// DeleteFromOtherStatusPlaylists removes the movie from every status
// playlist of this user except keepPlaylistID, enforcing mutual exclusion
// across the fixed set.
func (r *ItemRepository) DeleteFromOtherStatusPlaylists(ctx context.Context, userID string, movieID, keepPlaylistID int64, statusTitles []string) error {
	if len(statusTitles) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(statusTitles))
	placeholders = placeholders[:len(placeholders)-1]

	args := []any{movieID, userID}
	for _, title := range statusTitles {
		args = append(args, title)
	}
	args = append(args, keepPlaylistID)

	_, err := r.db.ExecContext(ctx, `
		DELETE FROM playlist_items
		WHERE movie_id = ?
		  AND playlist_id IN (
			SELECT id FROM playlists
			WHERE user_id = ? AND title IN (`+placeholders+`) AND id != ?
		  )`, args...)
	if err != nil {
		return fmt.Errorf("prune status playlists: %w", err)
	}
	return nil
}

// SetRating stores a 1-5 star rating on an existing membership.
func (r *ItemRepository) SetRating(ctx context.Context, playlistID, movieID int64, rating int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE playlist_items SET user_rating = ?, updated_at = ?
		WHERE playlist_id = ? AND movie_id = ?`,
		rating, time.Now().UTC(), playlistID, movieID)
	if err != nil {
		return fmt.Errorf("set rating: %w", err)
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

// DeleteItem removes the membership for (playlistID, movieID). Returns
// true if a row was deleted.
func (r *ItemRepository) DeleteItem(ctx context.Context, playlistID, movieID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM playlist_items WHERE playlist_id = ? AND movie_id = ?`,
		playlistID, movieID)
	if err != nil {
		return false, fmt.Errorf("delete playlist item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListItemsForUserMovie returns every membership of this user referencing
// the movie, joined with the owning playlist's title and status flag.
// Used by tests and the engine's read-back paths to check the invariant.
func (r *ItemRepository) ListItemsForUserMovie(ctx context.Context, userID string, movieID int64) ([]models.PlaylistItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.playlist_id, i.movie_id, i.status, i.user_rating, i.added_at, i.updated_at
		FROM playlist_items i
		JOIN playlists p ON p.id = i.playlist_id
		WHERE p.user_id = ? AND i.movie_id = ?
		ORDER BY i.playlist_id`, userID, movieID)
	if err != nil {
		return nil, fmt.Errorf("list items for movie: %w", err)
	}
	defer rows.Close()

	var items []models.PlaylistItem
	for rows.Next() {
		var item models.PlaylistItem
		if err := rows.Scan(
			&item.ID, &item.PlaylistID, &item.MovieID, &item.Status,
			&item.UserRating, &item.AddedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
