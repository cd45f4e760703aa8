package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cinestack/models"
)

// PlaylistRepository provides access to the playlists table. Every query is
// scoped to an owning user; there is no cross-user read path.
type PlaylistRepository struct {
	db DBTX
}

// NewPlaylistRepository creates a playlist repository bound to db.
func NewPlaylistRepository(db DBTX) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

const playlistColumns = `p.id, p.user_id, p.title, p.description, p.is_status_playlist,
	p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM playlist_items i WHERE i.playlist_id = p.id),
	(SELECT COUNT(*) FROM playlist_items i WHERE i.playlist_id = p.id AND i.status = 'watched')`

// CreatePlaylist inserts a new playlist and fills in its id and timestamps.
func (r *PlaylistRepository) CreatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	now := time.Now().UTC()
	playlist.CreatedAt = now
	playlist.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO playlists (user_id, title, description, is_status_playlist, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		playlist.UserID, playlist.Title, playlist.Description,
		playlist.IsStatusPlaylist, playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert playlist: %w", err)
	}
	playlist.ID, err = res.LastInsertId()
	return err
}

// GetPlaylist returns a playlist owned by userID, or nil if it does not
// exist or belongs to someone else.
func (r *PlaylistRepository) GetPlaylist(ctx context.Context, userID string, id int64) (*models.Playlist, error) {
	return r.getPlaylist(ctx, `SELECT `+playlistColumns+` FROM playlists p
		WHERE p.id = ? AND p.user_id = ?`, id, userID)
}

// GetPlaylistByTitle returns the playlist with the given title owned by
// userID, or nil if absent. Titles are unique per user.
func (r *PlaylistRepository) GetPlaylistByTitle(ctx context.Context, userID, title string) (*models.Playlist, error) {
	return r.getPlaylist(ctx, `SELECT `+playlistColumns+` FROM playlists p
		WHERE p.user_id = ? AND p.title = ?`, userID, title)
}

// ListPlaylists returns all playlists owned by userID, most recently
// updated first.
func (r *PlaylistRepository) ListPlaylists(ctx context.Context, userID string) ([]models.Playlist, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+playlistColumns+` FROM playlists p
		WHERE p.user_id = ? ORDER BY p.updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var playlist models.Playlist
		if err := rows.Scan(
			&playlist.ID, &playlist.UserID, &playlist.Title, &playlist.Description,
			&playlist.IsStatusPlaylist, &playlist.CreatedAt, &playlist.UpdatedAt,
			&playlist.MovieCount, &playlist.WatchedCount); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}
	return playlists, rows.Err()
}

// UpdatePlaylist updates a playlist's title and description. Returns
// sql.ErrNoRows when the playlist is missing or not owned by userID.
func (r *PlaylistRepository) UpdatePlaylist(ctx context.Context, userID string, playlist *models.Playlist) error {
	playlist.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE playlists SET title = ?, description = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		playlist.Title, playlist.Description, playlist.UpdatedAt, playlist.ID, userID)
	if err != nil {
		return fmt.Errorf("update playlist: %w", err)
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

// MarkStatusPlaylist flags an existing playlist as a status playlist. Used
// as the repair path when a user already owns a custom playlist under one
// of the fixed titles.
func (r *PlaylistRepository) MarkStatusPlaylist(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE playlists SET is_status_playlist = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark status playlist: %w", err)
	}
	return nil
}

// TouchPlaylist bumps a playlist's updated_at.
func (r *PlaylistRepository) TouchPlaylist(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE playlists SET updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touch playlist: %w", err)
	}
	return nil
}

// DeletePlaylist removes a playlist owned by userID. Items are removed by
// the foreign-key cascade. Returns true if a row was deleted.
func (r *PlaylistRepository) DeletePlaylist(ctx context.Context, userID string, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete playlist: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *PlaylistRepository) getPlaylist(ctx context.Context, query string, args ...any) (*models.Playlist, error) {
	var playlist models.Playlist
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&playlist.ID, &playlist.UserID, &playlist.Title, &playlist.Description,
		&playlist.IsStatusPlaylist, &playlist.CreatedAt, &playlist.UpdatedAt,
		&playlist.MovieCount, &playlist.WatchedCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query playlist: %w", err)
	}
	return &playlist, nil
}
