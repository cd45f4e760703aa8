package database

import (
	"context"
	"fmt"
	"time"

	"cinestack/models"
)

// EpisodeRepository provides access to the episode_progress table.
type EpisodeRepository struct {
	db DBTX
}

// NewEpisodeRepository creates an episode progress repository bound to db.
func NewEpisodeRepository(db DBTX) *EpisodeRepository {
	return &EpisodeRepository{db: db}
}

// UpsertProgress creates or replaces the watch record for
// (user, series, season, episode) and returns the stored row.
func (r *EpisodeRepository) UpsertProgress(ctx context.Context, progress *models.EpisodeProgress) error {
	progress.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO episode_progress (user_id, series_id, season, episode, status, notes, rating, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, series_id, season, episode)
		DO UPDATE SET status = excluded.status, notes = excluded.notes,
			rating = excluded.rating, updated_at = excluded.updated_at`,
		progress.UserID, progress.SeriesID, progress.Season, progress.Episode,
		progress.Status, progress.Notes, progress.Rating, progress.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert episode progress: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT id FROM episode_progress
		WHERE user_id = ? AND series_id = ? AND season = ? AND episode = ?`,
		progress.UserID, progress.SeriesID, progress.Season, progress.Episode).Scan(&progress.ID)
	if err != nil {
		return fmt.Errorf("read back episode progress id: %w", err)
	}
	return nil
}

// ProgressFilter narrows ListProgress. Zero values mean "no filter".
type ProgressFilter struct {
	SeriesID int64
	Season   int
	Episode  int
}

// ListProgress returns a user's episode records matching the filter,
// ordered by (series, season, episode).
func (r *EpisodeRepository) ListProgress(ctx context.Context, userID string, filter ProgressFilter) ([]models.EpisodeProgress, error) {
	query := `SELECT id, user_id, series_id, season, episode, status, notes, rating, updated_at
		FROM episode_progress WHERE user_id = ?`
	args := []any{userID}

	if filter.SeriesID != 0 {
		query += ` AND series_id = ?`
		args = append(args, filter.SeriesID)
	}
	if filter.Season != 0 {
		query += ` AND season = ?`
		args = append(args, filter.Season)
	}
	if filter.Episode != 0 {
		query += ` AND episode = ?`
		args = append(args, filter.Episode)
	}
	query += ` ORDER BY series_id, season, episode`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list episode progress: %w", err)
	}
	defer rows.Close()

	var records []models.EpisodeProgress
	for rows.Next() {
		var progress models.EpisodeProgress
		if err := rows.Scan(
			&progress.ID, &progress.UserID, &progress.SeriesID, &progress.Season,
			&progress.Episode, &progress.Status, &progress.Notes, &progress.Rating,
			&progress.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan episode progress: %w", err)
		}
		records = append(records, progress)
	}
	return records, rows.Err()
}

// DeleteProgress removes one record owned by userID. Returns true if a row
// was deleted.
func (r *EpisodeRepository) DeleteProgress(ctx context.Context, userID string, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM episode_progress WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete episode progress: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
