package library

import (
	"context"
	"database/sql"
	"fmt"

	"cinestack/internal/database"
	"cinestack/models"
)

// setStatusTx synchronizes one (user, movie) pair to a new watch status
// inside an open transaction. On return the movie sits in exactly one of
// the user's four status playlists and every membership row referencing it
// carries the new status.
//
// Order matters: the denormalized status fans out before placement, so a
// reader inside a later snapshot never observes a surviving membership
// with a stale status.
func setStatusTx(ctx context.Context, tx *sql.Tx, userID string, movieID int64, status models.WatchStatus) error {
	spec, ok := models.StatusPlaylistFor(status)
	if !ok {
		return ErrInvalidStatus
	}

	playlists := database.NewPlaylistRepository(tx)
	items := database.NewItemRepository(tx)

	target, err := playlists.GetPlaylistByTitle(ctx, userID, spec.Title)
	if err != nil {
		return err
	}
	switch {
	case target == nil:
		target = &models.Playlist{
			UserID:           userID,
			Title:            spec.Title,
			Description:      spec.Description,
			IsStatusPlaylist: true,
		}
		if err := playlists.CreatePlaylist(ctx, target); err != nil {
			return fmt.Errorf("create status playlist %q: %w", spec.Title, err)
		}
	case !target.IsStatusPlaylist:
		// A user-created playlist already squats on the fixed title.
		// Claim it rather than failing the status change.
		if err := playlists.MarkStatusPlaylist(ctx, target.ID); err != nil {
			return err
		}
	}

	if _, err := items.UpdateStatusForUserMovie(ctx, userID, movieID, status); err != nil {
		return err
	}

	if err := items.UpsertItemStatus(ctx, target.ID, movieID, status); err != nil {
		return err
	}

	if err := items.DeleteFromOtherStatusPlaylists(ctx, userID, movieID, target.ID, models.StatusPlaylistTitles()); err != nil {
		return err
	}

	return playlists.TouchPlaylist(ctx, target.ID)
}

// ensureMovieTx verifies the movie exists inside the transaction.
func ensureMovieTx(ctx context.Context, tx *sql.Tx, movieID int64) error {
	movie, err := database.NewMovieRepository(tx).GetMovie(ctx, movieID)
	if err != nil {
		return err
	}
	if movie == nil {
		return ErrMovieNotFound
	}
	return nil
}
