package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cinestack/internal/database"
	"cinestack/models"
)

var (
	ErrInvalidStatus           = errors.New("invalid watch status")
	ErrInvalidRating           = errors.New("rating must be between 1 and 5")
	ErrTitleRequired           = errors.New("playlist title is required")
	ErrDuplicateTitle          = errors.New("a playlist with this title already exists")
	ErrDuplicateItem           = errors.New("movie already in playlist")
	ErrPlaylistNotFound        = errors.New("playlist not found")
	ErrMovieNotFound           = errors.New("movie not found")
	ErrItemNotFound            = errors.New("movie not in playlist")
	ErrStatusPlaylistImmutable = errors.New("status playlists cannot be modified")
)

// Service owns playlists, their memberships, and the status
// synchronization logic that keeps the per-(user, movie) watch status
// consistent across all of them. Every multi-row mutation runs in a single
// transaction; the store serializes writers, so concurrent status changes
// for the same movie apply one at a time.
type Service struct {
	db        *sql.DB
	playlists *database.PlaylistRepository
	items     *database.ItemRepository
}

// NewService creates a library service on the given connection.
func NewService(db *sql.DB) *Service {
	return &Service{
		db:        db,
		playlists: database.NewPlaylistRepository(db),
		items:     database.NewItemRepository(db),
	}
}

func (s *Service) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// SetStatus moves a movie to a new watch status for this user: the status
// value is written to every membership referencing the movie, the movie is
// placed in the matching status playlist, and it is removed from the other
// three. Idempotent.
func (s *Service) SetStatus(ctx context.Context, userID string, movieID int64, status models.WatchStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureMovieTx(ctx, tx, movieID); err != nil {
			return err
		}
		return setStatusTx(ctx, tx, userID, movieID, status)
	})
}

// AddToPlaylist adds a movie to a playlist. Adding to a status playlist is
// a status change, not a membership add, and is therefore idempotent;
// adding to a custom playlist twice is a conflict.
func (s *Service) AddToPlaylist(ctx context.Context, userID string, playlistID, movieID int64, status models.WatchStatus) (*models.PlaylistItem, error) {
	if status == "" {
		status = models.StatusToWatch
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var item *models.PlaylistItem
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		playlists := database.NewPlaylistRepository(tx)
		items := database.NewItemRepository(tx)

		playlist, err := playlists.GetPlaylist(ctx, userID, playlistID)
		if err != nil {
			return err
		}
		if playlist == nil {
			return ErrPlaylistNotFound
		}
		if err := ensureMovieTx(ctx, tx, movieID); err != nil {
			return err
		}

		if playlist.IsStatusPlaylist {
			if err := setStatusTx(ctx, tx, userID, movieID, status); err != nil {
				return err
			}
			// The synchronization may have landed the membership in a
			// different status playlist than the one addressed.
			spec, _ := models.StatusPlaylistFor(status)
			target, err := playlists.GetPlaylistByTitle(ctx, userID, spec.Title)
			if err != nil {
				return err
			}
			item, err = items.GetItem(ctx, target.ID, movieID)
			return err
		}

		existing, err := items.GetItem(ctx, playlistID, movieID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicateItem
		}

		item = &models.PlaylistItem{PlaylistID: playlistID, MovieID: movieID, Status: status}
		if err := items.CreateItem(ctx, item); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrDuplicateItem
			}
			return err
		}
		return playlists.TouchPlaylist(ctx, playlistID)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItemStatus changes the watch status of a movie via one of its
// playlist memberships. The item must exist in the named playlist; the
// change then propagates globally, moving status-playlist membership
// regardless of which playlist the edit came from.
func (s *Service) UpdateItemStatus(ctx context.Context, userID string, playlistID, movieID int64, status models.WatchStatus) (*models.PlaylistItem, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var item *models.PlaylistItem
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		playlists := database.NewPlaylistRepository(tx)
		items := database.NewItemRepository(tx)

		playlist, err := playlists.GetPlaylist(ctx, userID, playlistID)
		if err != nil {
			return err
		}
		if playlist == nil {
			return ErrPlaylistNotFound
		}

		existing, err := items.GetItem(ctx, playlistID, movieID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrItemNotFound
		}

		if err := setStatusTx(ctx, tx, userID, movieID, status); err != nil {
			return err
		}

		item, err = items.GetItem(ctx, playlistID, movieID)
		if err != nil {
			return err
		}
		if item == nil {
			// The edited playlist was a status playlist for a different
			// bucket; report the membership's new home.
			spec, _ := models.StatusPlaylistFor(status)
			target, err := playlists.GetPlaylistByTitle(ctx, userID, spec.Title)
			if err != nil {
				return err
			}
			item, err = items.GetItem(ctx, target.ID, movieID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveFromPlaylist deletes one membership. No status recompute happens;
// removing a movie from a custom playlist leaves its status buckets alone.
func (s *Service) RemoveFromPlaylist(ctx context.Context, userID string, playlistID, movieID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		playlists := database.NewPlaylistRepository(tx)

		playlist, err := playlists.GetPlaylist(ctx, userID, playlistID)
		if err != nil {
			return err
		}
		if playlist == nil {
			return ErrPlaylistNotFound
		}

		deleted, err := database.NewItemRepository(tx).DeleteItem(ctx, playlistID, movieID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrItemNotFound
		}
		return playlists.TouchPlaylist(ctx, playlistID)
	})
}

// RateItem stores a 1-5 star rating on a membership. A missing membership
// in a custom playlist is created with the default status first; in a
// status playlist the create is a status transition and goes through the
// synchronization.
func (s *Service) RateItem(ctx context.Context, userID string, playlistID, movieID int64, rating int) (*models.PlaylistItem, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	var item *models.PlaylistItem
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		playlists := database.NewPlaylistRepository(tx)
		items := database.NewItemRepository(tx)

		playlist, err := playlists.GetPlaylist(ctx, userID, playlistID)
		if err != nil {
			return err
		}
		if playlist == nil {
			return ErrPlaylistNotFound
		}
		if err := ensureMovieTx(ctx, tx, movieID); err != nil {
			return err
		}

		existing, err := items.GetItem(ctx, playlistID, movieID)
		if err != nil {
			return err
		}
		switch {
		case existing == nil && playlist.IsStatusPlaylist:
			// Creating a membership in a status bucket is a status
			// transition; run the full synchronization so the movie
			// cannot end up in two buckets at once.
			status, ok := models.StatusForPlaylistTitle(playlist.Title)
			if !ok {
				status = models.StatusToWatch
			}
			if err := setStatusTx(ctx, tx, userID, movieID, status); err != nil {
				return err
			}
			if err := items.SetRating(ctx, playlistID, movieID, rating); err != nil {
				return err
			}
		case existing == nil:
			existing = &models.PlaylistItem{
				PlaylistID: playlistID,
				MovieID:    movieID,
				Status:     models.StatusToWatch,
				UserRating: &rating,
			}
			if err := items.CreateItem(ctx, existing); err != nil {
				return err
			}
		default:
			if err := items.SetRating(ctx, playlistID, movieID, rating); err != nil {
				return err
			}
		}

		if err := playlists.TouchPlaylist(ctx, playlistID); err != nil {
			return err
		}
		item, err = items.GetItem(ctx, playlistID, movieID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// PlaylistInput carries user-editable playlist fields.
type PlaylistInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreatePlaylist creates a custom playlist for the user.
func (s *Service) CreatePlaylist(ctx context.Context, userID string, input PlaylistInput) (*models.Playlist, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	playlist := &models.Playlist{
		UserID:      userID,
		Title:       title,
		Description: input.Description,
	}
	if err := s.playlists.CreatePlaylist(ctx, playlist); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateTitle
		}
		return nil, err
	}
	return playlist, nil
}

// ListPlaylists returns all of the user's playlists with their progress
// counts, most recently updated first.
func (s *Service) ListPlaylists(ctx context.Context, userID string) ([]models.Playlist, error) {
	return s.playlists.ListPlaylists(ctx, userID)
}

// GetPlaylist returns one playlist owned by the user. Foreign playlists
// are indistinguishable from missing ones.
func (s *Service) GetPlaylist(ctx context.Context, userID string, playlistID int64) (*models.Playlist, error) {
	playlist, err := s.playlists.GetPlaylist(ctx, userID, playlistID)
	if err != nil {
		return nil, err
	}
	if playlist == nil {
		return nil, ErrPlaylistNotFound
	}
	return playlist, nil
}

// ListItems returns a playlist's memberships with their movie data.
func (s *Service) ListItems(ctx context.Context, userID string, playlistID int64) ([]models.PlaylistItem, error) {
	if _, err := s.GetPlaylist(ctx, userID, playlistID); err != nil {
		return nil, err
	}
	return s.items.ListItems(ctx, playlistID)
}

// UpdatePlaylist renames a custom playlist. Status playlists carry fixed
// titles and reject edits.
func (s *Service) UpdatePlaylist(ctx context.Context, userID string, playlistID int64, input PlaylistInput) (*models.Playlist, error) {
	playlist, err := s.GetPlaylist(ctx, userID, playlistID)
	if err != nil {
		return nil, err
	}
	if playlist.IsStatusPlaylist {
		return nil, ErrStatusPlaylistImmutable
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	playlist.Title = title
	playlist.Description = input.Description

	if err := s.playlists.UpdatePlaylist(ctx, userID, playlist); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateTitle
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlaylistNotFound
		}
		return nil, err
	}
	return playlist, nil
}

// DeletePlaylist removes a custom playlist and all its memberships.
func (s *Service) DeletePlaylist(ctx context.Context, userID string, playlistID int64) error {
	playlist, err := s.GetPlaylist(ctx, userID, playlistID)
	if err != nil {
		return err
	}
	if playlist.IsStatusPlaylist {
		return ErrStatusPlaylistImmutable
	}

	deleted, err := s.playlists.DeletePlaylist(ctx, userID, playlistID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrPlaylistNotFound
	}
	return nil
}

// EnsureStatusPlaylists creates any of the four status playlists the user
// is missing. Called at registration; the engine also repairs lazily on
// first status transition.
func (s *Service) EnsureStatusPlaylists(ctx context.Context, userID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		playlists := database.NewPlaylistRepository(tx)
		for _, spec := range models.StatusPlaylists {
			existing, err := playlists.GetPlaylistByTitle(ctx, userID, spec.Title)
			if err != nil {
				return err
			}
			if existing == nil {
				playlist := &models.Playlist{
					UserID:           userID,
					Title:            spec.Title,
					Description:      spec.Description,
					IsStatusPlaylist: true,
				}
				if err := playlists.CreatePlaylist(ctx, playlist); err != nil {
					return err
				}
			} else if !existing.IsStatusPlaylist {
				if err := playlists.MarkStatusPlaylist(ctx, existing.ID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
