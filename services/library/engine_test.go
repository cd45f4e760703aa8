package library

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"cinestack/internal/database"
	"cinestack/models"
)

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()

	db, err := database.NewDB(database.Config{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewService(db.Connection()), db.Connection()
}

func createTestUser(t *testing.T, conn *sql.DB, id string) {
	t.Helper()
	user := &models.User{
		ID:           id,
		Username:     "user-" + id,
		Email:        "user-" + id + "@example.com",
		PasswordHash: "x",
	}
	if err := database.NewUserRepository(conn).CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func createTestMovie(t *testing.T, conn *sql.DB, title string) int64 {
	t.Helper()
	movie := &models.Movie{Title: title, MediaType: models.MediaTypeMovie}
	if err := database.NewMovieRepository(conn).CreateMovie(context.Background(), movie); err != nil {
		t.Fatalf("create movie: %v", err)
	}
	return movie.ID
}

// statusMemberships returns which of the four status playlists hold the
// movie, keyed by playlist title.
func statusMemberships(t *testing.T, conn *sql.DB, userID string, movieID int64) map[string]models.WatchStatus {
	t.Helper()
	ctx := context.Background()
	playlists := database.NewPlaylistRepository(conn)
	items := database.NewItemRepository(conn)

	found := make(map[string]models.WatchStatus)
	for _, title := range models.StatusPlaylistTitles() {
		playlist, err := playlists.GetPlaylistByTitle(ctx, userID, title)
		if err != nil {
			t.Fatalf("get playlist %q: %v", title, err)
		}
		if playlist == nil {
			continue
		}
		item, err := items.GetItem(ctx, playlist.ID, movieID)
		if err != nil {
			t.Fatalf("get item in %q: %v", title, err)
		}
		if item != nil {
			found[title] = item.Status
		}
	}
	return found
}

func TestSetStatusPlacesMovieInSinglePlaylist(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	createTestUser(t, conn, "u1")
	movieID := createTestMovie(t, conn, "Heat")

	if err := svc.SetStatus(ctx, "u1", movieID, models.StatusWatching); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	found := statusMemberships(t, conn, "u1", movieID)
	if len(found) != 1 {
		t.Fatalf("expected movie in exactly 1 status playlist, found %d: %v", len(found), found)
	}
	if status, ok := found["Watching"]; !ok || status != models.StatusWatching {
		t.Errorf("expected movie in Watching with status watching, got %v", found)
	}
}

func TestSetStatusMovesBetweenPlaylists(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	createTestUser(t, conn, "u1")
	movieID := createTestMovie(t, conn, "Heat")

	transitions := []struct {
		status models.WatchStatus
		title  string
	}{
		{models.StatusToWatch, "To Watch"},
		{models.StatusWatching, "Watching"},
		{models.StatusWatched, "Watched"},
		{models.StatusDidNotFinish, "Did Not Finish"},
		{models.StatusToWatch, "To Watch"},
	}
	for _, tr := range transitions {
		if err := svc.SetStatus(ctx, "u1", movieID, tr.status); err != nil {
			t.Fatalf("SetStatus(%s): %v", tr.status, err)
		}
		found := statusMemberships(t, conn, "u1", movieID)
		if len(found) != 1 {
			t.Fatalf("after %s: expected 1 membership, found %v", tr.status, found)
		}
		if _, ok := found[tr.title]; !ok {
			t.Errorf("after %s: expected membership in %q, found %v", tr.status, tr.title, found)
		}
	}
}

func TestSetStatusIsIdempotent(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	createTestUser(t, conn, "u1")
	movieID := createTestMovie(t, conn, "Heat")

	if err := svc.SetStatus(ctx, "u1", movieID, models.StatusWatched); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := svc.SetStatus(ctx, "u1", movieID, models.StatusWatched); err != nil {
		t.Fatalf("SetStatus again: %v", err)
	}

	found := statusMemberships(t, conn, "u1", movieID)
	if len(found) != 1 {
		t.Fatalf("expected 1 membership after repeated SetStatus, found %v", found)
	}
	if found["Watched"] != models.StatusWatched {
		t.Errorf("expected watched status, got %v", found)
	}
}

func TestSetStatusFansOutToCustomPlaylists(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	createTestUser(t, conn, "u1")
	movieID := createTestMovie(t, conn, "Heat")

	custom, err := svc.CreatePlaylist(ctx, "u1", PlaylistInput{Title: "My List"})
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if _, err := svc.AddToPlaylist(ctx, "u1", custom.ID, movieID, models.StatusToWatch); err != nil {
		t.Fatalf("AddToPlaylist: %v", err)
	}

	if err := svc.SetStatus(ctx, "u1", movieID, models.StatusWatched); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	// Custom membership survives with the refreshed status.
	item, err := database.NewItemRepository(conn).GetItem(ctx, custom.ID, movieID)
	if err != nil {
		t.Fatalf("get custom item: %v", err)
	}
	if item == nil {
		t.Fatal("custom playlist membership disappeared after status change")
	}
	if item.Status != models.StatusWatched {
		t.Errorf("custom membership status = %s, want watched", item.Status)
	}

	found := statusMemberships(t, conn, "u1", movieID)
	if len(found) != 1 || found["Watched"] != models.StatusWatched {
		t.Errorf("expected single Watched membership, found %v", found)
	}
}

func TestSetStatusInvalidValue(t *testing.T) {
	svc, conn := newTestService(t)
	createTestUser(t, conn, "u1")
	movieID := createTestMovie(t, conn, "Heat")

	err := svc.SetStatus(context.Background(), "u1", movieID, "binged")
	if err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestSetStatusUnknownMovie(t *testing.T) {
	svc, conn := newTestService(t)
	createTestUser(t, conn, "u1")

	err := svc.SetStatus(context.Background(), "u1", 9999, models.StatusWatched)
	if err != ErrMovieNotFound {
		t.Fatalf("expected ErrMovieNotFound, got %v", err)
	}
}

func TestSetStatusClaimsSquattedTitle(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	createTestUser(t, conn, "u1")
	movieID := createTestMovie(t, conn, "Heat")

	// A user-created playlist already occupies the fixed title.
	squatter, err := svc.CreatePlaylist(ctx, "u1", PlaylistInput{Title: "Watched"})
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	if err := svc.SetStatus(ctx, "u1", movieID, models.StatusWatched); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	repaired, err := database.NewPlaylistRepository(conn).GetPlaylist(ctx, "u1", squatter.ID)
	if err != nil {
		t.Fatalf("get playlist: %v", err)
	}
	if !repaired.IsStatusPlaylist {
		t.Error("expected squatted playlist to be claimed as a status playlist")
	}
}

func TestUsersAreIsolated(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	createTestUser(t, conn, "u1")
	createTestUser(t, conn, "u2")
	movieID := createTestMovie(t, conn, "Heat")

	if err := svc.SetStatus(ctx, "u1", movieID, models.StatusWatched); err != nil {
		t.Fatalf("SetStatus u1: %v", err)
	}
	if err := svc.SetStatus(ctx, "u2", movieID, models.StatusWatching); err != nil {
		t.Fatalf("SetStatus u2: %v", err)
	}

	if found := statusMemberships(t, conn, "u1", movieID); found["Watched"] != models.StatusWatched || len(found) != 1 {
		t.Errorf("u1 state disturbed by u2: %v", found)
	}
	if found := statusMemberships(t, conn, "u2", movieID); found["Watching"] != models.StatusWatching || len(found) != 1 {
		t.Errorf("u2 state wrong: %v", found)
	}
}

func TestConcurrentSetStatusLeavesConsistentState(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	createTestUser(t, conn, "u1")
	movieID := createTestMovie(t, conn, "Heat")

	statuses := []models.WatchStatus{
		models.StatusToWatch, models.StatusWatching,
		models.StatusWatched, models.StatusDidNotFinish,
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(status models.WatchStatus) {
			defer wg.Done()
			if err := svc.SetStatus(ctx, "u1", movieID, status); err != nil {
				errs <- fmt.Errorf("SetStatus(%s): %w", status, err)
			}
		}(statuses[i%len(statuses)])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	// Exactly one writer's final state survives; the invariant holds
	// regardless of which.
	found := statusMemberships(t, conn, "u1", movieID)
	if len(found) != 1 {
		t.Fatalf("expected exactly 1 status membership after concurrent writes, found %v", found)
	}
	for title, status := range found {
		spec, ok := models.StatusPlaylistFor(status)
		if !ok || spec.Title != title {
			t.Errorf("membership title %q does not match its status %q", title, status)
		}
	}
}
