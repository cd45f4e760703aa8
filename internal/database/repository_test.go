package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"cinestack/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDB(Config{DatabasePath: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err, "open test database")
	t.Cleanup(func() { db.Close() })
	return db.Connection()
}

func insertUser(t *testing.T, conn *sql.DB, id string) {
	t.Helper()
	err := NewUserRepository(conn).CreateUser(context.Background(), &models.User{
		ID:           id,
		Username:     "user-" + id,
		Email:        "user-" + id + "@example.com",
		PasswordHash: "x",
	})
	require.NoError(t, err)
}

func insertMovie(t *testing.T, conn *sql.DB, title string) int64 {
	t.Helper()
	movie := &models.Movie{Title: title, MediaType: models.MediaTypeMovie}
	require.NoError(t, NewMovieRepository(conn).CreateMovie(context.Background(), movie))
	return movie.ID
}

func insertPlaylist(t *testing.T, conn *sql.DB, userID, title string, isStatus bool) int64 {
	t.Helper()
	playlist := &models.Playlist{UserID: userID, Title: title, IsStatusPlaylist: isStatus}
	require.NoError(t, NewPlaylistRepository(conn).CreatePlaylist(context.Background(), playlist))
	return playlist.ID
}

func TestUserUniqueIndexesAreCaseInsensitive(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(conn)

	require.NoError(t, users.CreateUser(ctx, &models.User{
		ID: "u1", Username: "Alice", Email: "Alice@Example.com", PasswordHash: "x",
	}))

	err := users.CreateUser(ctx, &models.User{
		ID: "u2", Username: "alice", Email: "other@example.com", PasswordHash: "x",
	})
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err), "expected unique violation, got %v", err)

	err = users.CreateUser(ctx, &models.User{
		ID: "u3", Username: "bob", Email: "ALICE@example.com", PasswordHash: "x",
	})
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err))

	// Case-insensitive lookup finds the original row.
	found, err := users.GetUserByUsername(ctx, "ALICE")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, "u1", found.ID)
}

func TestMovieTMDBUniquePerMediaType(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	movies := NewMovieRepository(conn)

	tmdbID := int64(603)
	require.NoError(t, movies.CreateMovie(ctx, &models.Movie{
		Title: "The Matrix", MediaType: models.MediaTypeMovie, TMDBID: &tmdbID,
	}))

	// Same external id under the other kind is a different title.
	require.NoError(t, movies.CreateMovie(ctx, &models.Movie{
		Title: "The Matrix (Series)", MediaType: models.MediaTypeTV, TMDBID: &tmdbID,
	}))

	err := movies.CreateMovie(ctx, &models.Movie{
		Title: "The Matrix Again", MediaType: models.MediaTypeMovie, TMDBID: &tmdbID,
	})
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err))

	// Manual titles have no external id and do not collide.
	require.NoError(t, movies.CreateMovie(ctx, &models.Movie{Title: "Home Video", MediaType: models.MediaTypeMovie}))
	require.NoError(t, movies.CreateMovie(ctx, &models.Movie{Title: "Home Video 2", MediaType: models.MediaTypeMovie}))
}

func TestUpdateStatusForUserMovieFansOutToAllMemberships(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	items := NewItemRepository(conn)

	insertUser(t, conn, "u1")
	insertUser(t, conn, "u2")
	movieID := insertMovie(t, conn, "Heat")

	watched := insertPlaylist(t, conn, "u1", "Watched", true)
	custom1 := insertPlaylist(t, conn, "u1", "Crime", false)
	custom2 := insertPlaylist(t, conn, "u1", "Rewatch", false)
	foreign := insertPlaylist(t, conn, "u2", "Theirs", false)

	for _, playlistID := range []int64{watched, custom1, custom2, foreign} {
		require.NoError(t, items.UpsertItemStatus(ctx, playlistID, movieID, models.StatusToWatch))
	}

	affected, err := items.UpdateStatusForUserMovie(ctx, "u1", movieID, models.StatusWatched)
	require.NoError(t, err)
	require.EqualValues(t, 3, affected, "only the owner's memberships change")

	for _, playlistID := range []int64{watched, custom1, custom2} {
		item, err := items.GetItem(ctx, playlistID, movieID)
		require.NoError(t, err)
		require.NotNil(t, item)
		require.Equal(t, models.StatusWatched, item.Status)
	}

	// The other user's membership is untouched.
	item, err := items.GetItem(ctx, foreign, movieID)
	require.NoError(t, err)
	require.Equal(t, models.StatusToWatch, item.Status)
}

func TestDeleteFromOtherStatusPlaylists(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	items := NewItemRepository(conn)

	insertUser(t, conn, "u1")
	movieID := insertMovie(t, conn, "Heat")

	watched := insertPlaylist(t, conn, "u1", "Watched", true)
	watching := insertPlaylist(t, conn, "u1", "Watching", true)
	toWatch := insertPlaylist(t, conn, "u1", "To Watch", true)
	custom := insertPlaylist(t, conn, "u1", "Crime", false)

	for _, playlistID := range []int64{watched, watching, toWatch, custom} {
		require.NoError(t, items.UpsertItemStatus(ctx, playlistID, movieID, models.StatusWatched))
	}

	err := items.DeleteFromOtherStatusPlaylists(ctx, "u1", movieID, watched, models.StatusPlaylistTitles())
	require.NoError(t, err)

	remaining, err := items.ListItemsForUserMovie(ctx, "u1", movieID)
	require.NoError(t, err)
	require.Len(t, remaining, 2)

	kept := map[int64]bool{}
	for _, item := range remaining {
		kept[item.PlaylistID] = true
	}
	require.True(t, kept[watched], "target status membership survives")
	require.True(t, kept[custom], "custom membership survives")
}

func TestListItemsJoinsMovieData(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	items := NewItemRepository(conn)

	insertUser(t, conn, "u1")
	movieID := insertMovie(t, conn, "Heat")
	playlistID := insertPlaylist(t, conn, "u1", "Crime", false)

	require.NoError(t, items.UpsertItemStatus(ctx, playlistID, movieID, models.StatusWatching))

	listed, err := items.ListItems(ctx, playlistID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].Movie)
	require.Equal(t, "Heat", listed[0].Movie.Title)
	require.Equal(t, models.StatusWatching, listed[0].Status)
}

func TestDeletingMovieCascadesToMemberships(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	items := NewItemRepository(conn)

	insertUser(t, conn, "u1")
	movieID := insertMovie(t, conn, "Heat")
	playlistID := insertPlaylist(t, conn, "u1", "Crime", false)
	require.NoError(t, items.UpsertItemStatus(ctx, playlistID, movieID, models.StatusToWatch))

	deleted, err := NewMovieRepository(conn).DeleteMovie(ctx, movieID)
	require.NoError(t, err)
	require.True(t, deleted)

	item, err := items.GetItem(ctx, playlistID, movieID)
	require.NoError(t, err)
	require.Nil(t, item, "membership should cascade away with the movie")
}

func TestPlaylistTitleUniquePerUser(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	playlists := NewPlaylistRepository(conn)

	insertUser(t, conn, "u1")
	insertUser(t, conn, "u2")
	insertPlaylist(t, conn, "u1", "Crime", false)

	err := playlists.CreatePlaylist(ctx, &models.Playlist{UserID: "u1", Title: "Crime"})
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err))

	// A different user may reuse the title.
	require.NoError(t, playlists.CreatePlaylist(ctx, &models.Playlist{UserID: "u2", Title: "Crime"}))
}

func TestListPlaylistsIncludesCounts(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	items := NewItemRepository(conn)

	insertUser(t, conn, "u1")
	playlistID := insertPlaylist(t, conn, "u1", "Crime", false)
	heat := insertMovie(t, conn, "Heat")
	ronin := insertMovie(t, conn, "Ronin")

	require.NoError(t, items.UpsertItemStatus(ctx, playlistID, heat, models.StatusWatched))
	require.NoError(t, items.UpsertItemStatus(ctx, playlistID, ronin, models.StatusToWatch))

	playlists, err := NewPlaylistRepository(conn).ListPlaylists(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, playlists, 1)
	require.Equal(t, 2, playlists[0].MovieCount)
	require.Equal(t, 1, playlists[0].WatchedCount)
}
