package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gorilla/mux"

	"cinestack/internal/auth"
	"cinestack/internal/database"
	"cinestack/models"
	"cinestack/services/library"
)

// newPlaylistsRouter wires a playlists handler to a real store. The test
// middleware trusts the X-Test-User header instead of a session token.
func newPlaylistsRouter(t *testing.T) (*mux.Router, *sql.DB) {
	t.Helper()
	db, err := database.NewDB(database.Config{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	conn := db.Connection()

	svc := library.NewService(conn)
	h := NewPlaylistsHandler(svc)

	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get("X-Test-User")
			if userID == "" {
				userID = "u1"
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), auth.ContextKeyUserID, userID)))
		})
	})
	router.HandleFunc("/api/playlists", h.List).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists/{id:[0-9]+}", h.Update).Methods(http.MethodPut)
	router.HandleFunc("/api/playlists/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id:[0-9]+}/items", h.Items).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists/{id:[0-9]+}/add_movie", h.AddMovie).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id:[0-9]+}/remove_movie/{movieID:[0-9]+}", h.RemoveMovie).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id:[0-9]+}/update_item_status/{movieID:[0-9]+}", h.UpdateItemStatus).Methods(http.MethodPut)
	router.HandleFunc("/api/playlists/{id:[0-9]+}/rate/{movieID:[0-9]+}", h.RateMovie).Methods(http.MethodPut)

	seedUser(t, conn, "u1")
	if err := svc.EnsureStatusPlaylists(context.Background(), "u1"); err != nil {
		t.Fatalf("seed status playlists: %v", err)
	}
	return router, conn
}

func seedUser(t *testing.T, conn *sql.DB, id string) {
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

func seedMovie(t *testing.T, conn *sql.DB, title string) int64 {
	t.Helper()
	movie := &models.Movie{Title: title, MediaType: models.MediaTypeMovie}
	if err := database.NewMovieRepository(conn).CreateMovie(context.Background(), movie); err != nil {
		t.Fatalf("create movie: %v", err)
	}
	return movie.ID
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s response: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec
}

func TestCreatePlaylistEndpoint(t *testing.T) {
	router, _ := newPlaylistsRouter(t)

	var created models.Playlist
	rec := doJSON(t, router, http.MethodPost, "/api/playlists", library.PlaylistInput{Title: "My List"}, &created)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}
	if created.Title != "My List" || created.IsStatusPlaylist {
		t.Errorf("created = %+v", created)
	}

	if rec := doJSON(t, router, http.MethodPost, "/api/playlists", library.PlaylistInput{Title: "My List"}, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate title: status %d, want 400", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodPost, "/api/playlists", library.PlaylistInput{Title: "  "}, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("blank title: status %d, want 400", rec.Code)
	}
}

func TestAddMovieEndpoint(t *testing.T) {
	router, conn := newPlaylistsRouter(t)
	movieID := seedMovie(t, conn, "Heat")

	var custom models.Playlist
	doJSON(t, router, http.MethodPost, "/api/playlists", library.PlaylistInput{Title: "My List"}, &custom)
	customPath := "/api/playlists/" + itoa(custom.ID) + "/add_movie"

	var item models.PlaylistItem
	rec := doJSON(t, router, http.MethodPost, customPath, AddMovieRequest{MovieID: movieID}, &item)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: status %d, body %s", rec.Code, rec.Body.String())
	}
	if item.Status != models.StatusToWatch {
		t.Errorf("default status = %s, want to_watch", item.Status)
	}

	// A second add to a custom playlist conflicts.
	if rec := doJSON(t, router, http.MethodPost, customPath, AddMovieRequest{MovieID: movieID}, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate add: status %d, want 400", rec.Code)
	}

	if rec := doJSON(t, router, http.MethodPost, customPath, AddMovieRequest{}, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing movieId: status %d, want 400", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodPost, customPath, AddMovieRequest{MovieID: 9999}, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown movie: status %d, want 404", rec.Code)
	}
}

func TestAddMovieToStatusPlaylistIsIdempotentEndpoint(t *testing.T) {
	router, conn := newPlaylistsRouter(t)
	movieID := seedMovie(t, conn, "Heat")
	watchedID := findStatusPlaylist(t, router, "Watched")

	path := "/api/playlists/" + itoa(watchedID) + "/add_movie"
	body := AddMovieRequest{MovieID: movieID, Status: models.StatusWatched}
	if rec := doJSON(t, router, http.MethodPost, path, body, nil); rec.Code != http.StatusCreated {
		t.Fatalf("first add: status %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodPost, path, body, nil); rec.Code != http.StatusCreated {
		t.Errorf("second add to status playlist: status %d, want 201", rec.Code)
	}
}

func TestUpdateItemStatusEndpoint(t *testing.T) {
	router, conn := newPlaylistsRouter(t)
	movieID := seedMovie(t, conn, "Heat")

	var custom models.Playlist
	doJSON(t, router, http.MethodPost, "/api/playlists", library.PlaylistInput{Title: "My List"}, &custom)
	doJSON(t, router, http.MethodPost, "/api/playlists/"+itoa(custom.ID)+"/add_movie", AddMovieRequest{MovieID: movieID}, nil)

	var item models.PlaylistItem
	rec := doJSON(t, router, http.MethodPut, "/api/playlists/"+itoa(custom.ID)+"/update_item_status/"+itoa(movieID), SetStatusRequest{Status: models.StatusWatched}, &item)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status: %d, body %s", rec.Code, rec.Body.String())
	}
	if item.Status != models.StatusWatched {
		t.Errorf("status = %s, want watched", item.Status)
	}

	// A movie that is not in the named playlist is a 404.
	otherID := seedMovie(t, conn, "Ronin")
	if rec := doJSON(t, router, http.MethodPut, "/api/playlists/"+itoa(custom.ID)+"/update_item_status/"+itoa(otherID), SetStatusRequest{Status: models.StatusWatched}, nil); rec.Code != http.StatusNotFound {
		t.Errorf("non-member: status %d, want 404", rec.Code)
	}

	if rec := doJSON(t, router, http.MethodPut, "/api/playlists/"+itoa(custom.ID)+"/update_item_status/"+itoa(movieID), SetStatusRequest{Status: "binged"}, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad status: status %d, want 400", rec.Code)
	}
}

func TestRateMovieEndpoint(t *testing.T) {
	router, conn := newPlaylistsRouter(t)
	movieID := seedMovie(t, conn, "Heat")
	watchedID := findStatusPlaylist(t, router, "Watched")

	path := "/api/playlists/" + itoa(watchedID) + "/rate/" + itoa(movieID)

	var item models.PlaylistItem
	rec := doJSON(t, router, http.MethodPut, path, RateRequest{Rating: 5}, &item)
	if rec.Code != http.StatusOK {
		t.Fatalf("rate: status %d, body %s", rec.Code, rec.Body.String())
	}
	if item.UserRating == nil || *item.UserRating != 5 {
		t.Errorf("rating = %v, want 5", item.UserRating)
	}

	if rec := doJSON(t, router, http.MethodPut, path, RateRequest{Rating: 6}, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("out of range rating: status %d, want 400", rec.Code)
	}
}

func TestForeignPlaylistEndpointLooksMissing(t *testing.T) {
	router, conn := newPlaylistsRouter(t)
	seedUser(t, conn, "u2")

	var mine models.Playlist
	doJSON(t, router, http.MethodPost, "/api/playlists", library.PlaylistInput{Title: "Mine"}, &mine)

	req := httptest.NewRequest(http.MethodGet, "/api/playlists/"+itoa(mine.ID), nil)
	req.Header.Set("X-Test-User", "u2")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign get: status %d, want 404", rec.Code)
	}
}

func TestStatusPlaylistImmutableEndpoint(t *testing.T) {
	router, _ := newPlaylistsRouter(t)
	watchedID := findStatusPlaylist(t, router, "Watched")

	if rec := doJSON(t, router, http.MethodPut, "/api/playlists/"+itoa(watchedID), library.PlaylistInput{Title: "Renamed"}, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("rename status playlist: status %d, want 400", rec.Code)
	}
	req := httptest.NewRequest(http.MethodDelete, "/api/playlists/"+itoa(watchedID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("delete status playlist: status %d, want 400", rec.Code)
	}
}

// findStatusPlaylist lists the caller's playlists and returns the id of
// the fixed playlist with the given title, creating the set on first use.
func findStatusPlaylist(t *testing.T, router *mux.Router, title string) int64 {
	t.Helper()
	var playlists []models.Playlist
	rec := doJSON(t, router, http.MethodGet, "/api/playlists", nil, &playlists)
	if rec.Code != http.StatusOK {
		t.Fatalf("list playlists: status %d", rec.Code)
	}
	for _, p := range playlists {
		if p.Title == title && p.IsStatusPlaylist {
			return p.ID
		}
	}
	t.Fatalf("status playlist %q not found in %+v", title, playlists)
	return 0
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
