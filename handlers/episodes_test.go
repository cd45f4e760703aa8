package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"

	"cinestack/internal/auth"
	"cinestack/internal/database"
	"cinestack/models"
	"cinestack/services/progress"
)

// newEpisodesRouter wires an episodes handler to a real store. The test
// middleware trusts the X-Test-User header instead of a session token.
func newEpisodesRouter(t *testing.T) (*mux.Router, *sql.DB) {
	t.Helper()
	db, err := database.NewDB(database.Config{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	conn := db.Connection()

	svc := progress.NewService(database.NewEpisodeRepository(conn), database.NewMovieRepository(conn))
	h := NewEpisodesHandler(svc)

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
	router.HandleFunc("/api/episodes/progress", h.List).Methods(http.MethodGet)
	router.HandleFunc("/api/episodes/progress", h.Upsert).Methods(http.MethodPost)
	router.HandleFunc("/api/episodes/progress/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)

	seedUser(t, conn, "u1")
	return router, conn
}

func seedSeries(t *testing.T, conn *sql.DB, title string) int64 {
	t.Helper()
	movie := &models.Movie{Title: title, MediaType: models.MediaTypeTV}
	if err := database.NewMovieRepository(conn).CreateMovie(context.Background(), movie); err != nil {
		t.Fatalf("create series: %v", err)
	}
	return movie.ID
}

func listProgress(t *testing.T, router *mux.Router, query string) []models.EpisodeProgress {
	t.Helper()
	var records []models.EpisodeProgress
	rec := doJSON(t, router, http.MethodGet, "/api/episodes/progress"+query, nil, &records)
	if rec.Code != http.StatusOK {
		t.Fatalf("list %q: status %d, body %s", query, rec.Code, rec.Body.String())
	}
	return records
}

func TestEpisodeProgressEndpointFilters(t *testing.T) {
	router, conn := newEpisodesRouter(t)
	s1 := seedSeries(t, conn, "Breaking Bad")
	s2 := seedSeries(t, conn, "The Wire")

	for _, input := range []progress.UpsertInput{
		{SeriesID: s1, Season: 1, Episode: 1, Status: models.EpisodeCompleted},
		{SeriesID: s1, Season: 1, Episode: 2, Status: models.EpisodeInProgress},
		{SeriesID: s1, Season: 2, Episode: 1},
		{SeriesID: s2, Season: 1, Episode: 1, Status: models.EpisodeCompleted},
	} {
		if rec := doJSON(t, router, http.MethodPost, "/api/episodes/progress", input, nil); rec.Code != http.StatusOK {
			t.Fatalf("seed %+v: status %d, body %s", input, rec.Code, rec.Body.String())
		}
	}

	if all := listProgress(t, router, ""); len(all) != 4 {
		t.Errorf("unfiltered: got %d records, want 4", len(all))
	}
	if bySeries := listProgress(t, router, "?seriesId="+itoa(s1)); len(bySeries) != 3 {
		t.Errorf("series filter: got %d records, want 3", len(bySeries))
	}
	bySeason := listProgress(t, router, "?seriesId="+itoa(s1)+"&season=1")
	if len(bySeason) != 2 {
		t.Errorf("season filter: got %d records, want 2", len(bySeason))
	}
	one := listProgress(t, router, "?seriesId="+itoa(s1)+"&season=1&episode=2")
	if len(one) != 1 || one[0].Status != models.EpisodeInProgress {
		t.Errorf("episode filter: got %+v", one)
	}

	if rec := doJSON(t, router, http.MethodGet, "/api/episodes/progress?seriesId=abc", nil, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad seriesId: status %d, want 400", rec.Code)
	}
}

func TestEpisodeProgressEndpointUpsertAndDelete(t *testing.T) {
	router, conn := newEpisodesRouter(t)
	seriesID := seedSeries(t, conn, "Breaking Bad")

	var record models.EpisodeProgress
	rec := doJSON(t, router, http.MethodPost, "/api/episodes/progress", progress.UpsertInput{
		SeriesID: seriesID, Season: 1, Episode: 1, Status: models.EpisodeInProgress,
	}, &record)
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert: status %d, body %s", rec.Code, rec.Body.String())
	}

	if rec := doJSON(t, router, http.MethodPost, "/api/episodes/progress", progress.UpsertInput{
		SeriesID: seriesID, Season: 0, Episode: 1,
	}, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("zero season: status %d, want 400", rec.Code)
	}

	path := "/api/episodes/progress/" + itoa(record.ID)
	if rec := doJSON(t, router, http.MethodDelete, path, nil, nil); rec.Code != http.StatusOK {
		t.Errorf("delete: status %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodDelete, path, nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status %d, want 404", rec.Code)
	}
}
