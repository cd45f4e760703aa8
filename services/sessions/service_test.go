package sessions

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cinestack/internal/database"
	"cinestack/models"
)

func newTestSessions(t *testing.T, duration time.Duration) (*Service, *sql.DB) {
	t.Helper()
	db, err := database.NewDB(database.Config{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	conn := db.Connection()
	return NewService(database.NewSessionRepository(conn), duration), conn
}

func createUser(t *testing.T, conn *sql.DB, id string) {
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

func TestCreateAndValidate(t *testing.T) {
	svc, conn := newTestSessions(t, time.Hour)
	ctx := context.Background()
	createUser(t, conn, "u1")

	session, err := svc.Create(ctx, "u1", "test-agent", "127.0.0.1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if session.Token == "" {
		t.Fatal("empty token")
	}

	got, err := svc.Validate(ctx, session.Token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.UserID != "u1" || got.UserAgent != "test-agent" {
		t.Errorf("session = %+v", got)
	}
}

func TestValidateRejectsUnknownAndEmptyTokens(t *testing.T) {
	svc, _ := newTestSessions(t, time.Hour)
	ctx := context.Background()

	if _, err := svc.Validate(ctx, ""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("empty token: got %v, want ErrInvalidToken", err)
	}
	if _, err := svc.Validate(ctx, "no-such-token"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown token: got %v, want ErrSessionNotFound", err)
	}
}

func TestValidateDeletesExpiredSession(t *testing.T) {
	svc, conn := newTestSessions(t, time.Hour)
	ctx := context.Background()
	createUser(t, conn, "u1")

	session, err := svc.CreateWithDuration(ctx, "u1", "", "", -time.Minute)
	if err != nil {
		t.Fatalf("CreateWithDuration: %v", err)
	}

	if _, err := svc.Validate(ctx, session.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	// The expired row was removed, so a second lookup misses entirely.
	if _, err := svc.Validate(ctx, session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second validate: got %v, want ErrSessionNotFound", err)
	}
}

func TestRevoke(t *testing.T) {
	svc, conn := newTestSessions(t, time.Hour)
	ctx := context.Background()
	createUser(t, conn, "u1")

	session, err := svc.Create(ctx, "u1", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Revoke(ctx, session.Token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := svc.Validate(ctx, session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("validate after revoke: got %v", err)
	}
	if err := svc.Revoke(ctx, session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second revoke: got %v, want ErrSessionNotFound", err)
	}
}

func TestCleanupRemovesOnlyExpired(t *testing.T) {
	svc, conn := newTestSessions(t, time.Hour)
	ctx := context.Background()
	createUser(t, conn, "u1")

	live, err := svc.Create(ctx, "u1", "", "")
	if err != nil {
		t.Fatalf("Create live: %v", err)
	}
	if _, err := svc.CreateWithDuration(ctx, "u1", "", "", -time.Minute); err != nil {
		t.Fatalf("Create expired: %v", err)
	}
	if _, err := svc.CreateWithDuration(ctx, "u1", "", "", -time.Hour); err != nil {
		t.Fatalf("Create expired: %v", err)
	}

	removed, err := svc.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if _, err := svc.Validate(ctx, live.Token); err != nil {
		t.Errorf("live session swept: %v", err)
	}
}

func TestPersistentSessionOutlivesDefault(t *testing.T) {
	svc, conn := newTestSessions(t, time.Hour)
	ctx := context.Background()
	createUser(t, conn, "u1")

	session, err := svc.CreatePersistent(ctx, "u1", "", "")
	if err != nil {
		t.Fatalf("CreatePersistent: %v", err)
	}
	if session.ExpiresAt.Before(time.Now().Add(99 * 365 * 24 * time.Hour)) {
		t.Errorf("persistent session expires too soon: %v", session.ExpiresAt)
	}
}
