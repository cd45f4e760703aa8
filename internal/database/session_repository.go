package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cinestack/models"
)

// SessionRepository provides access to the sessions table.
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a session repository bound to db.
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession inserts a new session row.
func (r *SessionRepository) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, created_at, expires_at, user_agent, ip_address)
		VALUES (?, ?, ?, ?, ?, ?)`,
		session.Token, session.UserID, session.CreatedAt, session.ExpiresAt,
		session.UserAgent, session.IPAddress)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession returns the session for a token, or nil if absent.
func (r *SessionRepository) GetSession(ctx context.Context, token string) (*models.Session, error) {
	var session models.Session
	err := r.db.QueryRowContext(ctx, `
		SELECT token, user_id, created_at, expires_at, user_agent, ip_address
		FROM sessions WHERE token = ?`, token).Scan(
		&session.Token, &session.UserID, &session.CreatedAt, &session.ExpiresAt,
		&session.UserAgent, &session.IPAddress)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a session by token. Returns true if a row was
// deleted.
func (r *SessionRepository) DeleteSession(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteExpired removes all sessions past their expiry and returns the
// number removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
