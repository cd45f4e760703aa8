package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"time"

	"cinestack/internal/database"
	"cinestack/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidToken    = errors.New("invalid token")
)

const (
	// DefaultSessionDuration is the default lifetime of a session.
	DefaultSessionDuration = 30 * 24 * time.Hour // 30 days

	// PersistentSessionDuration is the lifetime of a "remember me" session (100 years).
	PersistentSessionDuration = 100 * 365 * 24 * time.Hour

	// TokenLength is the number of random bytes used for session tokens.
	TokenLength = 32
)

// Service manages session tokens for authenticated users. Tokens are
// opaque random strings backed by the sessions table, so they survive
// restarts.
type Service struct {
	sessions        *database.SessionRepository
	sessionDuration time.Duration
}

// NewService creates a sessions service.
func NewService(sessions *database.SessionRepository, sessionDuration time.Duration) *Service {
	if sessionDuration <= 0 {
		sessionDuration = DefaultSessionDuration
	}
	return &Service{sessions: sessions, sessionDuration: sessionDuration}
}

// Create generates a new session for the given user.
func (s *Service) Create(ctx context.Context, userID, userAgent, ipAddress string) (models.Session, error) {
	return s.CreateWithDuration(ctx, userID, userAgent, ipAddress, s.sessionDuration)
}

// CreatePersistent generates a new "remember me" session for the given user.
func (s *Service) CreatePersistent(ctx context.Context, userID, userAgent, ipAddress string) (models.Session, error) {
	return s.CreateWithDuration(ctx, userID, userAgent, ipAddress, PersistentSessionDuration)
}

// CreateWithDuration generates a new session with a custom duration.
func (s *Service) CreateWithDuration(ctx context.Context, userID, userAgent, ipAddress string, duration time.Duration) (models.Session, error) {
	token, err := generateToken()
	if err != nil {
		return models.Session{}, err
	}

	now := time.Now().UTC()
	session := models.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}
	if err := s.sessions.CreateSession(ctx, &session); err != nil {
		return models.Session{}, err
	}
	return session, nil
}

// Validate checks if a token is valid and returns the associated session.
// An expired token is deleted on sight.
func (s *Service) Validate(ctx context.Context, token string) (models.Session, error) {
	if token == "" {
		return models.Session{}, ErrInvalidToken
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return models.Session{}, err
	}
	if session == nil {
		return models.Session{}, ErrSessionNotFound
	}
	if session.Expired(time.Now().UTC()) {
		_, _ = s.sessions.DeleteSession(ctx, token)
		return models.Session{}, ErrSessionExpired
	}
	return *session, nil
}

// Revoke invalidates a session by its token.
func (s *Service) Revoke(ctx context.Context, token string) error {
	deleted, err := s.sessions.DeleteSession(ctx, token)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSessionNotFound
	}
	return nil
}

// Cleanup removes all expired sessions and returns the number removed.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, time.Now().UTC())
}

// StartCleanupLoop sweeps expired sessions hourly until ctx is done.
func (s *Service) StartCleanupLoop(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.Cleanup(ctx)
				if err != nil {
					log.Printf("[sessions] cleanup failed: %v", err)
					continue
				}
				if removed > 0 {
					log.Printf("[sessions] removed %d expired sessions", removed)
				}
			}
		}
	}()
}

// generateToken creates a cryptographically secure random token.
func generateToken() (string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
