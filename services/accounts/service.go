package accounts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sethvargo/go-password/password"
	"golang.org/x/crypto/bcrypt"

	"cinestack/internal/database"
	"cinestack/models"
	"cinestack/services/library"
	"cinestack/services/mailer"
)

var (
	ErrUsernameRequired   = errors.New("username is required")
	ErrEmailRequired      = errors.New("a valid email is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidCode        = errors.New("invalid or expired verification code")
)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8

	// codeLength is the number of digits in a verification code.
	codeLength = 6

	// codeCacheSize bounds the number of outstanding codes.
	codeCacheSize = 1024
)

// playlistSeeder creates the fixed status playlists for a new user.
type playlistSeeder interface {
	EnsureStatusPlaylists(ctx context.Context, userID string) error
}

var _ playlistSeeder = (*library.Service)(nil)

// Service owns registration, login and the verification-code flows for
// password reset and password change.
type Service struct {
	users   *database.UserRepository
	seeder  playlistSeeder
	mail    *mailer.Mailer
	codes   *lru.LRU[string, string]
	codeTTL time.Duration
}

// NewService creates an accounts service. Verification codes live in an
// expiring in-memory cache sized for codeTTL.
func NewService(users *database.UserRepository, seeder playlistSeeder, mail *mailer.Mailer, codeTTL time.Duration) *Service {
	if codeTTL <= 0 {
		codeTTL = 10 * time.Minute
	}
	return &Service{
		users:   users,
		seeder:  seeder,
		mail:    mail,
		codes:   lru.NewLRU[string, string](codeCacheSize, nil, codeTTL),
		codeTTL: codeTTL,
	}
}

// RegisterInput carries the signup fields.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a user, hashes the password and seeds the four status
// playlists.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrEmailRequired
	}
	if len(input.Password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	// Pre-check for friendlier errors; the unique indexes are the real
	// guard under races.
	if existing, err := s.users.GetUserByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUsernameExists
	}
	if existing, err := s.users.GetUserByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			// A concurrent signup won the race between the pre-check and
			// the insert; report the column that actually collided.
			return nil, s.registerConflict(ctx, username)
		}
		return nil, err
	}

	if err := s.seeder.EnsureStatusPlaylists(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("seed status playlists: %w", err)
	}

	log.Printf("[accounts] registered user %s", user.Username)
	return user, nil
}

// registerConflict decides which unique index fired during a signup
// race by re-checking the username; anything else was the email index.
func (s *Service) registerConflict(ctx context.Context, username string) error {
	existing, err := s.users.GetUserByUsername(ctx, username)
	if err == nil && existing != nil {
		return ErrUsernameExists
	}
	return ErrEmailExists
}

// Login verifies the username and password. A wrong password for an
// existing user returns ErrInvalidCredentials; an unknown username
// returns ErrUserNotFound so the client can tell the cases apart.
func (s *Service) Login(ctx context.Context, username, pass string) (*models.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Burn a bcrypt comparison anyway so lookups take the same time.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"), []byte(pass))
		return nil, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(pass)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// RequestPasswordReset mails a verification code to the account's email.
// The email must belong to a registered user.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	code, err := s.issueCode("reset", user.Email)
	if err != nil {
		return err
	}
	s.mail.SendVerificationCode(user.Email, "password reset", code)
	return nil
}

// VerifyResetCode checks a reset code without consuming it, so the client
// can validate before showing the new-password form.
func (s *Service) VerifyResetCode(ctx context.Context, email, code string) error {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if !s.checkCode("reset", user.Email, code, false) {
		return ErrInvalidCode
	}
	return nil
}

// ConfirmPasswordReset consumes the code and sets the new password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if !s.checkCode("reset", user.Email, code, true) {
		return ErrInvalidCode
	}
	return s.setPassword(ctx, user, newPassword)
}

// RequestPasswordChange mails a verification code to an authenticated
// user who wants to change their password.
func (s *Service) RequestPasswordChange(ctx context.Context, userID string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	code, err := s.issueCode("change", user.Email)
	if err != nil {
		return err
	}
	s.mail.SendVerificationCode(user.Email, "password change", code)
	return nil
}

// ChangePassword consumes the code and sets the new password for an
// authenticated user.
func (s *Service) ChangePassword(ctx context.Context, userID, code, newPassword string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if !s.checkCode("change", user.Email, code, true) {
		return ErrInvalidCode
	}
	return s.setPassword(ctx, user, newPassword)
}

func (s *Service) setPassword(ctx context.Context, user *models.User, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	log.Printf("[accounts] password updated for user %s", user.Username)
	return nil
}

// issueCode generates a fresh numeric code and stores it under
// (purpose, email). A new request replaces any outstanding code.
func (s *Service) issueCode(purpose, email string) (string, error) {
	code, err := password.Generate(codeLength, codeLength, 0, false, true)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	s.codes.Add(codeKey(purpose, email), code)
	return code, nil
}

// checkCode validates a code. When consume is true a matching code is
// removed so it cannot be replayed.
func (s *Service) checkCode(purpose, email, code string, consume bool) bool {
	key := codeKey(purpose, email)
	stored, ok := s.codes.Get(key)
	if !ok || stored != strings.TrimSpace(code) {
		return false
	}
	if consume {
		s.codes.Remove(key)
	}
	return true
}

func codeKey(purpose, email string) string {
	return purpose + ":" + strings.ToLower(email)
}
