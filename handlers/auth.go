package handlers

import (
	"errors"
	"net/http"

	"cinestack/internal/auth"
	"cinestack/models"
	"cinestack/services/accounts"
	"cinestack/services/sessions"
)

// AuthHandler handles registration, login and the password flows.
type AuthHandler struct {
	accounts *accounts.Service
	sessions *sessions.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(accountsSvc *accounts.Service, sessionsSvc *sessions.Service) *AuthHandler {
	return &AuthHandler{
		accounts: accountsSvc,
		sessions: sessionsSvc,
	}
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// AuthResponse represents a successful register or login.
type AuthResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

// UserResponse represents user info without credentials.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Register creates a new user and returns a session token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req accounts.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrUsernameExists),
			errors.Is(err, accounts.ErrEmailExists),
			errors.Is(err, accounts.ErrUsernameRequired),
			errors.Is(err, accounts.ErrEmailRequired),
			errors.Is(err, accounts.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeInternalError(w, "auth", err)
		}
		return
	}

	h.issueSession(w, r, http.StatusCreated, user, false)
}

// Login authenticates a user and returns a session token. An unknown
// username is a 404 so the client can offer signup.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, accounts.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid username or password")
		default:
			writeInternalError(w, "auth", err)
		}
		return
	}

	h.issueSession(w, r, http.StatusOK, user, req.RememberMe)
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, status int, user *models.User, rememberMe bool) {
	userAgent := r.Header.Get("User-Agent")
	ipAddress := getClientIPAddress(r)

	var session models.Session
	var err error
	if rememberMe {
		session, err = h.sessions.CreatePersistent(r.Context(), user.ID, userAgent, ipAddress)
	} else {
		session, err = h.sessions.Create(r.Context(), user.ID, userAgent, ipAddress)
	}
	if err != nil {
		writeInternalError(w, "auth", err)
		return
	}

	writeJSON(w, status, AuthResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format("2006-01-02T15:04:05Z"),
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
	})
}

// Logout invalidates the current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		writeError(w, http.StatusBadRequest, "no session token")
		return
	}

	if err := h.sessions.Revoke(r.Context(), token); err != nil {
		// Session not found is OK - might already be expired
		if !errors.Is(err, sessions.ErrSessionNotFound) {
			writeInternalError(w, "auth", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Get(r.Context(), auth.GetUserID(r))
	if err != nil {
		if errors.Is(err, accounts.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeInternalError(w, "auth", err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

// ResetRequest carries the email for a password reset code.
type ResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset mails a verification code to the given email.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		if errors.Is(err, accounts.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "no account with this email")
			return
		}
		writeInternalError(w, "auth", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "code sent"})
}

// VerifyCodeRequest carries an email and its verification code.
type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyResetCode checks a reset code without consuming it.
func (h *AuthHandler) VerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.accounts.VerifyResetCode(r.Context(), req.Email, req.Code); err != nil {
		switch {
		case errors.Is(err, accounts.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "no account with this email")
		case errors.Is(err, accounts.ErrInvalidCode):
			writeError(w, http.StatusBadRequest, "invalid or expired code")
		default:
			writeInternalError(w, "auth", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "code valid"})
}

// ConfirmResetRequest carries the reset code and the new password.
type ConfirmResetRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// ConfirmPasswordReset consumes the code and sets the new password.
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ConfirmResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.accounts.ConfirmPasswordReset(r.Context(), req.Email, req.Code, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "no account with this email")
		case errors.Is(err, accounts.ErrInvalidCode):
			writeError(w, http.StatusBadRequest, "invalid or expired code")
		case errors.Is(err, accounts.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeInternalError(w, "auth", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password reset"})
}

// RequestPasswordChange mails a verification code to the authenticated
// user's email.
func (h *AuthHandler) RequestPasswordChange(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.RequestPasswordChange(r.Context(), auth.GetUserID(r)); err != nil {
		if errors.Is(err, accounts.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeInternalError(w, "auth", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "code sent"})
}

// ChangePasswordRequest carries the verification code and new password.
type ChangePasswordRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword consumes the code and sets the new password for the
// authenticated user.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.accounts.ChangePassword(r.Context(), auth.GetUserID(r), req.Code, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrInvalidCode):
			writeError(w, http.StatusBadRequest, "invalid or expired code")
		case errors.Is(err, accounts.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, accounts.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			writeInternalError(w, "auth", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}
