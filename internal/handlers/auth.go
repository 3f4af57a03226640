package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/biyuboxing/adminauth/internal/auth"
	"github.com/biyuboxing/adminauth/internal/models"
	pkghttp "github.com/biyuboxing/adminauth/pkg/http"
)

// CredentialValidator defines the interface for credential verification
type CredentialValidator interface {
	ValidateCredentials(ctx context.Context, username, password, ipAddress string) (*models.Identity, error)
}

// SessionManager defines the interface for session lifecycle operations
type SessionManager interface {
	CreateSession(ctx context.Context, identity models.Identity, ipAddress, userAgent string) (*models.SessionData, error)
	DestroySession(ctx context.Context, sessionID string) (bool, error)
}

// AuthHandler handles login, logout and session introspection for the
// admin surface.
type AuthHandler struct {
	credentials   CredentialValidator
	sessions      SessionManager
	timing        *auth.TimingDelay
	sessionMaxAge time.Duration
	secureCookies bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(credentials CredentialValidator, sessions SessionManager, timing *auth.TimingDelay, sessionMaxAge time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		credentials:   credentials,
		sessions:      sessions,
		timing:        timing,
		sessionMaxAge: sessionMaxAge,
		secureCookies: secureCookies,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=256"`
}

// LoginResponse is returned on a successful login. The CSRF token is handed
// to the client here once; subsequent state-changing requests echo it in
// the X-CSRF-Token header.
type LoginResponse struct {
	User      models.Identity `json:"user"`
	CSRFToken string          `json:"csrfToken"`
}

// Login verifies credentials and issues a session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	ipAddress := pkghttp.ExtractClientIP(r)
	userAgent := r.Header.Get("User-Agent")

	identity, err := h.credentials.ValidateCredentials(r.Context(), req.Username, req.Password, ipAddress)
	if err != nil {
		// Failed attempts are padded so unknown-user and wrong-password
		// responses take similar time. Every refusal reads the same to the
		// caller: a locked account or a misconfigured user must not be
		// distinguishable from a wrong password. Operators get the detail
		// from the service logs.
		h.timing.WaitFrom(start)
		pkghttp.WriteUnauthorized(w, "Invalid credentials")
		return
	}

	data, err := h.sessions.CreateSession(r.Context(), *identity, ipAddress, userAgent)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	auth.SetSessionCookie(w, data.SessionID, h.sessionMaxAge, h.secureCookies)

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		User:      data.User,
		CSRFToken: data.CSRFToken,
	})
}

// Logout destroys the presented session and clears the cookie. Logging out
// without a live session still clears the cookie and succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// The verify step upstream may have rotated the id since the cookie was
	// issued, so the context's id is the live one; the cookie is a fallback
	// for requests that skipped verification.
	sessionID := auth.GetSessionCookie(r)
	if data := auth.SessionFromRequest(r); data != nil {
		sessionID = data.SessionID
	}
	if sessionID != "" {
		if _, err := h.sessions.DestroySession(r.Context(), sessionID); err != nil {
			pkghttp.WriteInternalError(w, "Internal server error")
			return
		}
	}

	auth.ClearSessionCookie(w, h.secureCookies)
	w.WriteHeader(http.StatusNoContent)
}

// Session reports the authenticated identity behind the current request.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	data := auth.SessionFromRequest(r)
	if data == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		User:      data.User,
		CSRFToken: data.CSRFToken,
	})
}
