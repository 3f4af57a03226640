package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/biyuboxing/adminauth/internal/models"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// SessionContextKey is the key for storing session data in context
	SessionContextKey contextKey = "session"
)

// SessionVerifier validates session IDs and resolves them to session data.
// Implemented by services.SessionService.
type SessionVerifier interface {
	VerifySession(ctx context.Context, sessionID string, shouldRotate bool) (*models.SessionData, error)
}

// Middleware carries the session checks applied to the admin surface.
type Middleware struct {
	sessions      SessionVerifier
	sessionMaxAge time.Duration
	secureCookies bool
	logger        *slog.Logger
}

// NewMiddleware creates the admin session middleware.
func NewMiddleware(sessions SessionVerifier, sessionMaxAge time.Duration, secureCookies bool, logger *slog.Logger) *Middleware {
	return &Middleware{
		sessions:      sessions,
		sessionMaxAge: sessionMaxAge,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// CheckAuth resolves the session cookie and injects session data into the
// request context. Requests without a valid session pass through with no
// session in context; enforcement is left to RequireAuth. When verification
// rotates the session, the replacement cookie is written on the response.
func (m *Middleware) CheckAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := GetSessionCookie(r)
		if sessionID == "" {
			next.ServeHTTP(w, r)
			return
		}

		data, err := m.sessions.VerifySession(r.Context(), sessionID, true)
		if err != nil {
			// Expired or unknown cookie. Clear it so the client stops
			// presenting a dead session ID.
			ClearSessionCookie(w, m.secureCookies)
			next.ServeHTTP(w, r)
			return
		}

		if data.Rotated {
			SetSessionCookie(w, data.SessionID, m.sessionMaxAge, m.secureCookies)
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, data)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth redirects unauthenticated requests to the login page, carrying
// the original path so the login flow can return the user afterwards.
// Must be used after CheckAuth.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromRequest(r) == nil {
			target := "/admin/auth?redirect=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdministrator enforces the administrator role on top of RequireAuth.
// Non-administrators are sent back to the dashboard rather than the login
// page since they already hold a valid session.
func (m *Middleware) RequireAdministrator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := SessionFromRequest(r)
		if data == nil {
			target := "/admin/auth?redirect=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		if !data.User.IsAdministrator() {
			http.Redirect(w, r, "/admin/dashboard?error=unauthorized", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFromRequest extracts session data from the request context.
func SessionFromRequest(r *http.Request) *models.SessionData {
	return SessionFromContext(r.Context())
}

// SessionFromContext extracts session data from a context.
func SessionFromContext(ctx context.Context) *models.SessionData {
	data, ok := ctx.Value(SessionContextKey).(*models.SessionData)
	if !ok {
		return nil
	}
	return data
}
