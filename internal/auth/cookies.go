package auth

import (
	"net/http"
	"time"
)

const (
	// SessionCookieName is the cookie carrying the opaque session ID.
	SessionCookieName = "admin_session"

	// sessionCookiePath scopes the cookie to the admin surface only.
	sessionCookiePath = "/admin"
)

// SetSessionCookie writes the session cookie on a response. The cookie is
// HttpOnly and SameSite=Strict; Secure is set outside local development.
func SetSessionCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     sessionCookiePath,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie expires the session cookie immediately.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     sessionCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetSessionCookie returns the session ID from the request cookie, or an
// empty string when the cookie is absent.
func GetSessionCookie(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
