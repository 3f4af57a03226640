package middleware

import (
	"log/slog"
	"net/http"

	"github.com/biyuboxing/adminauth/internal/auth"
	pkghttp "github.com/biyuboxing/adminauth/pkg/http"
)

// CSRFProtection validates the session-bound CSRF token on state-changing
// requests (POST, PUT, DELETE, PATCH). The token travels in the X-CSRF-Token
// header and must match the token minted when the session was created.
// Must be mounted behind CheckAuth so the session is already in context.
func CSRFProtection(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isStateChangingMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			data := auth.SessionFromRequest(r)
			if data == nil {
				pkghttp.WriteForbidden(w, "CSRF validation requires an active session")
				return
			}

			token := r.Header.Get("X-CSRF-Token")
			if token == "" {
				token = r.PostFormValue("csrf_token")
			}

			if !auth.VerifyCSRFToken(data.CSRFToken, token) {
				logger.Warn("csrf token validation failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("username", data.User.Username))
				pkghttp.WriteForbidden(w, "Invalid CSRF token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isStateChangingMethod checks if the HTTP method modifies state
func isStateChangingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}
