package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/biyuboxing/adminauth/internal/auth"
	"github.com/biyuboxing/adminauth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	verifyFunc func(ctx context.Context, sessionID string, shouldRotate bool) (*models.SessionData, error)
}

func (s *stubVerifier) VerifySession(ctx context.Context, sessionID string, shouldRotate bool) (*models.SessionData, error) {
	return s.verifyFunc(ctx, sessionID, shouldRotate)
}

func editorSession(id string) *models.SessionData {
	return &models.SessionData{
		SessionID: id,
		User: models.Identity{
			Username:    "lee",
			Role:        models.RoleEditor,
			DisplayName: "Lee",
		},
		CSRFToken: "csrf-token",
	}
}

func adminSession(id string) *models.SessionData {
	return &models.SessionData{
		SessionID: id,
		User: models.Identity{
			Username:    "admin",
			Role:        models.RoleAdministrator,
			DisplayName: "Administrator",
		},
		CSRFToken: "csrf-token",
	}
}

func newTestMiddleware(verifier auth.SessionVerifier) *auth.Middleware {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return auth.NewMiddleware(verifier, 24*time.Hour, false, logger)
}

func TestCheckAuth_InjectsSession(t *testing.T) {
	verifier := &stubVerifier{
		verifyFunc: func(ctx context.Context, sessionID string, shouldRotate bool) (*models.SessionData, error) {
			assert.Equal(t, "sess-1", sessionID)
			assert.True(t, shouldRotate)
			return editorSession("sess-1"), nil
		},
	}
	mw := newTestMiddleware(verifier)

	var captured *models.SessionData
	handler := mw.CheckAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = auth.SessionFromRequest(r)
	}))

	req := httptest.NewRequest("GET", "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "sess-1"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, captured)
	assert.Equal(t, "lee", captured.User.Username)
}

func TestCheckAuth_NoCookiePassesThrough(t *testing.T) {
	verifier := &stubVerifier{
		verifyFunc: func(ctx context.Context, sessionID string, shouldRotate bool) (*models.SessionData, error) {
			t.Fatal("verifier should not be called without a cookie")
			return nil, nil
		},
	}
	mw := newTestMiddleware(verifier)

	called := false
	handler := mw.CheckAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Nil(t, auth.SessionFromRequest(r))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/admin/dashboard", nil))
	assert.True(t, called)
}

func TestCheckAuth_InvalidSessionClearsCookie(t *testing.T) {
	verifier := &stubVerifier{
		verifyFunc: func(ctx context.Context, sessionID string, shouldRotate bool) (*models.SessionData, error) {
			return nil, models.ErrUnauthorized
		},
	}
	mw := newTestMiddleware(verifier)

	handler := mw.CheckAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Nil(t, auth.SessionFromRequest(r))
	}))

	req := httptest.NewRequest("GET", "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "dead-session"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestCheckAuth_RotationReissuesCookie(t *testing.T) {
	data := editorSession("sess-new")
	data.Rotated = true

	verifier := &stubVerifier{
		verifyFunc: func(ctx context.Context, sessionID string, shouldRotate bool) (*models.SessionData, error) {
			return data, nil
		},
	}
	mw := newTestMiddleware(verifier)

	handler := mw.CheckAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "sess-old"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sess-new", cookies[0].Value)
}

func TestRequireAuth_RedirectsToLogin(t *testing.T) {
	mw := newTestMiddleware(&stubVerifier{})

	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without a session")
	}))

	req := httptest.NewRequest("GET", "/admin/fighters?page=2", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin/auth?redirect=%2Fadmin%2Ffighters%3Fpage%3D2", w.Header().Get("Location"))
}

func TestRequireAuth_PassesWithSession(t *testing.T) {
	mw := newTestMiddleware(&stubVerifier{})

	called := false
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("GET", "/admin/fighters", nil)
	ctx := context.WithValue(req.Context(), auth.SessionContextKey, editorSession("sess-1"))
	handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

	assert.True(t, called)
}

func TestRequireAdministrator_RejectsEditor(t *testing.T) {
	mw := newTestMiddleware(&stubVerifier{})

	handler := mw.RequireAdministrator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run for an editor")
	}))

	req := httptest.NewRequest("GET", "/admin/api/audit", nil)
	ctx := context.WithValue(req.Context(), auth.SessionContextKey, editorSession("sess-1"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req.WithContext(ctx))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin/dashboard?error=unauthorized", w.Header().Get("Location"))
}

func TestRequireAdministrator_AllowsAdministrator(t *testing.T) {
	mw := newTestMiddleware(&stubVerifier{})

	called := false
	handler := mw.RequireAdministrator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("GET", "/admin/api/audit", nil)
	ctx := context.WithValue(req.Context(), auth.SessionContextKey, adminSession("sess-1"))
	handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

	assert.True(t, called)
}
