package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/biyuboxing/adminauth/internal/auth"
	"github.com/biyuboxing/adminauth/internal/models"
	pkghttp "github.com/biyuboxing/adminauth/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSessionContext injects session data into the request context, standing
// in for the CheckAuth middleware.
func WithSessionContext(req *http.Request, data *models.SessionData) *http.Request {
	ctx := context.WithValue(req.Context(), auth.SessionContextKey, data)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockCredentialValidator implements CredentialValidator for testing
type MockCredentialValidator struct {
	ValidateCredentialsFunc func(ctx context.Context, username, password, ipAddress string) (*models.Identity, error)
}

func (m *MockCredentialValidator) ValidateCredentials(ctx context.Context, username, password, ipAddress string) (*models.Identity, error) {
	if m.ValidateCredentialsFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.ValidateCredentialsFunc(ctx, username, password, ipAddress)
}

// MockSessionManager implements SessionManager for testing
type MockSessionManager struct {
	CreateSessionFunc  func(ctx context.Context, identity models.Identity, ipAddress, userAgent string) (*models.SessionData, error)
	DestroySessionFunc func(ctx context.Context, sessionID string) (bool, error)
}

func (m *MockSessionManager) CreateSession(ctx context.Context, identity models.Identity, ipAddress, userAgent string) (*models.SessionData, error) {
	if m.CreateSessionFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateSessionFunc(ctx, identity, ipAddress, userAgent)
}

func (m *MockSessionManager) DestroySession(ctx context.Context, sessionID string) (bool, error) {
	if m.DestroySessionFunc == nil {
		return false, nil
	}
	return m.DestroySessionFunc(ctx, sessionID)
}

// MockAuditReader implements AuditReader for testing
type MockAuditReader struct {
	ListFunc func(ctx context.Context, q models.AuditQuery) ([]*models.AuditEntry, error)
}

func (m *MockAuditReader) List(ctx context.Context, q models.AuditQuery) ([]*models.AuditEntry, error) {
	if m.ListFunc == nil {
		return nil, nil
	}
	return m.ListFunc(ctx, q)
}
