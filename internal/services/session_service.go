package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/biyuboxing/adminauth/internal/auth"
	"github.com/biyuboxing/adminauth/internal/config"
	"github.com/biyuboxing/adminauth/internal/models"
	"github.com/google/uuid"
)

// SessionStore defines the interface for session persistence
type SessionStore interface {
	CreateSession(ctx context.Context, sess *models.Session) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	TouchSession(ctx context.Context, sessionID string, lastActivity time.Time) error
	RotateSession(ctx context.Context, oldID, newID string, now time.Time) error
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
	DeleteIdleSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionService issues, verifies, rotates and destroys persistent admin
// sessions. Verification re-resolves the role from the user directory each
// time, so a configuration change takes effect without invalidating
// existing sessions.
type SessionService struct {
	store  SessionStore
	users  config.UserDirectory
	audit  *AuditService
	cfg    config.AuthConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(store SessionStore, users config.UserDirectory, audit *AuditService, cfg config.AuthConfig, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:  store,
		users:  users,
		audit:  audit,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Rotate returns the session as it looks after a rotation: new public id,
// reset created_at and last_activity, everything else (csrf token included)
// carried over. Pure apart from the caller's persistence write.
func Rotate(sess models.Session, newID string, now time.Time) models.Session {
	sess.ID = newID
	sess.CreatedAt = now
	sess.LastActivity = now
	return sess
}

// CreateSession issues a fresh session for an authenticated identity.
func (s *SessionService) CreateSession(ctx context.Context, identity models.Identity, ipAddress, userAgent string) (*models.SessionData, error) {
	csrfToken, err := auth.GenerateCSRFToken()
	if err != nil {
		s.logger.Error("failed to generate csrf token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := s.now()
	sess := &models.Session{
		ID:           uuid.NewString(),
		Username:     identity.Username,
		CreatedAt:    now,
		LastActivity: now,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		CSRFToken:    csrfToken,
	}

	if err := s.store.CreateSession(ctx, sess); err != nil {
		s.logger.Error("failed to create session",
			slog.String("username", identity.Username),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("session created",
		slog.String("username", identity.Username),
		slog.String("session_id", sess.ID))

	return s.sessionData(sess, false), nil
}

// VerifySession looks up a session by id, expiring it on idle timeout and
// rotating the identifier when the caller requests rotation or the id has
// outlived the rotation interval. Store errors fail closed.
func (s *SessionService) VerifySession(ctx context.Context, sessionID string, shouldRotate bool) (*models.SessionData, error) {
	if sessionID == "" {
		return nil, models.ErrUnauthorized
	}

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up session", slog.Any("error", err))
		}
		return nil, models.ErrUnauthorized
	}

	now := s.now()
	if sess.IdleExpired(now, s.cfg.SessionMaxAge) {
		if _, err := s.store.DeleteSession(ctx, sessionID); err != nil {
			s.logger.Error("failed to delete expired session", slog.Any("error", err))
		}
		s.logger.Info("session expired", slog.String("username", sess.Username))
		return nil, models.ErrUnauthorized
	}

	rotated := shouldRotate || sess.Age(now) > s.cfg.RotationInterval
	if rotated {
		next := Rotate(*sess, uuid.NewString(), now)
		if err := s.store.RotateSession(ctx, sess.ID, next.ID, now); err != nil {
			s.logger.Error("failed to rotate session", slog.Any("error", err))
			return nil, models.ErrUnauthorized
		}
		s.logger.Info("session rotated", slog.String("username", sess.Username))
		sess = &next
	} else {
		if err := s.store.TouchSession(ctx, sess.ID, now); err != nil {
			s.logger.Error("failed to update session activity", slog.Any("error", err))
			return nil, models.ErrUnauthorized
		}
		sess.LastActivity = now
	}

	return s.sessionData(sess, rotated), nil
}

// DestroySession deletes a session and audits the logout. Destroying an
// absent session is not an error; it reports false and writes nothing.
func (s *SessionService) DestroySession(ctx context.Context, sessionID string) (bool, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	deleted, err := s.store.DeleteSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Info("session destroyed", slog.String("username", sess.Username))
		s.audit.Log(ctx, AuditRecord{
			Username:   sess.Username,
			Action:     models.AuditActionLogout,
			EntityType: models.AuditEntityAuth,
		})
	}

	return deleted, nil
}

// CleanupIdle removes sessions idle past the max age. Run periodically; the
// verify path also expires lazily, this sweeps sessions nobody presents.
func (s *SessionService) CleanupIdle(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.cfg.SessionMaxAge)
	return s.store.DeleteIdleSessions(ctx, cutoff)
}

// sessionData builds the caller view, resolving role and display name from
// the directory. A username missing from the directory keeps working as an
// editor, mirroring how the site behaved when roles were renamed.
func (s *SessionService) sessionData(sess *models.Session, rotated bool) *models.SessionData {
	identity := models.Identity{
		Username:    sess.Username,
		Role:        models.RoleEditor,
		DisplayName: sess.Username,
	}
	if user, ok := s.users.Lookup(sess.Username); ok {
		identity = user.Identity()
	}

	return &models.SessionData{
		SessionID: sess.ID,
		User:      identity,
		CSRFToken: sess.CSRFToken,
		CreatedAt: sess.CreatedAt.Unix(),
		Rotated:   rotated,
	}
}
