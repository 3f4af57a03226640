package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/biyuboxing/adminauth/internal/config"
	"github.com/biyuboxing/adminauth/internal/models"
	pkgauth "github.com/biyuboxing/adminauth/pkg/auth"
	pkglogger "github.com/biyuboxing/adminauth/pkg/logger"
)

// LoginAttemptStore defines the interface for lockout-state persistence
type LoginAttemptStore interface {
	GetLoginAttempt(ctx context.Context, username string) (*models.LoginAttempt, error)
	IncrementLoginAttempt(ctx context.Context, username string, now time.Time, maxAttempts int, lockedUntil time.Time) (int, error)
	ResetLoginAttempts(ctx context.Context, username string) error
}

// AuthService verifies credentials against the static user directory and
// tracks the per-username lockout state machine. Store failures on this path
// fail closed: a request we cannot check is a request we refuse.
type AuthService struct {
	attempts LoginAttemptStore
	audit    *AuditService
	users    config.UserDirectory
	verifier *pkgauth.Verifier
	cfg      config.AuthConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(attempts LoginAttemptStore, audit *AuditService, users config.UserDirectory, verifier *pkgauth.Verifier, cfg config.AuthConfig, logger *slog.Logger) *AuthService {
	return &AuthService{
		attempts: attempts,
		audit:    audit,
		users:    users,
		verifier: verifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// ValidateCredentials checks a username/password pair. On success the
// lockout state is cleared and the resolved identity returned. All failure
// modes map to sentinel errors the HTTP layer collapses into one uniform
// "invalid credentials" response.
func (s *AuthService) ValidateCredentials(ctx context.Context, username, password, ipAddress string) (*models.Identity, error) {
	if username == "" || password == "" {
		s.logger.Warn("login attempt with missing credentials")
		return nil, models.ErrUnauthorized
	}

	locked, err := s.IsAccountLocked(ctx, username)
	if err != nil {
		s.logger.Error("failed to check lockout state",
			slog.String("username", pkglogger.SanitizedUsername(username)),
			slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}
	if locked {
		// No password comparison against a locked account: no hashing work,
		// and no extra failed-attempt accounting.
		return nil, models.ErrAccountLocked
	}

	user, ok := s.users.Lookup(username)
	if !ok {
		// Unknown usernames still consume an attempt so the response does
		// not reveal which half of the pair was wrong.
		s.logger.Info("login failed: invalid credentials")
		s.RecordFailedAttempt(ctx, username, ipAddress)
		return nil, models.ErrUnauthorized
	}

	if user.PasswordHash == "" {
		s.logger.Error("no password hash configured for user",
			slog.String("username", user.Username))
		return nil, models.ErrUserNotConfigured
	}

	if err := s.verifier.Compare(ctx, user.PasswordHash, password); err != nil {
		if errors.Is(err, pkgauth.ErrMismatchedPassword) {
			s.logger.Info("login failed: invalid credentials")
			s.RecordFailedAttempt(ctx, username, ipAddress)
			return nil, models.ErrUnauthorized
		}
		// Malformed stored hash or cancelled verification. Not the caller's
		// fault, so no lockout attempt is consumed.
		s.logger.Error("failed to verify password",
			slog.String("username", user.Username),
			slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	if err := s.ClearFailedAttempts(ctx, user.Username); err != nil {
		s.logger.Error("failed to clear login attempts",
			slog.String("username", user.Username),
			slog.Any("error", err))
	}

	s.logger.Info("user logged in", slog.String("username", user.Username))
	s.audit.Log(ctx, AuditRecord{
		Username:   user.Username,
		Action:     models.AuditActionLoginSuccess,
		EntityType: models.AuditEntityAuth,
		IPAddress:  ipAddress,
	})

	identity := user.Identity()
	return &identity, nil
}

// IsAccountLocked reports whether a username is inside a lockout episode.
// An expired lockout is lazily reset here, on the next check.
func (s *AuthService) IsAccountLocked(ctx context.Context, username string) (bool, error) {
	attempt, err := s.attempts.GetLoginAttempt(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	now := s.now()
	if attempt.Locked(now, s.cfg.MaxLoginAttempts) {
		s.logger.Info("login refused: account locked",
			slog.String("username", pkglogger.SanitizedUsername(username)),
			slog.Time("locked_until", *attempt.LockedUntil))
		return true, nil
	}

	if attempt.LockoutExpired(now) {
		if err := s.attempts.ResetLoginAttempts(ctx, username); err != nil {
			return false, err
		}
	}

	return false, nil
}

// RecordFailedAttempt increments the failure counter and, when the count
// crosses the threshold, starts a lockout episode and audits it. Exactly one
// audit entry per failure: ACCOUNT_LOCKED on the crossing attempt,
// LOGIN_FAILED otherwise.
func (s *AuthService) RecordFailedAttempt(ctx context.Context, username, ipAddress string) {
	now := s.now()
	lockedUntil := now.Add(s.cfg.LockoutDuration)

	count, err := s.attempts.IncrementLoginAttempt(ctx, username, now, s.cfg.MaxLoginAttempts, lockedUntil)
	if err != nil {
		s.logger.Error("failed to record login attempt",
			slog.String("username", pkglogger.SanitizedUsername(username)),
			slog.Any("error", err))
		return
	}

	action := models.AuditActionLoginFailed
	if count == s.cfg.MaxLoginAttempts {
		s.logger.Warn("account locked after repeated failures",
			slog.String("username", pkglogger.SanitizedUsername(username)),
			slog.Int("attempt_count", count))
		action = models.AuditActionAccountLocked
	}

	s.audit.Log(ctx, AuditRecord{
		Username:   username,
		Action:     action,
		EntityType: models.AuditEntityAuth,
		IPAddress:  ipAddress,
	})
}

// ClearFailedAttempts resets the lockout state for a username.
func (s *AuthService) ClearFailedAttempts(ctx context.Context, username string) error {
	return s.attempts.ResetLoginAttempts(ctx, username)
}
