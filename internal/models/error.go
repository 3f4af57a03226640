package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")

	// ErrAccountLocked marks an active lockout episode. The HTTP layer
	// folds it into the uniform invalid-credentials response.
	ErrAccountLocked = errors.New("account is temporarily locked")

	// ErrUserNotConfigured means a directory user has no password hash set.
	// It is an operator problem, not a caller problem, and must not consume
	// a lockout attempt.
	ErrUserNotConfigured = errors.New("user has no password hash configured")
)
