package models

import "time"

// LoginAttempt is the per-username lockout record. One row per username,
// created on the first failed attempt and never deleted; a successful login
// resets the counter in place.
type LoginAttempt struct {
	Username     string     `db:"username"`
	AttemptCount int        `db:"attempt_count"`
	LockedUntil  *time.Time `db:"locked_until"`
	LastAttempt  time.Time  `db:"last_attempt"`
}

// Locked reports whether the record is inside an active lockout episode.
func (a *LoginAttempt) Locked(now time.Time, maxAttempts int) bool {
	if a == nil || a.LockedUntil == nil {
		return false
	}
	return a.AttemptCount >= maxAttempts && now.Before(*a.LockedUntil)
}

// LockoutExpired reports whether a past lockout is eligible for lazy reset.
func (a *LoginAttempt) LockoutExpired(now time.Time) bool {
	return a != nil && a.LockedUntil != nil && !now.Before(*a.LockedUntil)
}
