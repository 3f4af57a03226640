package models

import "time"

// Session is a persistent admin session row. The CSRF token is generated once
// at creation and survives rotation; rotation replaces the public session id
// and restarts both timestamps.
type Session struct {
	ID           string    `db:"session_id"`
	Username     string    `db:"username"`
	CreatedAt    time.Time `db:"created_at"`
	LastActivity time.Time `db:"last_activity"`
	IPAddress    string    `db:"ip_address"`
	UserAgent    string    `db:"user_agent"`
	CSRFToken    string    `db:"csrf_token"`
}

// IdleExpired reports whether the session has been idle past maxAge.
// Expiry is driven by last activity, not absolute lifetime.
func (s *Session) IdleExpired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.LastActivity) > maxAge
}

// Age returns the time since the session id was issued (reset on rotation).
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// SessionData is the view returned to callers after create/verify. Rotated is
// set when the caller must reissue the session cookie with the new id.
type SessionData struct {
	SessionID string   `json:"session_id"`
	User      Identity `json:"user"`
	CSRFToken string   `json:"csrf_token"`
	CreatedAt int64    `json:"created_at"`
	Rotated   bool     `json:"rotated"`
}
