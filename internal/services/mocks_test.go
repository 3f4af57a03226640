package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/biyuboxing/adminauth/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// clock is a settable time source for the services' now func.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock {
	return &clock{t: t}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeAttemptStore mirrors the upsert semantics of the SQL stores in memory.
type fakeAttemptStore struct {
	attempts map[string]*models.LoginAttempt

	getErr   error
	incErr   error
	resetErr error
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{attempts: make(map[string]*models.LoginAttempt)}
}

func (f *fakeAttemptStore) GetLoginAttempt(ctx context.Context, username string) (*models.LoginAttempt, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.attempts[username]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeAttemptStore) IncrementLoginAttempt(ctx context.Context, username string, now time.Time, maxAttempts int, lockedUntil time.Time) (int, error) {
	if f.incErr != nil {
		return 0, f.incErr
	}
	rec, ok := f.attempts[username]
	if !ok {
		rec = &models.LoginAttempt{Username: username}
		f.attempts[username] = rec
	}
	rec.AttemptCount++
	rec.LastAttempt = now
	if rec.AttemptCount >= maxAttempts {
		until := lockedUntil
		rec.LockedUntil = &until
	}
	return rec.AttemptCount, nil
}

func (f *fakeAttemptStore) ResetLoginAttempts(ctx context.Context, username string) error {
	if f.resetErr != nil {
		return f.resetErr
	}
	delete(f.attempts, username)
	return nil
}

// fakeSessionStore keeps sessions in a map keyed by session id.
type fakeSessionStore struct {
	sessions map[string]*models.Session

	createErr error
	getErr    error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*models.Session)}
}

func (f *fakeSessionStore) CreateSession(ctx context.Context, sess *models.Session) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *sess
	f.sessions[sess.ID] = &cp
	return nil
}

func (f *fakeSessionStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (f *fakeSessionStore) TouchSession(ctx context.Context, sessionID string, lastActivity time.Time) error {
	sess, ok := f.sessions[sessionID]
	if !ok {
		return models.ErrNotFound
	}
	sess.LastActivity = lastActivity
	return nil
}

func (f *fakeSessionStore) RotateSession(ctx context.Context, oldID, newID string, now time.Time) error {
	sess, ok := f.sessions[oldID]
	if !ok {
		return models.ErrNotFound
	}
	delete(f.sessions, oldID)
	sess.ID = newID
	sess.CreatedAt = now
	sess.LastActivity = now
	f.sessions[newID] = sess
	return nil
}

func (f *fakeSessionStore) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	if _, ok := f.sessions[sessionID]; !ok {
		return false, nil
	}
	delete(f.sessions, sessionID)
	return true, nil
}

func (f *fakeSessionStore) DeleteIdleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for id, sess := range f.sessions {
		if !sess.LastActivity.After(cutoff) {
			delete(f.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// fakeAuditStore records inserted entries for assertions.
type fakeAuditStore struct {
	entries   []*models.AuditEntry
	insertErr error
	listErr   error
}

func (f *fakeAuditStore) InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditStore) ListAuditEntries(ctx context.Context, q models.AuditQuery) ([]*models.AuditEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.AuditEntry
	for i := len(f.entries) - 1; i >= 0; i-- {
		e := f.entries[i]
		if q.Username != "" && e.Username != q.Username {
			continue
		}
		if q.EntityType != "" && e.EntityType != q.EntityType {
			continue
		}
		out = append(out, e)
	}
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeAuditStore) actions() []string {
	var actions []string
	for _, e := range f.entries {
		actions = append(actions, e.Action)
	}
	return actions
}

// fakeRateLimitStore delegates to a configurable take function.
type fakeRateLimitStore struct {
	takeFunc  func(ctx context.Context, ip, endpoint string, limit int, window time.Duration, now time.Time) (bool, int, time.Time, error)
	deleteErr error
	deleted   int64
}

func (f *fakeRateLimitStore) TakeRateLimitToken(ctx context.Context, ip, endpoint string, limit int, window time.Duration, now time.Time) (bool, int, time.Time, error) {
	return f.takeFunc(ctx, ip, endpoint, limit, window, now)
}

func (f *fakeRateLimitStore) DeleteStaleRateLimits(ctx context.Context, cutoff time.Time) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	return f.deleted, nil
}
