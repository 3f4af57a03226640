package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/biyuboxing/adminauth/internal/models"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLite is the single-file store backend. It backs the same database file
// the content subsystem uses, but the four security tables are written only
// through this type.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens (or creates) the database file, applies pragmas for
// concurrent access, and runs the security-table migrations.
func NewSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	dsn := fmt.Sprintf(
		"file:%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		path,
	)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping sqlite database: %w", err)
	}

	if err := runMigrations(db, "sqlite3", "migrations/sqlite"); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite store opened", slog.String("path", path))

	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) Close() error {
	s.logger.Info("closing sqlite store")
	return s.db.Close()
}

func (s *SQLite) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite health check failed: %w", err)
	}
	return nil
}

func mapSQLiteError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

// Login attempts

func (s *SQLite) GetLoginAttempt(ctx context.Context, username string) (*models.LoginAttempt, error) {
	query := `
		SELECT username, attempt_count, locked_until, last_attempt
		FROM login_attempts
		WHERE username = ?
	`

	var (
		attempt     models.LoginAttempt
		lockedUntil sql.NullInt64
		lastAttempt int64
	)
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&attempt.Username, &attempt.AttemptCount, &lockedUntil, &lastAttempt,
	)
	if err != nil {
		return nil, mapSQLiteError(err)
	}

	attempt.LastAttempt = time.Unix(lastAttempt, 0)
	if lockedUntil.Valid {
		t := time.Unix(lockedUntil.Int64, 0)
		attempt.LockedUntil = &t
	}

	return &attempt, nil
}

// IncrementLoginAttempt atomically bumps the failure counter for a username,
// creating the row on first failure. When the new count reaches maxAttempts
// the row is locked until lockedUntil in the same statement, so two
// concurrent failures cannot under-count or double-lock.
func (s *SQLite) IncrementLoginAttempt(ctx context.Context, username string, now time.Time, maxAttempts int, lockedUntil time.Time) (int, error) {
	query := `
		INSERT INTO login_attempts (username, attempt_count, last_attempt, locked_until)
		VALUES (?, 1, ?, CASE WHEN 1 >= ? THEN ? ELSE NULL END)
		ON CONFLICT(username) DO UPDATE SET
			attempt_count = login_attempts.attempt_count + 1,
			last_attempt = excluded.last_attempt,
			locked_until = CASE
				WHEN login_attempts.attempt_count + 1 >= ? THEN ?
				ELSE login_attempts.locked_until
			END
		RETURNING attempt_count
	`

	var count int
	err := s.db.QueryRowContext(ctx, query,
		username, now.Unix(), maxAttempts, lockedUntil.Unix(),
		maxAttempts, lockedUntil.Unix(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to record login attempt: %w", err)
	}

	return count, nil
}

// ResetLoginAttempts clears the counter and lockout for a username. The row
// itself is kept as history.
func (s *SQLite) ResetLoginAttempts(ctx context.Context, username string) error {
	query := `UPDATE login_attempts SET attempt_count = 0, locked_until = NULL WHERE username = ?`
	_, err := s.db.ExecContext(ctx, query, username)
	return err
}

// Sessions

func (s *SQLite) CreateSession(ctx context.Context, sess *models.Session) error {
	query := `
		INSERT INTO sessions (session_id, username, created_at, last_activity, ip_address, user_agent, csrf_token)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		sess.ID, sess.Username, sess.CreatedAt.Unix(), sess.LastActivity.Unix(),
		sess.IPAddress, sess.UserAgent, sess.CSRFToken,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *SQLite) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `
		SELECT session_id, username, created_at, last_activity, ip_address, user_agent, csrf_token
		FROM sessions
		WHERE session_id = ?
	`

	var (
		sess                    models.Session
		createdAt, lastActivity int64
		ipAddress, userAgent    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&sess.ID, &sess.Username, &createdAt, &lastActivity,
		&ipAddress, &userAgent, &sess.CSRFToken,
	)
	if err != nil {
		return nil, mapSQLiteError(err)
	}

	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.LastActivity = time.Unix(lastActivity, 0)
	sess.IPAddress = ipAddress.String
	sess.UserAgent = userAgent.String

	return &sess, nil
}

// TouchSession bumps last_activity only.
func (s *SQLite) TouchSession(ctx context.Context, sessionID string, lastActivity time.Time) error {
	query := `UPDATE sessions SET last_activity = ? WHERE session_id = ?`
	_, err := s.db.ExecContext(ctx, query, lastActivity.Unix(), sessionID)
	return err
}

// RotateSession swaps the public identifier in place. Username, csrf_token,
// ip and user agent stay with the row.
func (s *SQLite) RotateSession(ctx context.Context, oldID, newID string, now time.Time) error {
	query := `
		UPDATE sessions
		SET session_id = ?, created_at = ?, last_activity = ?
		WHERE session_id = ?
	`
	_, err := s.db.ExecContext(ctx, query, newID, now.Unix(), now.Unix(), oldID)
	if err != nil {
		return fmt.Errorf("failed to rotate session: %w", err)
	}
	return nil
}

// DeleteSession removes a session row, reporting whether one existed.
func (s *SQLite) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *SQLite) DeleteIdleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_activity < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Rate limits

// TakeRateLimitToken runs one fixed-window check-and-count as a single
// transaction. At the limit the count is left untouched; the caller computes
// retry-after from the returned window start.
func (s *SQLite) TakeRateLimitToken(ctx context.Context, ip string, endpoint string, limit int, window time.Duration, now time.Time) (bool, int, time.Time, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, time.Time{}, err
	}
	defer tx.Rollback()

	var (
		count       int
		windowStart int64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT request_count, window_start FROM rate_limits WHERE ip_address = ? AND endpoint = ?`,
		ip, endpoint,
	).Scan(&count, &windowStart)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO rate_limits (ip_address, endpoint, request_count, window_start) VALUES (?, ?, 1, ?)`,
			ip, endpoint, now.Unix(),
		)
		if err != nil {
			return false, 0, time.Time{}, err
		}
		count, windowStart = 1, now.Unix()

	case err != nil:
		return false, 0, time.Time{}, err

	case now.Sub(time.Unix(windowStart, 0)) > window:
		// Stale window, start a fresh one
		_, err = tx.ExecContext(ctx,
			`UPDATE rate_limits SET request_count = 1, window_start = ? WHERE ip_address = ? AND endpoint = ?`,
			now.Unix(), ip, endpoint,
		)
		if err != nil {
			return false, 0, time.Time{}, err
		}
		count, windowStart = 1, now.Unix()

	case count >= limit:
		if err := tx.Commit(); err != nil {
			return false, 0, time.Time{}, err
		}
		return false, count, time.Unix(windowStart, 0), nil

	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE rate_limits SET request_count = request_count + 1 WHERE ip_address = ? AND endpoint = ?`,
			ip, endpoint,
		)
		if err != nil {
			return false, 0, time.Time{}, err
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return false, 0, time.Time{}, err
	}
	return true, count, time.Unix(windowStart, 0), nil
}

func (s *SQLite) DeleteStaleRateLimits(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM rate_limits WHERE window_start < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Audit log

func (s *SQLite) InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (id, timestamp, username, action, entity_type, entity_id, changes, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.Timestamp.Unix(), entry.Username, entry.Action,
		entry.EntityType, entry.EntityID, entry.Changes, entry.IPAddress, entry.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func (s *SQLite) ListAuditEntries(ctx context.Context, q models.AuditQuery) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, timestamp, username, action, entity_type, entity_id, changes, ip_address, user_agent
		FROM audit_log
		WHERE 1=1
	`
	args := make([]interface{}, 0, 4)

	if q.Username != "" {
		query += ` AND username = ?`
		args = append(args, q.Username)
	}
	if q.EntityType != "" {
		query += ` AND entity_type = ?`
		args = append(args, q.EntityType)
	}

	query += ` ORDER BY timestamp DESC LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.AuditEntry, 0)
	for rows.Next() {
		var (
			entry models.AuditEntry
			ts    int64
		)
		err := rows.Scan(
			&entry.ID, &ts, &entry.Username, &entry.Action, &entry.EntityType,
			&entry.EntityID, &entry.Changes, &entry.IPAddress, &entry.UserAgent,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Timestamp = time.Unix(ts, 0)
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}
