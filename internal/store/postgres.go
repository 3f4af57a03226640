package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/biyuboxing/adminauth/internal/config"
	"github.com/biyuboxing/adminauth/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres is the shared-cluster store backend. When several site processes
// point at the same cluster, lockouts and rate-limit windows apply across
// the fleet.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres connects, runs migrations through the database/sql adapter,
// then opens the pgx pool used at runtime.
func NewPostgres(cfg *config.DatabaseConfig, logger *slog.Logger) (*Postgres, error) {
	migrateDB, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to open migration connection: %w", err)
	}
	if err := runMigrations(migrateDB, "postgres", "migrations/postgres"); err != nil {
		migrateDB.Close()
		return nil, err
	}
	if err := migrateDB.Close(); err != nil {
		return nil, fmt.Errorf("unable to close migration connection: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger.Info("postgres store connected",
		slog.Int("max_conns", int(cfg.MaxConns)),
		slog.Int("min_conns", int(cfg.MinConns)),
	)

	return &Postgres{pool: pool, logger: logger}, nil
}

func (s *Postgres) Close() error {
	s.logger.Info("closing postgres connection pool")
	s.pool.Close()
	return nil
}

func (s *Postgres) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	return nil
}

func mapPostgresError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

// Login attempts

func (s *Postgres) GetLoginAttempt(ctx context.Context, username string) (*models.LoginAttempt, error) {
	query := `
		SELECT username, attempt_count, locked_until, last_attempt
		FROM login_attempts
		WHERE username = $1
	`

	var attempt models.LoginAttempt
	err := s.pool.QueryRow(ctx, query, username).Scan(
		&attempt.Username, &attempt.AttemptCount, &attempt.LockedUntil, &attempt.LastAttempt,
	)
	if err != nil {
		return nil, mapPostgresError(err)
	}

	return &attempt, nil
}

func (s *Postgres) IncrementLoginAttempt(ctx context.Context, username string, now time.Time, maxAttempts int, lockedUntil time.Time) (int, error) {
	query := `
		INSERT INTO login_attempts (username, attempt_count, last_attempt, locked_until)
		VALUES ($1, 1, $2, CASE WHEN 1 >= $3 THEN $4 ELSE NULL END)
		ON CONFLICT (username) DO UPDATE SET
			attempt_count = login_attempts.attempt_count + 1,
			last_attempt = EXCLUDED.last_attempt,
			locked_until = CASE
				WHEN login_attempts.attempt_count + 1 >= $3 THEN $4
				ELSE login_attempts.locked_until
			END
		RETURNING attempt_count
	`

	var count int
	err := s.pool.QueryRow(ctx, query, username, now, maxAttempts, lockedUntil).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to record login attempt: %w", err)
	}

	return count, nil
}

func (s *Postgres) ResetLoginAttempts(ctx context.Context, username string) error {
	query := `UPDATE login_attempts SET attempt_count = 0, locked_until = NULL WHERE username = $1`
	_, err := s.pool.Exec(ctx, query, username)
	return err
}

// Sessions

func (s *Postgres) CreateSession(ctx context.Context, sess *models.Session) error {
	query := `
		INSERT INTO sessions (session_id, username, created_at, last_activity, ip_address, user_agent, csrf_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		sess.ID, sess.Username, sess.CreatedAt, sess.LastActivity,
		sess.IPAddress, sess.UserAgent, sess.CSRFToken,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *Postgres) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `
		SELECT session_id, username, created_at, last_activity, ip_address, user_agent, csrf_token
		FROM sessions
		WHERE session_id = $1
	`

	var (
		sess                 models.Session
		ipAddress, userAgent *string
	)
	err := s.pool.QueryRow(ctx, query, sessionID).Scan(
		&sess.ID, &sess.Username, &sess.CreatedAt, &sess.LastActivity,
		&ipAddress, &userAgent, &sess.CSRFToken,
	)
	if err != nil {
		return nil, mapPostgresError(err)
	}

	if ipAddress != nil {
		sess.IPAddress = *ipAddress
	}
	if userAgent != nil {
		sess.UserAgent = *userAgent
	}

	return &sess, nil
}

func (s *Postgres) TouchSession(ctx context.Context, sessionID string, lastActivity time.Time) error {
	query := `UPDATE sessions SET last_activity = $1 WHERE session_id = $2`
	_, err := s.pool.Exec(ctx, query, lastActivity, sessionID)
	return err
}

func (s *Postgres) RotateSession(ctx context.Context, oldID, newID string, now time.Time) error {
	query := `
		UPDATE sessions
		SET session_id = $1, created_at = $2, last_activity = $2
		WHERE session_id = $3
	`
	_, err := s.pool.Exec(ctx, query, newID, now, oldID)
	if err != nil {
		return fmt.Errorf("failed to rotate session: %w", err)
	}
	return nil
}

func (s *Postgres) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (s *Postgres) DeleteIdleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE last_activity < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Rate limits

// TakeRateLimitToken mirrors the SQLite implementation with the row locked
// for the duration of the transaction, so concurrent requests from one IP
// serialize on the window row instead of under-counting.
func (s *Postgres) TakeRateLimitToken(ctx context.Context, ip string, endpoint string, limit int, window time.Duration, now time.Time) (bool, int, time.Time, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, 0, time.Time{}, err
	}
	defer tx.Rollback(ctx)

	// Two first requests for a fresh key would otherwise race the insert.
	// Seeding a zero-count row and then locking it serializes them.
	_, err = tx.Exec(ctx,
		`INSERT INTO rate_limits (ip_address, endpoint, request_count, window_start)
		 VALUES ($1, $2, 0, $3)
		 ON CONFLICT (ip_address, endpoint) DO NOTHING`,
		ip, endpoint, now,
	)
	if err != nil {
		return false, 0, time.Time{}, err
	}

	var (
		count       int
		windowStart time.Time
	)
	err = tx.QueryRow(ctx,
		`SELECT request_count, window_start FROM rate_limits WHERE ip_address = $1 AND endpoint = $2 FOR UPDATE`,
		ip, endpoint,
	).Scan(&count, &windowStart)
	if err != nil {
		return false, 0, time.Time{}, err
	}

	switch {
	case count == 0 || now.Sub(windowStart) > window:
		_, err = tx.Exec(ctx,
			`UPDATE rate_limits SET request_count = 1, window_start = $1 WHERE ip_address = $2 AND endpoint = $3`,
			now, ip, endpoint,
		)
		if err != nil {
			return false, 0, time.Time{}, err
		}
		count, windowStart = 1, now

	case count >= limit:
		if err := tx.Commit(ctx); err != nil {
			return false, 0, time.Time{}, err
		}
		return false, count, windowStart, nil

	default:
		_, err = tx.Exec(ctx,
			`UPDATE rate_limits SET request_count = request_count + 1 WHERE ip_address = $1 AND endpoint = $2`,
			ip, endpoint,
		)
		if err != nil {
			return false, 0, time.Time{}, err
		}
		count++
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, time.Time{}, err
	}
	return true, count, windowStart, nil
}

func (s *Postgres) DeleteStaleRateLimits(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM rate_limits WHERE window_start < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Audit log

func (s *Postgres) InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (id, timestamp, username, action, entity_type, entity_id, changes, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		entry.ID, entry.Timestamp, entry.Username, entry.Action,
		entry.EntityType, entry.EntityID, entry.Changes, entry.IPAddress, entry.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func (s *Postgres) ListAuditEntries(ctx context.Context, q models.AuditQuery) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, timestamp, username, action, entity_type, entity_id, changes, ip_address, user_agent
		FROM audit_log
		WHERE 1=1
	`
	args := make([]interface{}, 0, 4)

	if q.Username != "" {
		args = append(args, q.Username)
		query += fmt.Sprintf(` AND username = $%d`, len(args))
	}
	if q.EntityType != "" {
		args = append(args, q.EntityType)
		query += fmt.Sprintf(` AND entity_type = $%d`, len(args))
	}

	args = append(args, q.Limit)
	query += fmt.Sprintf(` ORDER BY timestamp DESC LIMIT $%d`, len(args))
	args = append(args, q.Offset)
	query += fmt.Sprintf(` OFFSET $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.AuditEntry, 0)
	for rows.Next() {
		var entry models.AuditEntry
		err := rows.Scan(
			&entry.ID, &entry.Timestamp, &entry.Username, &entry.Action, &entry.EntityType,
			&entry.EntityID, &entry.Changes, &entry.IPAddress, &entry.UserAgent,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}
