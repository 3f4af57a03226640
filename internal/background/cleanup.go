package background

import (
	"context"
	"log/slog"
	"time"
)

// SessionCleaner removes sessions idle past the max age.
type SessionCleaner interface {
	CleanupIdle(ctx context.Context) (int64, error)
}

// RateLimitCleaner removes rate-limit windows no request has touched in over
// a day.
type RateLimitCleaner interface {
	CleanupStale(ctx context.Context) (int64, error)
}

// CleanupManager periodically sweeps idle sessions and stale rate-limit
// windows. Both are also expired lazily on access; the sweep handles rows
// nobody revisits.
type CleanupManager struct {
	sessions   SessionCleaner
	rateLimits RateLimitCleaner
	logger     *slog.Logger
	interval   time.Duration
	stopCh     chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	sessions SessionCleaner,
	rateLimits RateLimitCleaner,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		sessions:   sessions,
		rateLimits: rateLimits,
		logger:     logger,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runCleanup performs a single sweep with a bounded deadline.
func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	sessionsDeleted, err := cm.sessions.CleanupIdle(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup idle sessions", slog.Any("error", err))
	} else if sessionsDeleted > 0 {
		cm.logger.Info("idle session cleanup completed", slog.Int64("rows_deleted", sessionsDeleted))
	}

	windowsDeleted, err := cm.rateLimits.CleanupStale(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup stale rate limit windows", slog.Any("error", err))
	} else if windowsDeleted > 0 {
		cm.logger.Info("stale rate limit cleanup completed", slog.Int64("rows_deleted", windowsDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
