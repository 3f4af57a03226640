package services

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/biyuboxing/adminauth/internal/config"
	"github.com/biyuboxing/adminauth/internal/models"
)

// RateLimitStore defines the interface for fixed-window persistence
type RateLimitStore interface {
	TakeRateLimitToken(ctx context.Context, ip string, endpoint string, limit int, window time.Duration, now time.Time) (allowed bool, count int, windowStart time.Time, err error)
	DeleteStaleRateLimits(ctx context.Context, cutoff time.Time) (int64, error)
}

// staleWindowAge is how long a rate-limit row may sit untouched before the
// cleanup sweep removes it.
const staleWindowAge = 24 * time.Hour

// RateLimitService enforces fixed-window budgets per (ip, endpoint class).
// Unlike the lockout and session paths, a store failure here fails OPEN: an
// infrastructure fault must not take down legitimate traffic.
type RateLimitService struct {
	store  RateLimitStore
	config config.RateLimitConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(store RateLimitStore, cfg config.RateLimitConfig, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		store:  store,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Check counts one request against the window for (ip, class) and decides
// whether to allow it. Denials report how many seconds remain until the
// window resets.
func (s *RateLimitService) Check(ctx context.Context, ip string, class models.EndpointClass) models.RateLimitDecision {
	policy := s.config.Policy(class)
	now := s.now()

	allowed, count, windowStart, err := s.store.TakeRateLimitToken(ctx, ip, string(class), policy.Requests, policy.Window, now)
	if err != nil {
		s.logger.Error("rate limit check failed, allowing request",
			slog.String("ip_address", ip),
			slog.String("endpoint_class", string(class)),
			slog.Any("error", err))
		return models.RateLimitDecision{Allowed: true, Remaining: 0}
	}

	if !allowed {
		resetAt := windowStart.Add(policy.Window)
		retryAfter := int(math.Ceil(resetAt.Sub(now).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		s.logger.Warn("rate limit exceeded",
			slog.String("ip_address", ip),
			slog.String("endpoint_class", string(class)),
			slog.Int("request_count", count))
		return models.RateLimitDecision{Allowed: false, RetryAfter: retryAfter}
	}

	return models.RateLimitDecision{Allowed: true, Remaining: policy.Requests - count}
}

// CleanupStale removes windows that have not started in the last 24 hours.
func (s *RateLimitService) CleanupStale(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-staleWindowAge)
	return s.store.DeleteStaleRateLimits(ctx, cutoff)
}
