package services

import (
	"context"
	"testing"
	"time"

	"github.com/biyuboxing/adminauth/internal/config"
	"github.com/biyuboxing/adminauth/internal/models"
	"github.com/stretchr/testify/assert"
)

func testRateLimitConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Auth:   config.RateLimitPolicy{Requests: 5, Window: 15 * time.Minute},
		API:    config.RateLimitPolicy{Requests: 100, Window: 1 * time.Minute},
		Upload: config.RateLimitPolicy{Requests: 10, Window: 1 * time.Minute},
	}
}

func newRateLimitService(store *fakeRateLimitStore) (*RateLimitService, *clock) {
	clk := newClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := NewRateLimitService(store, testRateLimitConfig(), discardLogger())
	svc.now = clk.Now
	return svc, clk
}

func TestCheck_Allowed(t *testing.T) {
	store := &fakeRateLimitStore{
		takeFunc: func(ctx context.Context, ip, endpoint string, limit int, window time.Duration, now time.Time) (bool, int, time.Time, error) {
			assert.Equal(t, "203.0.113.7", ip)
			assert.Equal(t, "auth", endpoint)
			assert.Equal(t, 5, limit)
			assert.Equal(t, 15*time.Minute, window)
			return true, 2, now, nil
		},
	}
	svc, _ := newRateLimitService(store)

	decision := svc.Check(context.Background(), "203.0.113.7", models.EndpointClassAuth)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 3, decision.Remaining)
}

func TestCheck_Denied(t *testing.T) {
	var clk *clock
	store := &fakeRateLimitStore{
		takeFunc: func(ctx context.Context, ip, endpoint string, limit int, window time.Duration, now time.Time) (bool, int, time.Time, error) {
			// Window opened ten minutes ago; five minutes remain.
			return false, 5, clk.Now().Add(-10 * time.Minute), nil
		},
	}
	svc, c := newRateLimitService(store)
	clk = c

	decision := svc.Check(context.Background(), "203.0.113.7", models.EndpointClassAuth)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 300, decision.RetryAfter)
}

func TestCheck_DeniedMinimumRetryAfter(t *testing.T) {
	var clk *clock
	store := &fakeRateLimitStore{
		takeFunc: func(ctx context.Context, ip, endpoint string, limit int, window time.Duration, now time.Time) (bool, int, time.Time, error) {
			return false, 5, clk.Now().Add(-window), nil
		},
	}
	svc, c := newRateLimitService(store)
	clk = c

	decision := svc.Check(context.Background(), "203.0.113.7", models.EndpointClassAuth)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 1, decision.RetryAfter)
}

func TestCheck_StoreErrorFailsOpen(t *testing.T) {
	store := &fakeRateLimitStore{
		takeFunc: func(ctx context.Context, ip, endpoint string, limit int, window time.Duration, now time.Time) (bool, int, time.Time, error) {
			return false, 0, time.Time{}, assert.AnError
		},
	}
	svc, _ := newRateLimitService(store)

	decision := svc.Check(context.Background(), "203.0.113.7", models.EndpointClassAuth)
	assert.True(t, decision.Allowed, "infrastructure faults must not block traffic")
}

func TestCheck_UnknownClassUsesAPIPolicy(t *testing.T) {
	store := &fakeRateLimitStore{
		takeFunc: func(ctx context.Context, ip, endpoint string, limit int, window time.Duration, now time.Time) (bool, int, time.Time, error) {
			assert.Equal(t, 100, limit)
			assert.Equal(t, 1*time.Minute, window)
			return true, 1, now, nil
		},
	}
	svc, _ := newRateLimitService(store)

	decision := svc.Check(context.Background(), "203.0.113.7", models.EndpointClass("mystery"))
	assert.True(t, decision.Allowed)
	assert.Equal(t, 99, decision.Remaining)
}

func TestCleanupStale(t *testing.T) {
	store := &fakeRateLimitStore{deleted: 7}
	svc, _ := newRateLimitService(store)

	removed, err := svc.CleanupStale(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(7), removed)
}
