package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/biyuboxing/adminauth/internal/models"
	pkghttp "github.com/biyuboxing/adminauth/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimiter decides whether a client may proceed on a rate-limited
// endpoint class. Implemented by services.RateLimitService.
type RateLimiter interface {
	Check(ctx context.Context, ipAddress string, class models.EndpointClass) models.RateLimitDecision
}

// RateLimitByClass enforces the persisted per-IP budget for an endpoint
// class. Denials carry a Retry-After header and a JSON body.
func RateLimitByClass(limiter RateLimiter, class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := pkghttp.ExtractClientIP(r)

			decision := limiter.Check(r.Context(), ip, class)
			if !decision.Allowed {
				pkghttp.WriteTooManyRequests(w, "Too many requests. Please try again later.", decision.RetryAfter)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

// BurstLimit is an in-memory guard in front of the persisted limiter. It
// absorbs floods cheaply before they reach the database.
func BurstLimit(requestsPerMinute int) func(next http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many requests. Please try again later.", 60)
		}),
	)
}
