package routes

import (
	"log/slog"

	"github.com/biyuboxing/adminauth/internal/auth"
	"github.com/biyuboxing/adminauth/internal/handlers"
	"github.com/biyuboxing/adminauth/internal/middleware"
	"github.com/biyuboxing/adminauth/internal/models"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the admin auth surface under /admin.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	auditHandler *handlers.AuditHandler,
	session *auth.Middleware,
	limiter middleware.RateLimiter,
	logger *slog.Logger,
) {
	router.Route("/admin", func(r chi.Router) {
		r.Use(session.CheckAuth)

		// Login sits on the strict auth budget: five attempts per window
		// per IP, counted across restarts.
		r.With(middleware.RateLimitByClass(limiter, models.EndpointClassAuth)).
			Post("/api/auth/login", authHandler.Login)

		// Logout needs no CSRF token; the worst a forged logout does is
		// sign the victim out.
		r.Post("/api/auth/logout", authHandler.Logout)

		// Authenticated API routes on the general budget.
		r.Group(func(r chi.Router) {
			r.Use(session.RequireAuth)
			r.Use(middleware.RateLimitByClass(limiter, models.EndpointClassAPI))
			r.Use(middleware.CSRFProtection(logger))

			r.Get("/api/auth/session", authHandler.Session)

			// Administrator-only routes.
			r.Group(func(r chi.Router) {
				r.Use(session.RequireAdministrator)
				r.Get("/api/audit", auditHandler.List)
			})
		})
	})
}
