package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/biyuboxing/adminauth/internal/auth"
	"github.com/biyuboxing/adminauth/internal/background"
	"github.com/biyuboxing/adminauth/internal/config"
	"github.com/biyuboxing/adminauth/internal/handlers"
	middlewareCustom "github.com/biyuboxing/adminauth/internal/middleware"
	"github.com/biyuboxing/adminauth/internal/routes"
	"github.com/biyuboxing/adminauth/internal/services"
	"github.com/biyuboxing/adminauth/internal/store"
	pkgauth "github.com/biyuboxing/adminauth/pkg/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// securityStore is the full persistence surface the services need, plus
// lifecycle. Satisfied by both store backends.
type securityStore interface {
	services.LoginAttemptStore
	services.SessionStore
	services.RateLimitStore
	services.AuditStore
	HealthCheck(ctx context.Context) error
	Close() error
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("db_driver", cfg.Database.Driver))

	// Initialize the store backend
	var db securityStore
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err = store.NewPostgres(&cfg.Database, logger)
	default:
		db, err = store.NewSQLite(cfg.Database.Path, logger)
	}
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize services
	verifier := pkgauth.NewVerifier(cfg.Auth.HashConcurrency)
	auditService := services.NewAuditService(db, logger)
	authService := services.NewAuthService(db, auditService, cfg.Users, verifier, cfg.Auth, logger)
	sessionService := services.NewSessionService(db, cfg.Users, auditService, cfg.Auth, logger)
	rateLimitService := services.NewRateLimitService(db, cfg.RateLimit, logger)

	cleanupManager := background.NewCleanupManager(sessionService, rateLimitService, logger, cfg.Auth.CleanupInterval)

	// Failed logins are padded to blur the timing difference between an
	// unknown username and a wrong password.
	timingDelay := auth.NewTimingDelay(200*time.Millisecond, 100*time.Millisecond)

	secureCookies := cfg.Server.Env == "production"
	sessionMiddleware := auth.NewMiddleware(sessionService, cfg.Auth.SessionMaxAge, secureCookies, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, sessionService, timingDelay, cfg.Auth.SessionMaxAge, secureCookies)
	auditHandler := handlers.NewAuditHandler(auditService)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(middlewareCustom.BurstLimit(300))

	routes.RegisterRoutes(router, authHandler, auditHandler, sessionMiddleware, rateLimitService, logger)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
