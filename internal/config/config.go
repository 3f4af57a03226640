package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/biyuboxing/adminauth/internal/models"
	"github.com/joho/godotenv"
)

// Database drivers supported by the store layer.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Users     UserDirectory
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	// Driver selects the store backend: a single-file SQLite database
	// (default, matches the site deployment) or a shared Postgres cluster.
	Driver string

	// SQLite
	Path string

	// Postgres
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type AuthConfig struct {
	SessionMaxAge    time.Duration
	RotationInterval time.Duration
	MaxLoginAttempts int
	LockoutDuration  time.Duration
	// HashConcurrency bounds how many argon2id verifications may run at once.
	// Each verification pins 64 MiB, so this is a memory budget.
	HashConcurrency int
	CleanupInterval time.Duration
}

// RateLimitPolicy is one fixed-window budget.
type RateLimitPolicy struct {
	Requests int
	Window   time.Duration
}

type RateLimitConfig struct {
	Auth   RateLimitPolicy
	API    RateLimitPolicy
	Upload RateLimitPolicy
}

// Policy returns the budget for an endpoint class, defaulting to the general
// API policy for unknown classes.
func (c RateLimitConfig) Policy(class models.EndpointClass) RateLimitPolicy {
	switch class {
	case models.EndpointClassAuth:
		return c.Auth
	case models.EndpointClassUpload:
		return c.Upload
	default:
		return c.API
	}
}

// UserDirectory is the static, in-config set of admin users. Password hashes
// are supplied via environment, never stored in the database.
type UserDirectory struct {
	users map[string]*models.User
}

// Lookup resolves a username case-insensitively.
func (d *UserDirectory) Lookup(username string) (*models.User, bool) {
	u, ok := d.users[strings.ToLower(username)]
	return u, ok
}

// Usernames returns all configured usernames.
func (d *UserDirectory) Usernames() []string {
	names := make([]string, 0, len(d.users))
	for name := range d.users {
		names = append(names, name)
	}
	return names
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			Env:      env,
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Driver:            getEnv("DB_DRIVER", DriverSQLite),
			Path:              getEnv("DB_PATH", "database/biyuboxing.db"),
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "biyuboxing"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Auth: AuthConfig{
			SessionMaxAge:    getEnvAsDuration("SESSION_MAX_AGE", 24*time.Hour),
			RotationInterval: getEnvAsDuration("SESSION_ROTATION_INTERVAL", 1*time.Hour),
			MaxLoginAttempts: getEnvAsInt("MAX_LOGIN_ATTEMPTS", 5),
			LockoutDuration:  getEnvAsDuration("LOCKOUT_DURATION", 15*time.Minute),
			HashConcurrency:  getEnvAsInt("HASH_CONCURRENCY", 4),
			CleanupInterval:  getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Auth:   RateLimitPolicy{Requests: getEnvAsInt("RATE_LIMIT_AUTH_REQUESTS", 5), Window: getEnvAsDuration("RATE_LIMIT_AUTH_WINDOW", 15*time.Minute)},
			API:    RateLimitPolicy{Requests: getEnvAsInt("RATE_LIMIT_API_REQUESTS", 100), Window: getEnvAsDuration("RATE_LIMIT_API_WINDOW", 1*time.Minute)},
			Upload: RateLimitPolicy{Requests: getEnvAsInt("RATE_LIMIT_UPLOAD_REQUESTS", 10), Window: getEnvAsDuration("RATE_LIMIT_UPLOAD_WINDOW", 1*time.Minute)},
		},
	}

	switch cfg.Database.Driver {
	case DriverSQLite:
		if cfg.Database.Path == "" {
			return nil, fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if cfg.Database.Password == "" {
			return nil, fmt.Errorf("DB_PASSWORD is required for the postgres driver")
		}
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %q", cfg.Database.Driver)
	}

	users, err := loadUserDirectory(env)
	if err != nil {
		return nil, err
	}
	cfg.Users = users

	return cfg, nil
}

// loadUserDirectory builds the static user directory and validates it at
// startup. In production a missing password hash is fatal; the credential
// verifier still refuses such users at runtime as a second line.
func loadUserDirectory(env string) (UserDirectory, error) {
	users := map[string]*models.User{
		"admin": {
			Username:     "admin",
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
			Role:         models.RoleAdministrator,
			DisplayName:  "Admin",
		},
		"lee": {
			Username:     "lee",
			PasswordHash: os.Getenv("LEE_PASSWORD_HASH"),
			Role:         models.RoleEditor,
			DisplayName:  "Lee",
		},
	}

	if env == "production" {
		for name, u := range users {
			if u.PasswordHash == "" {
				return UserDirectory{}, fmt.Errorf("no password hash configured for user %q", name)
			}
		}
	}

	return UserDirectory{users: users}, nil
}

// NewUserDirectory builds a directory from explicit entries. Used by tests
// and by callers that do not read the environment.
func NewUserDirectory(entries ...*models.User) UserDirectory {
	users := make(map[string]*models.User, len(entries))
	for _, u := range entries {
		users[strings.ToLower(u.Username)] = u
	}
	return UserDirectory{users: users}
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
