package config_test

import (
	"testing"
	"time"

	"github.com/biyuboxing/adminauth/internal/config"
	"github.com/biyuboxing/adminauth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_PATH", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, config.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionMaxAge)
	assert.Equal(t, 1*time.Hour, cfg.Auth.RotationInterval)
	assert.Equal(t, 5, cfg.Auth.MaxLoginAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LockoutDuration)

	assert.Equal(t, 5, cfg.RateLimit.Auth.Requests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Auth.Window)
	assert.Equal(t, 100, cfg.RateLimit.API.Requests)
	assert.Equal(t, 1*time.Minute, cfg.RateLimit.API.Window)
	assert.Equal(t, 10, cfg.RateLimit.Upload.Requests)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("SESSION_MAX_AGE", "1h")
	t.Setenv("MAX_LOGIN_ATTEMPTS", "3")
	t.Setenv("RATE_LIMIT_AUTH_REQUESTS", "10")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 1*time.Hour, cfg.Auth.SessionMaxAge)
	assert.Equal(t, 3, cfg.Auth.MaxLoginAttempts)
	assert.Equal(t, 10, cfg.RateLimit.Auth.Requests)
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_PostgresRequiresPassword(t *testing.T) {
	t.Setenv("DB_DRIVER", config.DriverPostgres)
	t.Setenv("DB_PASSWORD", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_ProductionRequiresPasswordHashes(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("ADMIN_PASSWORD_HASH", "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA")
	t.Setenv("LEE_PASSWORD_HASH", "")

	_, err := config.Load()
	assert.Error(t, err, "production must fail fast on a missing hash")

	t.Setenv("LEE_PASSWORD_HASH", "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA")
	cfg, err := config.Load()
	require.NoError(t, err)

	user, ok := cfg.Users.Lookup("lee")
	require.True(t, ok)
	assert.Equal(t, models.RoleEditor, user.Role)
}

func TestUserDirectory_CaseInsensitiveLookup(t *testing.T) {
	dir := config.NewUserDirectory(
		&models.User{Username: "Admin", Role: models.RoleAdministrator},
	)

	user, ok := dir.Lookup("aDmIn")
	require.True(t, ok)
	assert.Equal(t, "Admin", user.Username)

	_, ok = dir.Lookup("ghost")
	assert.False(t, ok)
}

func TestRateLimitConfig_Policy(t *testing.T) {
	cfg := config.RateLimitConfig{
		Auth:   config.RateLimitPolicy{Requests: 5, Window: 15 * time.Minute},
		API:    config.RateLimitPolicy{Requests: 100, Window: time.Minute},
		Upload: config.RateLimitPolicy{Requests: 10, Window: time.Minute},
	}

	assert.Equal(t, 5, cfg.Policy(models.EndpointClassAuth).Requests)
	assert.Equal(t, 10, cfg.Policy(models.EndpointClassUpload).Requests)
	assert.Equal(t, 100, cfg.Policy(models.EndpointClass("whatever")).Requests)
}
