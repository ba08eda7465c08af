package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("REFRESH_TOKEN_TTL_SECONDS", "3600")
	t.Setenv("IDENTITY_PUBLIC_KEY", `-----BEGIN PUBLIC KEY-----\nabc\n-----END PUBLIC KEY-----`)
	t.Setenv("IDENTITY_USERNAME_MAX_LEN", "12")
	t.Setenv("RECONCILE_SWEEP_SCHEDULE", "@every 1h")

	cfg := LoadConfig()

	assert.Same(t, cfg, AppConfig)
	assert.Equal(t, "8088", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "file:test.db", cfg.DatabaseURL)
	assert.Equal(t, "test-secret", cfg.JWTKey)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, "-----BEGIN PUBLIC KEY-----\nabc\n-----END PUBLIC KEY-----", cfg.IdentityPublicKey)
	assert.Equal(t, 12, cfg.IdentityUsernameMaxLen)
	assert.Equal(t, "@every 1h", cfg.ReconcileSweepSchedule)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SALT_ROUND", "not-a-number")
	t.Setenv("REQUEST_TIMEOUT", "soon")

	cfg := LoadConfig()

	assert.Equal(t, 10, cfg.SaltRound)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 30, cfg.IdentityUsernameMaxLen)
	assert.False(t, cfg.IsProduction())
}
