package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadWithoutDatabaseRunsInDemoMode(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("IDENTITY_PROVIDER", "")
	t.Setenv("FIREBASE_PROJECT_ID", "")
	t.Setenv("JWT_SECRET", "")

	cfg := Load()
	assert.False(t, cfg.DatabaseConfigured())
	assert.Equal(t, ProviderNone, cfg.IdentityProvider)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.False(t, cfg.IsProd())
}

func TestLoadPicksProviderFromCredentials(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("IDENTITY_PROVIDER", "")
	t.Setenv("FIREBASE_PROJECT_ID", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg := Load()
	assert.Equal(t, ProviderLocal, cfg.IdentityProvider)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.True(t, cfg.DatabaseConfigured())
	assert.True(t, cfg.IsProd())

	t.Setenv("FIREBASE_PROJECT_ID", "elpaso-verse")
	assert.Equal(t, ProviderFirebase, Load().IdentityProvider)
}

func TestRateLimitConfigNormalized(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL)

	t.Setenv("RATE_LIMIT_REFILL_EVERY", "500ms")
	cfg = LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 500*time.Millisecond, cfg.RefillInterval)
}

func TestSignupDefaults(t *testing.T) {
	cfg := LoadSignupConfig()
	assert.EqualValues(t, 25, cfg.BonusAmount)
	assert.Equal(t, 3, cfg.MaxSignupsPerIP)
	assert.Equal(t, 24*time.Hour, cfg.Window)
	assert.Empty(t, cfg.RecaptchaSecret)
}

func TestEventsDefaultToInProcess(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "")
	cfg := LoadEventsConfig()
	assert.Empty(t, cfg.AMQPURL)
	assert.Equal(t, "portal.activity", cfg.Queue)
}
