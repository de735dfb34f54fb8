package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/freshledger")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
	assert.Equal(t, 30*time.Second, cfg.DBStatementTimeout)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 12*time.Hour, cfg.JWTAccessTTL)
	assert.True(t, cfg.IdempotencyOn)
	assert.False(t, cfg.RedisEnabled())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/freshledger")
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("MIGRATE_ON_START", "true")
	t.Setenv("OUTBOX_INTERVAL", "250ms")
	t.Setenv("DB_MAX_CONNS", "10")
	t.Setenv("DB_STATEMENT_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.True(t, cfg.RedisEnabled())
	assert.True(t, cfg.MigrateOnStart)
	assert.Equal(t, 250*time.Millisecond, cfg.OutboxInterval)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, 5*time.Second, cfg.DBStatementTimeout)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Env: "development", DatabaseURL: "postgres://x", JWTSecret: "k", DBMaxConns: 5, OutboxBatchSize: 10,
			OutboxInterval: time.Second, PoolStatsInterval: time.Minute}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing dsn", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"dev secret in production", func(c *Config) { c.Env = "production"; c.JWTSecret = devJWTSecret }, "must be changed"},
		{"operator without hash", func(c *Config) { c.OperatorName = "admin" }, "OPERATOR_PASSWORD_HASH"},
		{"zero pool", func(c *Config) { c.DBMaxConns = 0 }, "DB_MAX_CONNS"},
		{"negative statement timeout", func(c *Config) { c.DBStatementTimeout = -time.Second }, "DB_STATEMENT_TIMEOUT"},
		{"zero interval", func(c *Config) { c.OutboxInterval = 0 }, "OUTBOX_INTERVAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/freshledger")
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
