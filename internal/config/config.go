// Package config loads process configuration from the environment, an
// optional .env file and an optional freshledger.yml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const devJWTSecret = "dev-secret-change-in-production"

// Config holds process configuration shared by the server, worker and
// migrate commands.
type Config struct {
	Env      string
	HTTPPort string
	LogLevel string

	DatabaseURL string
	DBMaxConns  int32
	// DBStatementTimeout bounds every statement of the server and worker
	// sessions.
	DBStatementTimeout time.Duration
	MigrateOnStart     bool

	JWTSecret      string
	JWTAccessTTL   time.Duration
	OperatorName   string
	OperatorHash   string
	MaxLoginFails  int
	LoginLockout   time.Duration
	IdempotencyOn  bool
	IdempotencyTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	EventsChannel string

	OutboxBatchSize   int
	OutboxInterval    time.Duration
	OutboxRetention   time.Duration
	ShutdownTimeout   time.Duration
	PoolStatsInterval time.Duration
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// Load reads .env (if present), freshledger.yml (if present) and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("freshledger")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/freshledger")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("app_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("database_url", "")
	v.SetDefault("db_max_conns", 25)
	v.SetDefault("db_statement_timeout", 30*time.Second)
	v.SetDefault("migrate_on_start", false)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_access_ttl", 12*time.Hour)
	v.SetDefault("operator_username", "")
	v.SetDefault("operator_password_hash", "")
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_lock_duration", 15*time.Minute)
	v.SetDefault("idempotency_enabled", true)
	v.SetDefault("idempotency_ttl", 24*time.Hour)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("events_channel", "freshledger.events")
	v.SetDefault("outbox_batch_size", 100)
	v.SetDefault("outbox_interval", time.Second)
	v.SetDefault("outbox_retention", 7*24*time.Hour)
	v.SetDefault("shutdown_timeout", 30*time.Second)
	v.SetDefault("pool_stats_interval", 5*time.Minute)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:                strings.ToLower(strings.TrimSpace(v.GetString("app_env"))),
		HTTPPort:           v.GetString("app_port"),
		LogLevel:           v.GetString("log_level"),
		DatabaseURL:        strings.TrimSpace(v.GetString("database_url")),
		DBMaxConns:         v.GetInt32("db_max_conns"),
		DBStatementTimeout: v.GetDuration("db_statement_timeout"),
		MigrateOnStart:     v.GetBool("migrate_on_start"),
		JWTSecret:          strings.TrimSpace(v.GetString("jwt_secret")),
		JWTAccessTTL:       v.GetDuration("jwt_access_ttl"),
		OperatorName:       strings.TrimSpace(v.GetString("operator_username")),
		OperatorHash:       strings.TrimSpace(v.GetString("operator_password_hash")),
		MaxLoginFails:      v.GetInt("auth_max_login_attempts"),
		LoginLockout:       v.GetDuration("auth_lock_duration"),
		IdempotencyOn:      v.GetBool("idempotency_enabled"),
		IdempotencyTTL:     v.GetDuration("idempotency_ttl"),
		RedisAddr:          strings.TrimSpace(v.GetString("redis_addr")),
		RedisPassword:      v.GetString("redis_password"),
		RedisDB:            v.GetInt("redis_db"),
		EventsChannel:      v.GetString("events_channel"),
		OutboxBatchSize:    v.GetInt("outbox_batch_size"),
		OutboxInterval:     v.GetDuration("outbox_interval"),
		OutboxRetention:    v.GetDuration("outbox_retention"),
		ShutdownTimeout:    v.GetDuration("shutdown_timeout"),
		PoolStatsInterval:  v.GetDuration("pool_stats_interval"),
	}

	if cfg.JWTSecret == "" && !cfg.IsProduction() {
		cfg.JWTSecret = devJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	if c.IsProduction() && c.JWTSecret == devJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be changed in production"))
	}
	if (c.OperatorName == "") != (c.OperatorHash == "") {
		errs = append(errs, errors.New("OPERATOR_USERNAME and OPERATOR_PASSWORD_HASH must be set together"))
	}
	if c.DBMaxConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be positive"))
	}
	if c.DBStatementTimeout < 0 {
		errs = append(errs, errors.New("DB_STATEMENT_TIMEOUT must not be negative"))
	}
	if c.OutboxBatchSize <= 0 {
		errs = append(errs, errors.New("OUTBOX_BATCH_SIZE must be positive"))
	}
	if c.OutboxInterval <= 0 || c.PoolStatsInterval <= 0 {
		errs = append(errs, errors.New("OUTBOX_INTERVAL and POOL_STATS_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}
