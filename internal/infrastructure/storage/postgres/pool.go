// Package postgres provides PostgreSQL infrastructure components.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"freshledger/pkg/logger"
)

// Role names the freshledger process that owns a pool. It ends up in
// application_name so pg_stat_activity shows who holds a connection.
type Role string

const (
	RoleServer  Role = "server"
	RoleWorker  Role = "worker"
	RoleMigrate Role = "migrate"
	RoleSeed    Role = "seed"
)

// PoolConfig holds connection pool configuration.
type PoolConfig struct {
	DSN               string
	Role              Role
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration

	// StatementTimeout and LockTimeout are applied per session; zero leaves
	// the server default.
	StatementTimeout time.Duration
	LockTimeout      time.Duration
}

// PoolConfigFor returns pool settings for a process role. maxConns only
// applies to the server; the other roles run a handful of sequential
// statements and get a fixed small pool.
func PoolConfigFor(dsn string, role Role, maxConns int32, statementTimeout time.Duration) PoolConfig {
	cfg := PoolConfig{
		DSN:               dsn,
		Role:              role,
		MaxConns:          maxConns,
		MinConns:          2,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
		StatementTimeout:  statementTimeout,
		LockTimeout:       5 * time.Second,
	}

	switch role {
	case RoleWorker:
		cfg.MaxConns, cfg.MinConns = 4, 1
	case RoleMigrate:
		// DDL may legitimately run long and wait on locks.
		cfg.MaxConns, cfg.MinConns = 2, 1
		cfg.StatementTimeout, cfg.LockTimeout = 0, 0
	case RoleSeed:
		cfg.MaxConns, cfg.MinConns = 2, 1
	}

	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 1
	}
	if cfg.MinConns > cfg.MaxConns {
		cfg.MinConns = cfg.MaxConns
	}
	return cfg
}

// sessionSettings lists the SET statements run on every new connection.
func (c PoolConfig) sessionSettings() []string {
	name := "freshledger"
	if c.Role != "" {
		name += "-" + string(c.Role)
	}
	stmts := []string{fmt.Sprintf("SET application_name = '%s'", name)}
	if c.StatementTimeout > 0 {
		stmts = append(stmts, fmt.Sprintf("SET statement_timeout = %d", c.StatementTimeout.Milliseconds()))
	}
	if c.LockTimeout > 0 {
		stmts = append(stmts, fmt.Sprintf("SET lock_timeout = %d", c.LockTimeout.Milliseconds()))
	}
	return stmts
}

// Pool wraps pgxpool.Pool.
type Pool struct {
	*pgxpool.Pool
	role Role
}

// Close closes all connections in the pool.
func (p *Pool) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

// Unwrap returns the underlying pgxpool.Pool for migrations and the outbox
// relay.
func (p *Pool) Unwrap() *pgxpool.Pool {
	return p.Pool
}

// NewPool connects and pings the database.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod

	settings := cfg.sessionSettings()
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for _, stmt := range settings {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %w", stmt, err)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Pool{Pool: pool, role: cfg.Role}, nil
}

// PoolStats is a snapshot of pool usage for /health/info, the Prometheus
// collector and the worker's periodic log line.
type PoolStats struct {
	TotalConns      int32
	AcquiredConns   int32
	IdleConns       int32
	MaxConns        int32
	AcquireCount    int64
	AcquireDuration time.Duration
	// EmptyAcquireCount counts acquires that had to wait for a free
	// connection.
	EmptyAcquireCount int64
}

// Saturated reports whether every connection is checked out.
func (s PoolStats) Saturated() bool {
	return s.MaxConns > 0 && s.AcquiredConns >= s.MaxConns
}

// AvgAcquire is the mean time spent waiting in Acquire.
func (s PoolStats) AvgAcquire() time.Duration {
	if s.AcquireCount == 0 {
		return 0
	}
	return s.AcquireDuration / time.Duration(s.AcquireCount)
}

// Stats reads the current pool statistics.
func (p *Pool) Stats() PoolStats {
	stat := p.Pool.Stat()
	return PoolStats{
		TotalConns:        stat.TotalConns(),
		AcquiredConns:     stat.AcquiredConns(),
		IdleConns:         stat.IdleConns(),
		MaxConns:          stat.MaxConns(),
		AcquireCount:      stat.AcquireCount(),
		AcquireDuration:   stat.AcquireDuration(),
		EmptyAcquireCount: stat.EmptyAcquireCount(),
	}
}

// LogStats writes one line with the pool snapshot, at warn level when the
// pool is saturated.
func (p *Pool) LogStats(ctx context.Context) {
	logPoolStats(ctx, p.role, p.Stats())
}

func logPoolStats(ctx context.Context, role Role, s PoolStats) {
	kv := []any{
		"role", string(role),
		"total", s.TotalConns,
		"acquired", s.AcquiredConns,
		"idle", s.IdleConns,
		"max", s.MaxConns,
		"waited_acquires", s.EmptyAcquireCount,
		"avg_acquire_ms", s.AvgAcquire().Milliseconds(),
	}
	if s.Saturated() {
		logger.Warn(ctx, "database pool saturated", kv...)
		return
	}
	logger.Info(ctx, "database pool stats", kv...)
}
