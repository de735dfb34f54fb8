package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"freshledger/internal/core/lock"
	"freshledger/pkg/logger"
)

var _ lock.Locker = (*AdvisoryLocker)(nil)

// AdvisoryLocker serializes callers with session-level advisory locks. Each
// held lock pins one pooled connection until released.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
}

// NewAdvisoryLocker creates a locker on pool.
func NewAdvisoryLocker(pool *Pool) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool.Pool}
}

// Acquire blocks until the advisory lock for key is held or ctx is done.
func (l *AdvisoryLocker) Acquire(ctx context.Context, key string) (lock.Release, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection for lock: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock(hashtext($1))", key); err != nil {
		// a cancelled wait leaves the session in an unknown state
		conn.Conn().Close(context.Background())
		conn.Release()
		return nil, fmt.Errorf("advisory lock %s: %w", key, err)
	}

	return func(ctx context.Context) {
		defer conn.Release()
		if _, err := conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock(hashtext($1))", key); err != nil {
			logger.Error(ctx, "advisory unlock failed", "key", key, "error", err)
			conn.Conn().Close(context.Background())
		}
	}, nil
}
