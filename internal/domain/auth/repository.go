package auth

import "context"

// OperatorRepository persists operators.
type OperatorRepository interface {
	GetByUsername(ctx context.Context, username string) (*Operator, error)
	Create(ctx context.Context, op *Operator) error
	// Update saves login bookkeeping. Returns ConcurrentModification on a
	// stale version.
	Update(ctx context.Context, op *Operator) error
}
