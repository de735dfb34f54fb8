// Package auth_repo provides the PostgreSQL store for operators.
package auth_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"freshledger/internal/domain/auth"
	"freshledger/internal/infrastructure/storage/postgres"
)

var _ auth.OperatorRepository = (*OperatorRepo)(nil)

// OperatorRepo implements auth.OperatorRepository.
type OperatorRepo struct {
	operators *postgres.Table[auth.Operator]
}

// NewOperatorRepo creates a new operator repository.
func NewOperatorRepo(txm *postgres.TxManager) *OperatorRepo {
	return &OperatorRepo{operators: postgres.NewTable[auth.Operator](txm, "operators", "operator")}
}

func (r *OperatorRepo) GetByUsername(ctx context.Context, username string) (*auth.Operator, error) {
	return r.operators.Get(ctx, r.operators.SelectAll().Where(squirrel.Eq{"username": username}), username)
}

func (r *OperatorRepo) Create(ctx context.Context, op *auth.Operator) error {
	return r.operators.Insert(ctx, op)
}

// Update saves credentials and login bookkeeping if the version matches.
func (r *OperatorRepo) Update(ctx context.Context, op *auth.Operator) error {
	err := r.operators.UpdateVersioned(ctx, op.ID, op.Version, map[string]any{
		"password_hash":         op.PasswordHash,
		"is_active":             op.IsActive,
		"last_login_at":         op.LastLoginAt,
		"failed_login_attempts": op.FailedLoginAttempts,
		"locked_until":          op.LockedUntil,
		"updated_at":            op.UpdatedAt,
	})
	if err != nil {
		return err
	}
	op.Version++
	return nil
}
