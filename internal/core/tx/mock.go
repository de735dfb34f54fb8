package tx

import "context"

// MockManager runs callbacks directly, without a database.
// Savepoint failures are returned to the caller unchanged.
type MockManager struct {
	Transactions int
	Savepoints   int
}

// RunInTransaction implements Manager.
func (m *MockManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Transactions++
	return fn(ctx)
}

// RunInSavepoint implements Manager.
func (m *MockManager) RunInSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Savepoints++
	return fn(ctx)
}

// ReadOnly implements ReadOnlyManager.
func (m *MockManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ ReadOnlyManager = (*MockManager)(nil)
