// Package lock defines the serialization point used by write paths that must
// not interleave on the same aggregate.
package lock

import (
	"context"
	"strings"

	"freshledger/internal/core/id"
)

// Release gives a held lock back. It must be safe to call once.
type Release func(ctx context.Context)

// Locker serializes callers on a key until the returned Release is invoked.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// PurchaseKey is the serialization key for reconciling one product of one order.
func PurchaseKey(orderID *id.ID, productID id.ID) string {
	return strings.Join([]string{"purchase", id.String(orderID), productID.String()}, ":")
}

// PaymentKey is the serialization key for distributing payments of one customer.
func PaymentKey(customerID id.ID) string {
	return "payment:" + customerID.String()
}

// LocalLocker is an in-process Locker keyed by string. Used by tests and
// single-instance deployments without a shared lock backend.
type LocalLocker struct {
	mu    chan struct{}
	locks map[string]chan struct{}
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker() *LocalLocker {
	l := &LocalLocker{mu: make(chan struct{}, 1), locks: make(map[string]chan struct{})}
	return l
}

// Acquire blocks until key is free or ctx is done.
func (l *LocalLocker) Acquire(ctx context.Context, key string) (Release, error) {
	select {
	case l.mu <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	<-l.mu

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return func(context.Context) { <-ch }, nil
}
