package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshledger/internal/core/id"
)

func TestKeys(t *testing.T) {
	order, product, customer := id.New(), id.New(), id.New()

	assert.Equal(t, "purchase:"+order.String()+":"+product.String(), PurchaseKey(&order, product))
	assert.Equal(t, "purchase:-:"+product.String(), PurchaseKey(nil, product))
	assert.Equal(t, "payment:"+customer.String(), PaymentKey(customer))
}

func TestLocalLocker_Serializes(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "k")
			require.NoError(t, err)
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release(ctx)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestLocalLocker_Independent(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	ra, err := l.Acquire(ctx, "a")
	require.NoError(t, err)
	rb, err := l.Acquire(ctx, "b")
	require.NoError(t, err)
	rb(ctx)
	ra(ctx)
}

func TestLocalLocker_ContextDone(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
