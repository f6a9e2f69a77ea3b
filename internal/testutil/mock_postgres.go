package testutil

import (
	"context"
	"sync"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
)

type mockTxKey struct{}

type mockTx struct {
	locks []string
}

// MockPostgresClient implements postgres.IClient without a database.
// Transactions only scope advisory locks; writes go straight to the in-memory stores.
type MockPostgresClient struct {
	mu      sync.Mutex
	held    map[string]bool
	txCount int
}

func NewMockPostgresClient() *MockPostgresClient {
	return &MockPostgresClient{held: make(map[string]bool)}
}

func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(mockTxKey{}).(*mockTx); ok {
		return fn(ctx)
	}

	tx := &mockTx{}
	c.mu.Lock()
	c.txCount++
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		for _, key := range tx.locks {
			delete(c.held, key)
		}
		c.mu.Unlock()
	}()

	return fn(context.WithValue(ctx, mockTxKey{}, tx))
}

func (c *MockPostgresClient) LockKey(ctx context.Context, req types.LockRequest) error {
	ok, err := c.TryLockKey(ctx, req.Key)
	if err != nil {
		return err
	}
	if !ok {
		return ierr.NewError("lock already held").
			WithHint("Another run is working on the same records, retry shortly").
			WithReportableDetails(map[string]any{"lock_key": req.Key}).
			Mark(ierr.ErrConcurrencyConflict)
	}
	return nil
}

func (c *MockPostgresClient) TryLockKey(ctx context.Context, key string) (bool, error) {
	tx, ok := ctx.Value(mockTxKey{}).(*mockTx)
	if !ok {
		return false, ierr.NewError("TryLockKey must be called inside transaction").
			Mark(ierr.ErrInternal)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range tx.locks {
		if k == key {
			return true, nil
		}
	}
	if c.held[key] {
		return false, nil
	}
	c.held[key] = true
	tx.locks = append(tx.locks, key)
	return true, nil
}

// HoldLock simulates another session holding key until ReleaseLock
func (c *MockPostgresClient) HoldLock(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.held[key] = true
}

func (c *MockPostgresClient) ReleaseLock(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, key)
}

// TxCount returns how many top-level transactions were opened
func (c *MockPostgresClient) TxCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txCount
}

func (c *MockPostgresClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.held = make(map[string]bool)
	c.txCount = 0
}
