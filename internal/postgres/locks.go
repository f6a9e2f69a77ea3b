package postgres

import (
	"context"
	"errors"
	"fmt"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/lib/pq"
)

// LockKey acquires a transaction-scoped advisory lock.
// A nil Timeout waits up to the default; zero or negative fails fast.
// A lock that cannot be taken in time is an ErrConcurrencyConflict.
// Must be called inside a transaction.
func (c *Client) LockKey(ctx context.Context, req types.LockRequest) error {
	tx := c.TxFromContext(ctx)
	if tx == nil {
		return ierr.NewError("LockKey must be called inside transaction").
			Mark(ierr.ErrInternal)
	}

	timeout := req.GetTimeout()

	if timeout <= 0 {
		ok, err := c.TryLockKey(ctx, req.Key)
		if err != nil {
			return err
		}
		if !ok {
			return lockHeldError(req.Key, nil)
		}
		return nil
	}

	// lock_timeout is reset on commit/rollback
	_, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", int(timeout.Milliseconds())))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to set lock timeout").
			Mark(ierr.ErrDatabase)
	}

	_, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, req.Key)
	if err != nil {
		if isLockTimeoutError(err) {
			return lockHeldError(req.Key, err)
		}
		return ierr.WithError(err).
			WithHint("Failed to acquire lock").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

// isLockTimeoutError checks for SQLSTATE 55P03 (lock_not_available)
func isLockTimeoutError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "55P03"
	}
	return false
}

// TryLockKey tries acquiring the advisory lock immediately.
// Returns ok=false if another transaction holds it.
func (c *Client) TryLockKey(ctx context.Context, key string) (bool, error) {
	tx := c.TxFromContext(ctx)
	if tx == nil {
		return false, ierr.NewError("TryLockKey must be called inside transaction").
			Mark(ierr.ErrInternal)
	}

	var ok bool
	if err := tx.QueryRowContext(ctx, `SELECT pg_try_advisory_xact_lock(hashtext($1))`, key).Scan(&ok); err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to acquire lock").
			Mark(ierr.ErrDatabase)
	}
	return ok, nil
}

func lockHeldError(key string, cause error) error {
	b := ierr.NewError("lock already held")
	if cause != nil {
		b = ierr.WithError(cause)
	}
	return b.
		WithHint("Another run is working on the same records, retry shortly").
		WithReportableDetails(map[string]any{"lock_key": key}).
		Mark(ierr.ErrConcurrencyConflict)
}
