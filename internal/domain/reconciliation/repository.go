package reconciliation

import "context"

// Repository defines the interface for reconciliation persistence
type Repository interface {
	// Upsert inserts or replaces the record for (service, period)
	Upsert(ctx context.Context, r *Reconciliation) error
	// Get returns ErrNotFound when the period was not reconciled for the service
	Get(ctx context.Context, serviceID, periodID string) (*Reconciliation, error)
	ListByPeriod(ctx context.Context, periodID string) ([]*Reconciliation, error)
	// Archive retires the published record of (service, period), if any, and reports whether one existed.
	// A later Upsert publishes the record again.
	Archive(ctx context.Context, serviceID, periodID string) (bool, error)
}
