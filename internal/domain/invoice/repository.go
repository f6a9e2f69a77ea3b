package invoice

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/types"
)

// Repository defines the interface for invoice persistence
type Repository interface {
	// Upsert inserts or replaces the invoice for (household, period)
	Upsert(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	GetByHouseholdAndPeriod(ctx context.Context, householdID, periodID string) (*Invoice, error)
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)
}
