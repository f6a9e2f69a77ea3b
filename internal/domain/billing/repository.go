package billing

import "context"

// Repository defines the interface for line item persistence
type Repository interface {
	// UpsertMany inserts or replaces line items by (household, service, period)
	UpsertMany(ctx context.Context, items []*UtilityBilling) error
	ListByPeriod(ctx context.Context, periodID string) ([]*UtilityBilling, error)
	ListByHouseholdAndPeriod(ctx context.Context, householdID, periodID string) ([]*UtilityBilling, error)
	// DeleteStale removes the period's line items whose key is not in keep and returns how many went
	DeleteStale(ctx context.Context, periodID string, keep []Key) (int, error)
}
