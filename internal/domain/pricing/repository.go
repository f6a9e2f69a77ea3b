package pricing

import "context"

// Repository defines the interface for the append-only price history
type Repository interface {
	// Create fails with ErrAlreadyExists when the service already has a price at that effective date
	Create(ctx context.Context, p *UtilityPricing) error
	Get(ctx context.Context, id string) (*UtilityPricing, error)
	// ListByService returns the full history of a service ordered by effective date
	ListByService(ctx context.Context, serviceID string) ([]*UtilityPricing, error)
}
