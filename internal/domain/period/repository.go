package period

import "context"

// Repository defines the interface for billing period persistence
type Repository interface {
	Create(ctx context.Context, p *BillingPeriod) error
	Get(ctx context.Context, id string) (*BillingPeriod, error)
	GetByName(ctx context.Context, name string) (*BillingPeriod, error)
	// List returns every period ordered by start date
	List(ctx context.Context) ([]*BillingPeriod, error)
	Update(ctx context.Context, p *BillingPeriod) error
}
