package sharedcost

import "context"

// Repository defines the interface for shared cost persistence
type Repository interface {
	Create(ctx context.Context, c *SharedCost) error
	Get(ctx context.Context, id string) (*SharedCost, error)
	ListByQuarter(ctx context.Context, year, quarter int) ([]*SharedCost, error)
	Update(ctx context.Context, c *SharedCost) error
}
