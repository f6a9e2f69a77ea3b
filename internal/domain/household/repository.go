package household

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/types"
)

// Repository defines the interface for household persistence
type Repository interface {
	Create(ctx context.Context, h *Household) error
	Get(ctx context.Context, id string) (*Household, error)
	// GetByNumber fetches a household by its stable household number
	GetByNumber(ctx context.Context, householdNumber string) (*Household, error)
	List(ctx context.Context, filter *types.HouseholdFilter) ([]*Household, error)
	Count(ctx context.Context, filter *types.HouseholdFilter) (int, error)
	Update(ctx context.Context, h *Household) error
}
