package utilityservice

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/types"
)

// Repository defines the interface for utility service persistence
type Repository interface {
	Create(ctx context.Context, s *UtilityService) error
	Get(ctx context.Context, id string) (*UtilityService, error)
	List(ctx context.Context, filter *types.UtilityServiceFilter) ([]*UtilityService, error)
	Update(ctx context.Context, s *UtilityService) error
}
