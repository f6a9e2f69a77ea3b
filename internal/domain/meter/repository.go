package meter

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/types"
)

// Repository defines the interface for main and household meter persistence
type Repository interface {
	CreateMainMeter(ctx context.Context, m *MainMeter) error
	GetMainMeter(ctx context.Context, id string) (*MainMeter, error)
	ListMainMeters(ctx context.Context, serviceID string) ([]*MainMeter, error)

	// CreateHouseholdMeter fails with ErrAlreadyExists when the household already has a meter for the service
	CreateHouseholdMeter(ctx context.Context, m *HouseholdMeter) error
	GetHouseholdMeter(ctx context.Context, id string) (*HouseholdMeter, error)
	ListHouseholdMeters(ctx context.Context, filter *types.HouseholdMeterFilter) ([]*HouseholdMeter, error)
}
