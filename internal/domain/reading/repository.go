package reading

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/types"
)

// Repository defines the interface for meter reading persistence
type Repository interface {
	// Upsert inserts or replaces the reading for (meter kind, meter, period)
	Upsert(ctx context.Context, r *MeterReading) error
	Get(ctx context.Context, key Key) (*MeterReading, error)
	// ListByMeter returns every reading of a meter ordered by reading date
	ListByMeter(ctx context.Context, kind types.MeterKind, meterID string) ([]*MeterReading, error)
	ListByPeriod(ctx context.Context, periodID string) ([]*MeterReading, error)
}
