package reading

import (
	"time"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/shopspring/decimal"
)

// MeterReading is a cumulative reading of one meter in one billing period.
// At most one reading exists per (meter kind, meter, period); writes replace.
type MeterReading struct {
	ID              string          `json:"id"`
	MeterKind       types.MeterKind `json:"meter_kind"`
	MeterID         string          `json:"meter_id"`
	BillingPeriodID string          `json:"billing_period_id"`
	Reading         decimal.Decimal `json:"reading"`
	ReadingDate     time.Time       `json:"reading_date"`
	// ConsumptionOverride is used verbatim instead of the delta, e.g. after a meter swap
	ConsumptionOverride *decimal.Decimal `json:"consumption_override,omitempty"`
	types.BaseModel
}

// Key is the natural identity of a reading
type Key struct {
	MeterKind       types.MeterKind
	MeterID         string
	BillingPeriodID string
}

func (r *MeterReading) Key() Key {
	return Key{MeterKind: r.MeterKind, MeterID: r.MeterID, BillingPeriodID: r.BillingPeriodID}
}

func (r *MeterReading) HasOverride() bool {
	return r.ConsumptionOverride != nil
}

func (r *MeterReading) Validate() error {
	if r.MeterKind != types.MeterKindMain && r.MeterKind != types.MeterKindHousehold {
		return ierr.NewError("invalid meter kind").
			WithHintf("Meter kind must be one of %s, %s", types.MeterKindMain, types.MeterKindHousehold).
			Mark(ierr.ErrValidation)
	}
	if r.MeterID == "" || r.BillingPeriodID == "" {
		return ierr.NewError("reading requires meter and period").
			WithHint("Please provide a meter id and a billing period id").
			Mark(ierr.ErrValidation)
	}
	if r.Reading.IsNegative() {
		return ierr.NewError("reading must not be negative").
			WithHint("Cumulative meter readings cannot be negative").
			WithReportableDetails(map[string]any{
				"meter_id": r.MeterID,
				"reading":  r.Reading.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
