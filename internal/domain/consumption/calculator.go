// Package consumption derives per-period consumption from cumulative meter readings.
package consumption

import (
	"time"

	"github.com/brfledger/utilitybilling/internal/domain/period"
	"github.com/brfledger/utilitybilling/internal/domain/reading"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/shopspring/decimal"
)

// Consumption is the quantity attributed to one meter in one period, tagged with its provenance.
// Override consumption takes part in totals exactly like derived consumption.
type Consumption struct {
	MeterKind       types.MeterKind         `json:"meter_kind"`
	MeterID         string                  `json:"meter_id"`
	BillingPeriodID string                  `json:"billing_period_id"`
	Quantity        decimal.Decimal         `json:"quantity"`
	Source          types.ConsumptionSource `json:"source"`
	CurrentReading  decimal.Decimal         `json:"current_reading"`
	PreviousReading *decimal.Decimal        `json:"previous_reading,omitempty"`
}

// Calculate computes consumption for current given the same meter's reading in an earlier period.
// previous may be nil when the meter has no earlier reading; policy then decides the outcome.
func Calculate(current, previous *reading.MeterReading, policy types.FirstReadingPolicy) (*Consumption, error) {
	if current == nil {
		return nil, ierr.NewError("current reading is required").
			WithHint("A reading for the billed period is required").
			Mark(ierr.ErrValidation)
	}

	c := &Consumption{
		MeterKind:       current.MeterKind,
		MeterID:         current.MeterID,
		BillingPeriodID: current.BillingPeriodID,
		CurrentReading:  current.Reading,
	}
	if previous != nil {
		prev := previous.Reading
		c.PreviousReading = &prev
	}

	if current.HasOverride() {
		c.Quantity = *current.ConsumptionOverride
		c.Source = types.ConsumptionSourceOverride
		return c, nil
	}

	if previous == nil {
		if policy == types.FirstReadingPolicyUseCurrentReading {
			c.Quantity = current.Reading
			c.Source = types.ConsumptionSourceInitial
			return c, nil
		}
		return nil, ierr.NewError("no preceding reading").
			WithHint("The meter has no reading in an earlier period").
			WithReportableDetails(map[string]any{
				"meter_kind":        current.MeterKind,
				"meter_id":          current.MeterID,
				"billing_period_id": current.BillingPeriodID,
			}).
			Mark(ierr.ErrMissingPrecedingPeriod)
	}

	delta := current.Reading.Sub(previous.Reading)
	if delta.IsNegative() {
		return nil, ierr.NewError("negative consumption without override").
			WithHintf("Reading %s is lower than the previous reading %s; supply a consumption override if the meter was replaced",
				current.Reading.String(), previous.Reading.String()).
			WithReportableDetails(map[string]any{
				"meter_kind":        current.MeterKind,
				"meter_id":          current.MeterID,
				"billing_period_id": current.BillingPeriodID,
				"current_reading":   current.Reading.String(),
				"previous_reading":  previous.Reading.String(),
			}).
			Mark(ierr.ErrDataIntegrity)
	}

	c.Quantity = delta
	c.Source = types.ConsumptionSourceDerived
	return c, nil
}

// FindPrevious returns the reading of the same meter in the latest period starting strictly before
// current. Readings whose period is unknown are ignored. history holds one meter's readings.
func FindPrevious(history []*reading.MeterReading, periods []*period.BillingPeriod, current *period.BillingPeriod) *reading.MeterReading {
	starts := make(map[string]time.Time, len(periods))
	for _, p := range periods {
		starts[p.ID] = p.StartDate
	}

	var (
		best      *reading.MeterReading
		bestStart time.Time
	)
	for _, r := range history {
		start, ok := starts[r.BillingPeriodID]
		if !ok || !start.Before(current.StartDate) {
			continue
		}
		if best == nil || start.After(bestStart) {
			best, bestStart = r, start
		}
	}
	return best
}

// FindCurrent returns the reading for the given period, or nil
func FindCurrent(history []*reading.MeterReading, periodID string) *reading.MeterReading {
	for _, r := range history {
		if r.BillingPeriodID == periodID {
			return r
		}
	}
	return nil
}

// ForPeriod runs FindCurrent, FindPrevious and Calculate over one meter's history.
// A missing current reading is reported as ErrNotFound.
func ForPeriod(
	kind types.MeterKind,
	meterID string,
	history []*reading.MeterReading,
	periods []*period.BillingPeriod,
	current *period.BillingPeriod,
	policy types.FirstReadingPolicy,
) (*Consumption, error) {
	cur := FindCurrent(history, current.ID)
	if cur == nil {
		return nil, ierr.NewError("no reading for period").
			WithHintf("Meter has no reading for period %s", current.Name).
			WithReportableDetails(map[string]any{
				"meter_kind":        kind,
				"meter_id":          meterID,
				"billing_period_id": current.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return Calculate(cur, FindPrevious(history, periods, current), policy)
}

// Total sums the quantities of a set of consumptions
func Total(items []*Consumption) decimal.Decimal {
	total := decimal.Zero
	for _, c := range items {
		total = total.Add(c.Quantity)
	}
	return total
}
