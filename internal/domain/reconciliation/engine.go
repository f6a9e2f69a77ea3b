// Package reconciliation splits the gap between main and household meters across households.
package reconciliation

import (
	"sort"
	"time"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/shopspring/decimal"
)

// Input is everything Compute needs for one (service, period)
type Input struct {
	ServiceID       string
	BillingPeriodID string
	// MainConsumptions holds one consumption per main meter of the service
	MainConsumptions []decimal.Decimal
	// HouseholdConsumptions maps active household id to its raw consumption
	HouseholdConsumptions map[string]decimal.Decimal
	ActiveHouseholdIDs    []string
	SplitMode             types.ReconciliationSplitMode
	Now                   time.Time
}

// Compute builds the reconciliation record. The household adjustments always sum to Difference.
// Zero active households is a configuration error.
func Compute(in Input) (*Reconciliation, error) {
	n := len(in.ActiveHouseholdIDs)
	if n == 0 {
		return nil, ierr.NewError("no active households").
			WithHint("Reconciliation needs at least one active household to apportion the difference").
			WithReportableDetails(map[string]any{
				"service_id":        in.ServiceID,
				"billing_period_id": in.BillingPeriodID,
			}).
			Mark(ierr.ErrConfiguration)
	}
	if len(in.MainConsumptions) == 0 || len(in.HouseholdConsumptions) == 0 {
		return nil, ierr.NewError("reconciliation inputs incomplete").
			WithHint("Both main meter and household consumption are required").
			Mark(ierr.ErrValidation)
	}
	if err := in.SplitMode.Validate(); err != nil {
		return nil, err
	}

	mainTotal := decimal.Sum(decimal.Zero, in.MainConsumptions...)
	householdTotal := decimal.Zero
	for _, q := range in.HouseholdConsumptions {
		householdTotal = householdTotal.Add(q)
	}
	difference := mainTotal.Sub(householdTotal)

	// deterministic order so the residue always lands on the same household
	ids := make([]string, n)
	copy(ids, in.ActiveHouseholdIDs)
	sort.Strings(ids)

	perHousehold := difference.Div(decimal.NewFromInt(int64(n)))

	mode := in.SplitMode
	if mode == types.SplitModeProportional && householdTotal.IsZero() {
		mode = types.SplitModeEqual
	}

	var adjustments map[string]decimal.Decimal
	switch mode {
	case types.SplitModeProportional:
		adjustments = splitProportional(ids, in.HouseholdConsumptions, householdTotal, difference)
	default:
		adjustments = splitEqual(ids, difference)
	}

	computedAt := in.Now
	if computedAt.IsZero() {
		computedAt = time.Now().UTC()
	}

	return &Reconciliation{
		ServiceID:              in.ServiceID,
		BillingPeriodID:        in.BillingPeriodID,
		MainTotal:              mainTotal,
		HouseholdTotal:         householdTotal,
		Difference:             difference,
		ActiveHouseholdCount:   n,
		AdjustmentPerHousehold: perHousehold,
		SplitMode:              mode,
		HouseholdAdjustments:   adjustments,
		ComputedAt:             computedAt,
	}, nil
}

// splitEqual gives every household difference/n; the last one absorbs the division residue
func splitEqual(ids []string, difference decimal.Decimal) map[string]decimal.Decimal {
	n := decimal.NewFromInt(int64(len(ids)))
	share := difference.Div(n)

	out := make(map[string]decimal.Decimal, len(ids))
	allocated := decimal.Zero
	for i, id := range ids {
		if i == len(ids)-1 {
			out[id] = difference.Sub(allocated)
			break
		}
		out[id] = share
		allocated = allocated.Add(share)
	}
	return out
}

// splitProportional weights by raw consumption; the last household absorbs the residue
func splitProportional(ids []string, consumptions map[string]decimal.Decimal, householdTotal, difference decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(ids))
	allocated := decimal.Zero
	for i, id := range ids {
		if i == len(ids)-1 {
			out[id] = difference.Sub(allocated)
			break
		}
		share := difference.Mul(consumptions[id]).Div(householdTotal)
		out[id] = share
		allocated = allocated.Add(share)
	}
	return out
}
