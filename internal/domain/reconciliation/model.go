package reconciliation

import (
	"time"

	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/shopspring/decimal"
)

// Reconciliation apportions the gap between main-meter and household consumption of a
// service in a period. There is at most one per (service, period); recomputation replaces it.
type Reconciliation struct {
	ID              string          `json:"id"`
	ServiceID       string          `json:"service_id"`
	BillingPeriodID string          `json:"billing_period_id"`
	MainTotal       decimal.Decimal `json:"main_total"`
	HouseholdTotal  decimal.Decimal `json:"household_total"`
	// Difference is MainTotal - HouseholdTotal; negative when households over-report
	Difference             decimal.Decimal               `json:"difference"`
	ActiveHouseholdCount   int                           `json:"active_household_count"`
	AdjustmentPerHousehold decimal.Decimal               `json:"adjustment_per_household"`
	SplitMode              types.ReconciliationSplitMode `json:"split_mode"`
	// HouseholdAdjustments holds the adjustment of every active household keyed by household id
	HouseholdAdjustments map[string]decimal.Decimal `json:"household_adjustments"`
	ComputedAt           time.Time                  `json:"computed_at"`
	types.BaseModel
}

// AdjustmentFor returns the household's adjustment. Households that were not part of the
// split (activated after computation) get the equal per-household figure.
func (r *Reconciliation) AdjustmentFor(householdID string) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	if adj, ok := r.HouseholdAdjustments[householdID]; ok {
		return adj
	}
	return r.AdjustmentPerHousehold
}

// TotalAdjustment sums every household adjustment; equals Difference
func (r *Reconciliation) TotalAdjustment() decimal.Decimal {
	total := decimal.Zero
	for _, adj := range r.HouseholdAdjustments {
		total = total.Add(adj)
	}
	return total
}
