package pricing

import (
	"sort"
	"time"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/shopspring/decimal"
)

// UtilityPricing is one version in a service's price history.
// The version in force at a date is the one with the latest EffectiveDate not after it.
type UtilityPricing struct {
	ID            string          `json:"id"`
	ServiceID     string          `json:"service_id"`
	EffectiveDate time.Time       `json:"effective_date"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
	// FixedFeePerHousehold is already apportioned per household
	FixedFeePerHousehold decimal.Decimal `json:"fixed_fee_per_household"`
	types.BaseModel
}

func (p *UtilityPricing) Validate() error {
	if p.ServiceID == "" {
		return ierr.NewError("pricing requires a service").
			WithHint("Please provide a service id").
			Mark(ierr.ErrValidation)
	}
	if p.EffectiveDate.IsZero() {
		return ierr.NewError("effective date is required").
			WithHint("Please provide the date the price takes effect").
			Mark(ierr.ErrValidation)
	}
	if p.PricePerUnit.IsNegative() || p.FixedFeePerHousehold.IsNegative() {
		return ierr.NewError("prices must not be negative").
			WithHint("Price per unit and fixed fee must be zero or positive").
			WithReportableDetails(map[string]any{
				"price_per_unit":          p.PricePerUnit.String(),
				"fixed_fee_per_household": p.FixedFeePerHousehold.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ResolvePricing returns the record with the latest effective date on or before date.
// history need not be sorted. Returns ErrMissingPricing when nothing is in force yet.
func ResolvePricing(history []*UtilityPricing, date time.Time) (*UtilityPricing, error) {
	var resolved *UtilityPricing
	for _, p := range history {
		if p.EffectiveDate.After(date) {
			continue
		}
		if resolved == nil || p.EffectiveDate.After(resolved.EffectiveDate) {
			resolved = p
		}
	}

	if resolved == nil {
		serviceID := ""
		if len(history) > 0 {
			serviceID = history[0].ServiceID
		}
		return nil, ierr.NewError("no pricing in force").
			WithHintf("No pricing is effective on or before %s", date.Format(time.DateOnly)).
			WithReportableDetails(map[string]any{
				"service_id":   serviceID,
				"billing_date": date,
			}).
			Mark(ierr.ErrMissingPricing)
	}
	return resolved, nil
}

// SortByEffectiveDate orders a history oldest first, in place
func SortByEffectiveDate(history []*UtilityPricing) {
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].EffectiveDate.Before(history[j].EffectiveDate)
	})
}
