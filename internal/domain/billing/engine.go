// Package billing prices metered consumption and flat fees into per-household line items.
package billing

import (
	"github.com/brfledger/utilitybilling/internal/domain/consumption"
	"github.com/brfledger/utilitybilling/internal/domain/pricing"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/shopspring/decimal"
)

// LineInput identifies the line item being computed
type LineInput struct {
	HouseholdID     string
	ServiceID       string
	BillingPeriodID string
	Category        types.ServiceCategory
	// Pricing is the record in force at the billing date; nil means none was found
	Pricing  *pricing.UtilityPricing
	Currency string
}

// ComputeMetered bills adjusted consumption at the unit price plus the fixed fee.
// The consumption cost is rounded to the currency precision and the total is the exact sum
// of cost and fee.
func ComputeMetered(in LineInput, raw *consumption.Consumption, adjustment decimal.Decimal) (*UtilityBilling, error) {
	if err := requirePricing(in); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ierr.NewError("consumption is required for a metered service").
			WithHint("Metered line items need the household's consumption for the period").
			WithReportableDetails(lineDetails(in)).
			Mark(ierr.ErrValidation)
	}

	adjusted := raw.Quantity.Add(adjustment)
	cost := types.RoundToCurrencyPrecision(adjusted.Mul(in.Pricing.PricePerUnit), in.Currency)
	fee := in.Pricing.FixedFeePerHousehold

	return &UtilityBilling{
		HouseholdID:              in.HouseholdID,
		ServiceID:                in.ServiceID,
		BillingPeriodID:          in.BillingPeriodID,
		Category:                 in.Category,
		RawConsumption:           raw.Quantity,
		ConsumptionSource:        raw.Source,
		ReconciliationAdjustment: adjustment,
		AdjustedConsumption:      adjusted,
		CostPerUnit:              in.Pricing.PricePerUnit,
		ConsumptionCost:          cost,
		FixedFeeShare:            fee,
		TotalUtilityCost:         cost.Add(fee),
		PricingID:                in.Pricing.ID,
	}, nil
}

// ComputeFlat bills only the fixed fee; consumption and reconciliation do not apply
func ComputeFlat(in LineInput) (*UtilityBilling, error) {
	if err := requirePricing(in); err != nil {
		return nil, err
	}

	fee := in.Pricing.FixedFeePerHousehold
	return &UtilityBilling{
		HouseholdID:              in.HouseholdID,
		ServiceID:                in.ServiceID,
		BillingPeriodID:          in.BillingPeriodID,
		Category:                 in.Category,
		RawConsumption:           decimal.Zero,
		ConsumptionSource:        types.ConsumptionSourceFlat,
		ReconciliationAdjustment: decimal.Zero,
		AdjustedConsumption:      decimal.Zero,
		CostPerUnit:              in.Pricing.PricePerUnit,
		ConsumptionCost:          decimal.Zero,
		FixedFeeShare:            fee,
		TotalUtilityCost:         fee,
		PricingID:                in.Pricing.ID,
	}, nil
}

func requirePricing(in LineInput) error {
	if in.Pricing != nil {
		return nil
	}
	return ierr.NewError("no pricing for line item").
		WithHint("No pricing is in force for the service at the billing date").
		WithReportableDetails(lineDetails(in)).
		Mark(ierr.ErrMissingPricing)
}

func lineDetails(in LineInput) map[string]any {
	return map[string]any{
		"household_id":      in.HouseholdID,
		"service_id":        in.ServiceID,
		"billing_period_id": in.BillingPeriodID,
	}
}
