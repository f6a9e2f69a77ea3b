package billing

import (
	"fmt"

	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/shopspring/decimal"
)

// UtilityBilling is one line item: a household's charge for one service in one period.
// Its natural key is (household, service, period); regeneration replaces it.
type UtilityBilling struct {
	ID                       string                  `json:"id"`
	HouseholdID              string                  `json:"household_id"`
	ServiceID                string                  `json:"service_id"`
	BillingPeriodID          string                  `json:"billing_period_id"`
	Category                 types.ServiceCategory   `json:"category"`
	RawConsumption           decimal.Decimal         `json:"raw_consumption"`
	ConsumptionSource        types.ConsumptionSource `json:"consumption_source"`
	ReconciliationAdjustment decimal.Decimal         `json:"reconciliation_adjustment"`
	// AdjustedConsumption may be negative, which bills a credit
	AdjustedConsumption decimal.Decimal `json:"adjusted_consumption"`
	CostPerUnit         decimal.Decimal `json:"cost_per_unit"`
	ConsumptionCost     decimal.Decimal `json:"consumption_cost"`
	FixedFeeShare       decimal.Decimal `json:"fixed_fee_share"`
	TotalUtilityCost    decimal.Decimal `json:"total_utility_cost"`
	PricingID           string          `json:"pricing_id"`
	types.BaseModel
}

// Key is the natural identity of a line item
type Key struct {
	HouseholdID     string
	ServiceID       string
	BillingPeriodID string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.HouseholdID, k.ServiceID, k.BillingPeriodID)
}

func (b *UtilityBilling) Key() Key {
	return Key{HouseholdID: b.HouseholdID, ServiceID: b.ServiceID, BillingPeriodID: b.BillingPeriodID}
}
