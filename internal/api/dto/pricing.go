package dto

import (
	"context"
	"time"

	"github.com/brfledger/utilitybilling/internal/domain/pricing"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/brfledger/utilitybilling/internal/validator"
	"github.com/shopspring/decimal"
)

type CreatePricingRequest struct {
	ServiceID            string          `json:"service_id" validate:"required"`
	EffectiveDate        time.Time       `json:"effective_date" validate:"required"`
	PricePerUnit         decimal.Decimal `json:"price_per_unit"`
	FixedFeePerHousehold decimal.Decimal `json:"fixed_fee_per_household"`
}

func (r *CreatePricingRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.PricePerUnit.IsNegative() || r.FixedFeePerHousehold.IsNegative() {
		return ierr.NewError("pricing amounts cannot be negative").
			WithHint("Price per unit and fixed fee must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *CreatePricingRequest) ToUtilityPricing(ctx context.Context) *pricing.UtilityPricing {
	return &pricing.UtilityPricing{
		ID:                   types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PRICING),
		ServiceID:            r.ServiceID,
		EffectiveDate:        r.EffectiveDate.UTC(),
		PricePerUnit:         r.PricePerUnit,
		FixedFeePerHousehold: r.FixedFeePerHousehold,
		BaseModel:            types.GetDefaultBaseModel(ctx),
	}
}

type PricingResponse struct {
	*pricing.UtilityPricing
}

type ListPricingResponse = types.ListResponse[*PricingResponse]
