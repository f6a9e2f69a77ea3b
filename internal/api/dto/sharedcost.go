package dto

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/sharedcost"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/brfledger/utilitybilling/internal/validator"
	"github.com/shopspring/decimal"
)

type CreateSharedCostRequest struct {
	Year        int             `json:"year" validate:"required,min=2000,max=2200"`
	Quarter     int             `json:"quarter" validate:"required,min=1,max=4"`
	Description string          `json:"description" validate:"required"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func (r *CreateSharedCostRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.ToSharedCost(context.Background()).Validate()
}

func (r *CreateSharedCostRequest) ToSharedCost(ctx context.Context) *sharedcost.SharedCost {
	return &sharedcost.SharedCost{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SHARED_COST),
		Year:        r.Year,
		Quarter:     r.Quarter,
		Description: r.Description,
		TotalAmount: r.TotalAmount,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
}

type SharedCostResponse struct {
	*sharedcost.SharedCost
}
