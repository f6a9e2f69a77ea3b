package dto

import (
	"context"
	"time"

	"github.com/brfledger/utilitybilling/internal/domain/period"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/brfledger/utilitybilling/internal/validator"
)

type CreateBillingPeriodRequest struct {
	Name              string     `json:"name" validate:"required"`
	StartDate         time.Time  `json:"start_date" validate:"required"`
	EndDate           time.Time  `json:"end_date" validate:"required"`
	ReadingDeadline   *time.Time `json:"reading_deadline,omitempty"`
	IsOfficialBilling bool       `json:"is_official_billing"`
	IsBillingEnabled  *bool      `json:"is_billing_enabled,omitempty"`
}

func (r *CreateBillingPeriodRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.ToBillingPeriod(context.Background()).Validate()
}

func (r *CreateBillingPeriodRequest) ToBillingPeriod(ctx context.Context) *period.BillingPeriod {
	enabled := true
	if r.IsBillingEnabled != nil {
		enabled = *r.IsBillingEnabled
	}
	return &period.BillingPeriod{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_PERIOD),
		Name:              r.Name,
		StartDate:         r.StartDate.UTC(),
		EndDate:           r.EndDate.UTC(),
		ReadingDeadline:   r.ReadingDeadline,
		IsOfficialBilling: r.IsOfficialBilling,
		IsBillingEnabled:  enabled,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
}

type BillingPeriodResponse struct {
	*period.BillingPeriod
}

type ListBillingPeriodsResponse = types.ListResponse[*BillingPeriodResponse]
