package dto

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/meter"
	"github.com/brfledger/utilitybilling/internal/domain/utilityservice"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/brfledger/utilitybilling/internal/validator"
)

type CreateUtilityServiceRequest struct {
	Name                   string                `json:"name" validate:"required"`
	Unit                   string                `json:"unit,omitempty"`
	Category               types.ServiceCategory `json:"category" validate:"required"`
	IsMetered              bool                  `json:"is_metered"`
	HasMainMeters          bool                  `json:"has_main_meters"`
	RequiresReconciliation bool                  `json:"requires_reconciliation"`
	Metadata               types.Metadata        `json:"metadata,omitempty"`
}

func (r *CreateUtilityServiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.Category.Validate()
}

func (r *CreateUtilityServiceRequest) ToUtilityService(ctx context.Context) *utilityservice.UtilityService {
	return &utilityservice.UtilityService{
		ID:                     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SERVICE),
		Name:                   r.Name,
		Unit:                   r.Unit,
		Category:               r.Category,
		IsMetered:              r.IsMetered,
		HasMainMeters:          r.HasMainMeters,
		RequiresReconciliation: r.RequiresReconciliation,
		Metadata:               r.Metadata,
		BaseModel:              types.GetDefaultBaseModel(ctx),
	}
}

type UtilityServiceResponse struct {
	*utilityservice.UtilityService
}

type ListUtilityServicesResponse = types.ListResponse[*UtilityServiceResponse]

type CreateMainMeterRequest struct {
	ServiceID  string `json:"service_id" validate:"required"`
	Identifier string `json:"identifier" validate:"required"`
}

func (r *CreateMainMeterRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *CreateMainMeterRequest) ToMainMeter(ctx context.Context) *meter.MainMeter {
	return &meter.MainMeter{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_MAIN_METER),
		ServiceID:  r.ServiceID,
		Identifier: r.Identifier,
		BaseModel:  types.GetDefaultBaseModel(ctx),
	}
}

type CreateHouseholdMeterRequest struct {
	HouseholdID string  `json:"household_id" validate:"required"`
	ServiceID   string  `json:"service_id" validate:"required"`
	Serial      *string `json:"serial,omitempty"`
}

func (r *CreateHouseholdMeterRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *CreateHouseholdMeterRequest) ToHouseholdMeter(ctx context.Context) *meter.HouseholdMeter {
	return &meter.HouseholdMeter{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_HOUSEHOLD_METER),
		HouseholdID: r.HouseholdID,
		ServiceID:   r.ServiceID,
		Serial:      r.Serial,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
}

type MainMeterResponse struct {
	*meter.MainMeter
}

type HouseholdMeterResponse struct {
	*meter.HouseholdMeter
}
