package dto

import (
	"context"
	"strings"

	"github.com/brfledger/utilitybilling/internal/domain/household"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/brfledger/utilitybilling/internal/validator"
	"github.com/shopspring/decimal"
)

type CreateHouseholdRequest struct {
	HouseholdNumber     string          `json:"household_number" validate:"required"`
	Name                string          `json:"name" validate:"required"`
	Email               string          `json:"email,omitempty" validate:"omitempty,email"`
	ShareRatio          decimal.Decimal `json:"share_ratio"`
	AnnualMembershipFee decimal.Decimal `json:"annual_membership_fee"`
	Metadata            types.Metadata  `json:"metadata,omitempty"`
}

func (r *CreateHouseholdRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	r.HouseholdNumber = strings.TrimSpace(r.HouseholdNumber)
	if r.ShareRatio.IsNegative() || r.ShareRatio.GreaterThan(decimal.NewFromInt(1)) {
		return ierr.NewError("share ratio out of range").
			WithHint("Share ratio must be between 0 and 1").
			WithReportableDetails(map[string]interface{}{"share_ratio": r.ShareRatio.String()}).
			Mark(ierr.ErrValidation)
	}
	if r.AnnualMembershipFee.IsNegative() {
		return ierr.NewError("annual membership fee is negative").
			WithHint("Annual membership fee cannot be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *CreateHouseholdRequest) ToHousehold(ctx context.Context) *household.Household {
	return &household.Household{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_HOUSEHOLD),
		HouseholdNumber:     r.HouseholdNumber,
		Name:                r.Name,
		Email:               r.Email,
		ShareRatio:          r.ShareRatio,
		AnnualMembershipFee: r.AnnualMembershipFee,
		HouseholdStatus:     types.HouseholdStatusActive,
		Metadata:            r.Metadata,
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}
}

type UpdateHouseholdRequest struct {
	Name                *string          `json:"name,omitempty"`
	Email               *string          `json:"email,omitempty" validate:"omitempty,email"`
	ShareRatio          *decimal.Decimal `json:"share_ratio,omitempty"`
	AnnualMembershipFee *decimal.Decimal `json:"annual_membership_fee,omitempty"`
	Metadata            types.Metadata   `json:"metadata,omitempty"`
}

func (r *UpdateHouseholdRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type HouseholdResponse struct {
	*household.Household
}

type ListHouseholdsResponse = types.ListResponse[*HouseholdResponse]
