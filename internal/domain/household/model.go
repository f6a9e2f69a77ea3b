package household

import (
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// shareRatioTolerance is how far the sum of active share ratios may drift from 1
var shareRatioTolerance = decimal.New(1, -6)

// Household is a member of the cooperative.
// ShareRatio is the household's andelstal, its fraction of total cooperative costs.
type Household struct {
	ID                  string                `json:"id"`
	HouseholdNumber     string                `json:"household_number"`
	Name                string                `json:"name"`
	Email               string                `json:"email,omitempty"`
	ShareRatio          decimal.Decimal       `json:"share_ratio"`
	AnnualMembershipFee decimal.Decimal       `json:"annual_membership_fee"`
	HouseholdStatus     types.HouseholdStatus `json:"household_status"`
	Metadata            types.Metadata        `json:"metadata,omitempty"`
	types.BaseModel
}

func (h *Household) IsActive() bool {
	return h.HouseholdStatus == types.HouseholdStatusActive
}

// Deactivate soft-deactivates the household. Households are never hard deleted once billed.
func (h *Household) Deactivate() error {
	if !h.IsActive() {
		return ierr.NewError("household is already inactive").
			WithHintf("Household %s is already inactive", h.HouseholdNumber).
			Mark(ierr.ErrInvalidOperation)
	}
	h.HouseholdStatus = types.HouseholdStatusInactive
	return nil
}

func (h *Household) Validate() error {
	if h.HouseholdNumber == "" {
		return ierr.NewError("household number is required").
			WithHint("Please provide a household number").
			Mark(ierr.ErrValidation)
	}
	if h.ShareRatio.IsNegative() || h.ShareRatio.GreaterThan(decimal.NewFromInt(1)) {
		return ierr.NewError("share ratio out of range").
			WithHint("Share ratio must be between 0 and 1").
			WithReportableDetails(map[string]any{
				"household_number": h.HouseholdNumber,
				"share_ratio":      h.ShareRatio.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if h.AnnualMembershipFee.IsNegative() {
		return ierr.NewError("annual membership fee must not be negative").
			WithHint("Annual membership fee must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ValidateShareRatios checks that the share ratios of the active households sum to 1.
// A failure is a data integrity warning; billing does not depend on share ratios.
func ValidateShareRatios(households []*Household) error {
	active := lo.Filter(households, func(h *Household, _ int) bool { return h.IsActive() })
	if len(active) == 0 {
		return nil
	}

	sum := lo.Reduce(active, func(acc decimal.Decimal, h *Household, _ int) decimal.Decimal {
		return acc.Add(h.ShareRatio)
	}, decimal.Zero)

	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(shareRatioTolerance) {
		return ierr.NewError("share ratios do not sum to one").
			WithHintf("Active household share ratios sum to %s, expected 1", sum.String()).
			WithReportableDetails(map[string]any{
				"sum":             sum.String(),
				"household_count": len(active),
			}).
			Mark(ierr.ErrDataIntegrity)
	}
	return nil
}
