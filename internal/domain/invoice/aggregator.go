package invoice

import (
	"time"

	"github.com/brfledger/utilitybilling/internal/domain/billing"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/shopspring/decimal"
)

// AggregateInput is everything needed to fold one household's line items into an invoice
type AggregateInput struct {
	HouseholdID     string
	BillingPeriodID string
	LineItems       []*billing.UtilityBilling
	SharedCosts     decimal.Decimal
	DueDate         time.Time
	Currency        string
}

// Aggregate computes a fresh pending invoice.
// TotalAmount == TotalUtilityCosts + MemberFee + SharedCosts, where utility-category line items
// sum into TotalUtilityCosts and membership-category ones into MemberFee.
func Aggregate(in AggregateInput) (*Invoice, error) {
	utility := decimal.Zero
	member := decimal.Zero

	for _, item := range in.LineItems {
		if item.HouseholdID != in.HouseholdID || item.BillingPeriodID != in.BillingPeriodID {
			return nil, ierr.NewError("line item does not belong to invoice").
				WithHint("All line items must be for the invoiced household and period").
				WithReportableDetails(map[string]any{
					"household_id":      in.HouseholdID,
					"billing_period_id": in.BillingPeriodID,
					"line_item_key":     item.Key().String(),
				}).
				Mark(ierr.ErrValidation)
		}

		switch item.Category {
		case types.ServiceCategoryMembership:
			member = member.Add(item.TotalUtilityCost)
		default:
			utility = utility.Add(item.TotalUtilityCost)
		}
	}

	utility = types.RoundToCurrencyPrecision(utility, in.Currency)
	member = types.RoundToCurrencyPrecision(member, in.Currency)
	shared := types.RoundToCurrencyPrecision(in.SharedCosts, in.Currency)

	return &Invoice{
		HouseholdID:       in.HouseholdID,
		BillingPeriodID:   in.BillingPeriodID,
		Currency:          in.Currency,
		TotalUtilityCosts: utility,
		MemberFee:         member,
		SharedCosts:       shared,
		TotalAmount:       utility.Add(member).Add(shared),
		PaidAmount:        decimal.Zero,
		DueDate:           in.DueDate,
		InvoiceStatus:     types.InvoiceStatusPending,
		LineItems:         in.LineItems,
	}, nil
}

// Recomputation is the outcome of merging a fresh aggregate into a stored invoice
type Recomputation struct {
	Invoice *Invoice
	// PaidTotalChanged is set when a paid invoice's total moved; it stays paid
	PaidTotalChanged bool
	// BecamePaid is set when payments already recorded cover the new lower total
	BecamePaid bool
}

// ApplyRecomputation merges fresh amounts into existing, keeping identity, payments and status.
// A paid invoice is never regressed by recomputation.
func ApplyRecomputation(existing, fresh *Invoice, now time.Time) Recomputation {
	if existing == nil {
		return Recomputation{Invoice: fresh}
	}

	merged := *fresh
	merged.ID = existing.ID
	merged.PaidAmount = existing.PaidAmount
	merged.PaidAt = existing.PaidAt
	merged.InvoiceStatus = existing.InvoiceStatus
	merged.BaseModel = existing.BaseModel
	merged.UpdatedAt = now

	result := Recomputation{Invoice: &merged}
	if existing.IsPaid() {
		result.PaidTotalChanged = !existing.TotalAmount.Equal(fresh.TotalAmount)
		return result
	}

	if merged.PaidAmount.IsPositive() && merged.PaidAmount.GreaterThanOrEqual(merged.TotalAmount) {
		merged.InvoiceStatus = types.InvoiceStatusPaid
		paidAt := now
		merged.PaidAt = &paidAt
		result.BecamePaid = true
	}
	return result
}
