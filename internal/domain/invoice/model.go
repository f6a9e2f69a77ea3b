package invoice

import (
	"time"

	"github.com/brfledger/utilitybilling/internal/domain/billing"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is the payable total of one household for one period.
// It is derived from line items and never hand-entered; (household, period) is its identity.
type Invoice struct {
	ID                string              `json:"id"`
	HouseholdID       string              `json:"household_id"`
	BillingPeriodID   string              `json:"billing_period_id"`
	Currency          string              `json:"currency"`
	TotalUtilityCosts decimal.Decimal     `json:"total_utility_costs"`
	MemberFee         decimal.Decimal     `json:"member_fee"`
	SharedCosts       decimal.Decimal     `json:"shared_costs"`
	TotalAmount       decimal.Decimal     `json:"total_amount"`
	PaidAmount        decimal.Decimal     `json:"paid_amount"`
	DueDate           time.Time           `json:"due_date"`
	InvoiceStatus     types.InvoiceStatus `json:"invoice_status"`
	PaidAt            *time.Time          `json:"paid_at,omitempty"`

	// LineItems is populated on reads for presentation; it is not stored with the invoice
	LineItems []*billing.UtilityBilling `json:"line_items,omitempty"`

	types.BaseModel
}

// AmountDue is what remains to be paid, never below zero
func (inv *Invoice) AmountDue() decimal.Decimal {
	due := inv.TotalAmount.Sub(inv.PaidAmount)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

func (inv *Invoice) IsPaid() bool {
	return inv.InvoiceStatus == types.InvoiceStatusPaid
}
