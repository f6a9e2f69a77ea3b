package invoice

import (
	"time"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/shopspring/decimal"
)

// allowedTransitions is the invoice state machine. Nothing leaves paid.
var allowedTransitions = map[types.InvoiceStatus][]types.InvoiceStatus{
	types.InvoiceStatusPending: {types.InvoiceStatusPaid, types.InvoiceStatusOverdue},
	types.InvoiceStatusOverdue: {types.InvoiceStatusPaid},
	types.InvoiceStatusPaid:    {},
}

func CanTransition(from, to types.InvoiceStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RecordPayment adds amount to the paid total and moves the invoice to paid once
// cumulative payments cover the total. Returns true when the invoice became paid.
func RecordPayment(inv *Invoice, amount decimal.Decimal, at time.Time) (bool, error) {
	if !amount.IsPositive() {
		return false, ierr.NewError("payment amount must be positive").
			WithHint("Payment amount must be greater than zero").
			WithReportableDetails(map[string]any{"amount": amount.String()}).
			Mark(ierr.ErrValidation)
	}
	if inv.IsPaid() {
		return false, ierr.NewError("invoice is already paid").
			WithHintf("Invoice %s is already paid", inv.ID).
			Mark(ierr.ErrInvalidOperation)
	}

	inv.PaidAmount = inv.PaidAmount.Add(amount)
	inv.UpdatedAt = at
	if inv.PaidAmount.GreaterThanOrEqual(inv.TotalAmount) {
		inv.InvoiceStatus = types.InvoiceStatusPaid
		paidAt := at
		inv.PaidAt = &paidAt
		return true, nil
	}
	return false, nil
}

// MarkOverdue moves a pending invoice to overdue once now is past its due date.
// Returns true when the status changed.
func MarkOverdue(inv *Invoice, now time.Time) bool {
	if inv.InvoiceStatus != types.InvoiceStatusPending || !now.After(inv.DueDate) {
		return false
	}
	inv.InvoiceStatus = types.InvoiceStatusOverdue
	inv.UpdatedAt = now
	return true
}
