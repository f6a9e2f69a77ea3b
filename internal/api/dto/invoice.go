package dto

import (
	"context"
	"time"

	"github.com/brfledger/utilitybilling/internal/domain/invoice"
	"github.com/brfledger/utilitybilling/internal/domain/payment"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/brfledger/utilitybilling/internal/validator"
	"github.com/shopspring/decimal"
)

type InvoiceResponse struct {
	*invoice.Invoice
	AmountDue decimal.Decimal    `json:"amount_due"`
	Payments  []*payment.Payment `json:"payments,omitempty"`
}

func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{Invoice: inv, AmountDue: inv.AmountDue()}
}

type ListInvoicesResponse = types.ListResponse[*InvoiceResponse]

type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	Reference string          `json:"reference,omitempty" validate:"max=255"`
}

func (r *RecordPaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("payment amount must be positive").
			WithHint("Payment amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *RecordPaymentRequest) ToPayment(ctx context.Context, invoiceID string, now time.Time) *payment.Payment {
	paidAt := now
	if r.PaidAt != nil {
		paidAt = r.PaidAt.UTC()
	}
	return &payment.Payment{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		InvoiceID: invoiceID,
		Amount:    r.Amount,
		PaidAt:    paidAt,
		Reference: r.Reference,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
}

type MarkOverdueResponse struct {
	Updated int `json:"updated"`
}
