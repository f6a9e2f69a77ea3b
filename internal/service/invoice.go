package service

import (
	"context"
	"sort"
	"time"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/domain/invoice"
	"github.com/brfledger/utilitybilling/internal/domain/payment"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/publisher"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
)

type InvoiceService interface {
	// GetInvoice returns the invoice with its line items and recorded payments
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
	RecordPayment(ctx context.Context, invoiceID string, req dto.RecordPaymentRequest) (*dto.InvoiceResponse, error)
	// MarkOverdue moves every pending invoice whose due date has passed to overdue
	MarkOverdue(ctx context.Context, now time.Time) (*dto.MarkOverdueResponse, error)
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
	}
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	if id == "" {
		return nil, ierr.NewError("invoice id is required").
			WithHint("Please provide a valid invoice ID").
			Mark(ierr.ErrValidation)
	}

	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	lineItems, err := s.BillingRepo.ListByHouseholdAndPeriod(ctx, inv.HouseholdID, inv.BillingPeriodID)
	if err != nil {
		return nil, err
	}
	inv.LineItems = lineItems

	payments, err := s.PaymentRepo.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return nil, err
	}

	resp := dto.NewInvoiceResponse(inv)
	resp.Payments = payments
	return resp, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.QueryFilter.Validate(); err != nil {
		return nil, err
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.ListInvoicesResponse{
		Items: lo.Map(invoices, func(inv *invoice.Invoice, _ int) *dto.InvoiceResponse {
			return dto.NewInvoiceResponse(inv)
		}),
		Pagination: types.PaginationResponse{
			Total:  count,
			Limit:  filter.GetLimit(),
			Offset: filter.GetOffset(),
		},
	}, nil
}

func (s *invoiceService) RecordPayment(ctx context.Context, invoiceID string, req dto.RecordPaymentRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// the natural key never changes, so it is safe to read it before taking the lock
	current, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	var (
		inv        *invoice.Invoice
		p          *payment.Payment
		becamePaid bool
	)
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := lockInvoice(ctx, s.ServiceParams, current.HouseholdID, current.BillingPeriodID); err != nil {
			return err
		}

		var err error
		inv, err = s.InvoiceRepo.Get(ctx, invoiceID)
		if err != nil {
			return err
		}

		p = req.ToPayment(ctx, inv.ID, time.Now().UTC())
		if err := p.Validate(); err != nil {
			return err
		}

		becamePaid, err = invoice.RecordPayment(inv, p.Amount, p.PaidAt)
		if err != nil {
			return err
		}

		if err := s.PaymentRepo.Create(ctx, p); err != nil {
			return err
		}
		return s.InvoiceRepo.Upsert(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("recorded payment",
		"invoice_id", inv.ID,
		"payment_id", p.ID,
		"amount", p.Amount.String(),
		"paid_amount", inv.PaidAmount.String(),
		"invoice_status", inv.InvoiceStatus)

	if becamePaid {
		s.publishEvents(ctx, []*publisher.Event{invoicePaidEvent(inv)})
	}

	return s.GetInvoice(ctx, inv.ID)
}

func (s *invoiceService) MarkOverdue(ctx context.Context, now time.Time) (*dto.MarkOverdueResponse, error) {
	var events []*publisher.Event

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		pending, err := s.InvoiceRepo.List(ctx, &types.InvoiceFilter{
			QueryFilter:   types.NewNoLimitQueryFilter(),
			InvoiceStatus: []types.InvoiceStatus{types.InvoiceStatusPending},
		})
		if err != nil {
			return err
		}

		sortByInvoiceLockOrder(pending)

		for _, candidate := range pending {
			if !now.After(candidate.DueDate) {
				continue
			}
			if err := lockInvoice(ctx, s.ServiceParams, candidate.HouseholdID, candidate.BillingPeriodID); err != nil {
				return err
			}
			// a payment may have landed between the listing and the lock
			inv, err := s.InvoiceRepo.Get(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if !invoice.MarkOverdue(inv, now) {
				continue
			}
			if err := s.InvoiceRepo.Upsert(ctx, inv); err != nil {
				return err
			}
			events = append(events, publisher.NewEvent(publisher.EventInvoiceOverdue, inv.BillingPeriodID, inv.HouseholdID, map[string]interface{}{
				"invoice_id": inv.ID,
				"due_date":   inv.DueDate,
				"amount_due": inv.AmountDue().String(),
			}))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, events)

	s.Logger.Infow("marked invoices overdue",
		"updated", len(events),
		"as_of", now)

	return &dto.MarkOverdueResponse{Updated: len(events)}, nil
}

// lockInvoice waits for the (household, period) invoice lock inside the caller's transaction.
// Callers holding several invoice locks take them in sortByInvoiceLockOrder order.
func lockInvoice(ctx context.Context, params ServiceParams, householdID, periodID string) error {
	req := types.LockRequest{Key: invoiceLockKey(householdID, periodID)}
	if params.Config.Billing.LockTimeout > 0 {
		req.Timeout = lo.ToPtr(params.Config.Billing.LockTimeout)
	}
	return params.DB.LockKey(ctx, req)
}

func invoiceLockKey(householdID, periodID string) string {
	return types.GenerateLockKey(types.LockScopeInvoice, map[string]interface{}{
		"household_id": householdID,
		"period_id":    periodID,
	})
}

func sortByInvoiceLockOrder(invoices []*invoice.Invoice) {
	sort.Slice(invoices, func(i, j int) bool {
		if invoices[i].BillingPeriodID != invoices[j].BillingPeriodID {
			return invoices[i].BillingPeriodID < invoices[j].BillingPeriodID
		}
		return invoices[i].HouseholdID < invoices[j].HouseholdID
	})
}
