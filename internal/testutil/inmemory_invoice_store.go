package testutil

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/invoice"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
)

// InMemoryInvoiceStore implements invoice.Repository; one invoice per (household, period)
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{InMemoryStore: NewInMemoryStore[*invoice.Invoice]()}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	c := *inv
	if inv.PaidAt != nil {
		c.PaidAt = lo.ToPtr(*inv.PaidAt)
	}
	// line items are presentation-only and never stored
	c.LineItems = nil
	return &c
}

func (s *InMemoryInvoiceStore) Upsert(ctx context.Context, inv *invoice.Invoice) error {
	if existing, err := s.GetByHouseholdAndPeriod(ctx, inv.HouseholdID, inv.BillingPeriodID); err == nil {
		inv.ID = existing.ID
		inv.CreatedAt = existing.CreatedAt
		inv.CreatedBy = existing.CreatedBy
	}
	s.InMemoryStore.Put(ctx, inv.ID, copyInvoice(inv))
	return nil
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("invoice not found").
			WithHint("Invoice not found").
			WithReportableDetails(map[string]interface{}{"invoice_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) GetByHouseholdAndPeriod(ctx context.Context, householdID, periodID string) (*invoice.Invoice, error) {
	items, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, inv *invoice.Invoice, _ interface{}) bool {
		return inv.HouseholdID == householdID && inv.BillingPeriodID == periodID
	}, nil)
	if len(items) == 0 {
		return nil, ierr.NewError("invoice not found").
			WithHint("Invoice not found").
			WithReportableDetails(map[string]interface{}{
				"household_id": householdID,
				"period_id":    periodID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(items[0]), nil
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	items, err := s.InMemoryStore.List(ctx, filter, invoiceFilterFn, func(i, j *invoice.Invoice) bool {
		if !i.DueDate.Equal(j.DueDate) {
			return i.DueDate.Before(j.DueDate)
		}
		return i.HouseholdID < j.HouseholdID
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(inv *invoice.Invoice, _ int) *invoice.Invoice { return copyInvoice(inv) }), nil
}

func (s *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, invoiceFilterFn)
}

func invoiceFilterFn(_ context.Context, inv *invoice.Invoice, filter interface{}) bool {
	if inv.Status != types.StatusPublished {
		return false
	}
	f, ok := filter.(*types.InvoiceFilter)
	if !ok || f == nil {
		return true
	}
	if f.HouseholdID != "" && inv.HouseholdID != f.HouseholdID {
		return false
	}
	if f.BillingPeriodID != "" && inv.BillingPeriodID != f.BillingPeriodID {
		return false
	}
	return len(f.InvoiceStatus) == 0 || lo.Contains(f.InvoiceStatus, inv.InvoiceStatus)
}
