package testutil

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/payment"
	"github.com/samber/lo"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{InMemoryStore: NewInMemoryStore[*payment.Payment]()}
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	c := *p
	return s.InMemoryStore.Create(ctx, p.ID, &c)
}

func (s *InMemoryPaymentStore) ListByInvoice(ctx context.Context, invoiceID string) ([]*payment.Payment, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, p *payment.Payment, _ interface{}) bool {
		return p.InvoiceID == invoiceID
	}, func(i, j *payment.Payment) bool {
		return i.PaidAt.Before(j.PaidAt)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(p *payment.Payment, _ int) *payment.Payment {
		c := *p
		return &c
	}), nil
}
