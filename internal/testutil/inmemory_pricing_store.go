package testutil

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/pricing"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
)

// InMemoryPricingStore implements pricing.Repository
type InMemoryPricingStore struct {
	*InMemoryStore[*pricing.UtilityPricing]
}

func NewInMemoryPricingStore() *InMemoryPricingStore {
	return &InMemoryPricingStore{InMemoryStore: NewInMemoryStore[*pricing.UtilityPricing]()}
}

func copyPricing(p *pricing.UtilityPricing) *pricing.UtilityPricing {
	c := *p
	return &c
}

func (s *InMemoryPricingStore) Create(ctx context.Context, p *pricing.UtilityPricing) error {
	history, _ := s.ListByService(ctx, p.ServiceID)
	if lo.ContainsBy(history, func(e *pricing.UtilityPricing) bool { return e.EffectiveDate.Equal(p.EffectiveDate) }) {
		return ierr.NewError("pricing already exists").
			WithHint("A price with this effective date already exists for the service").
			WithReportableDetails(map[string]interface{}{
				"service_id":     p.ServiceID,
				"effective_date": p.EffectiveDate,
			}).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, p.ID, copyPricing(p))
}

func (s *InMemoryPricingStore) Get(ctx context.Context, id string) (*pricing.UtilityPricing, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("pricing not found").
			WithHint("Pricing not found").
			Mark(ierr.ErrNotFound)
	}
	return copyPricing(p), nil
}

func (s *InMemoryPricingStore) ListByService(ctx context.Context, serviceID string) ([]*pricing.UtilityPricing, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, p *pricing.UtilityPricing, _ interface{}) bool {
		return p.ServiceID == serviceID && p.Status == types.StatusPublished
	}, func(i, j *pricing.UtilityPricing) bool {
		return i.EffectiveDate.Before(j.EffectiveDate)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(p *pricing.UtilityPricing, _ int) *pricing.UtilityPricing { return copyPricing(p) }), nil
}
