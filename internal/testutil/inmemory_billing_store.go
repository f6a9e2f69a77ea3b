package testutil

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/billing"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
)

// InMemoryBillingStore implements billing.Repository keyed by (household, service, period)
type InMemoryBillingStore struct {
	*InMemoryStore[*billing.UtilityBilling]
}

func NewInMemoryBillingStore() *InMemoryBillingStore {
	return &InMemoryBillingStore{InMemoryStore: NewInMemoryStore[*billing.UtilityBilling]()}
}

func copyBilling(b *billing.UtilityBilling) *billing.UtilityBilling {
	c := *b
	return &c
}

func (s *InMemoryBillingStore) UpsertMany(ctx context.Context, items []*billing.UtilityBilling) error {
	for _, b := range items {
		key := b.Key().String()
		if existing, err := s.InMemoryStore.Get(ctx, key); err == nil {
			b.ID = existing.ID
			b.CreatedAt = existing.CreatedAt
			b.CreatedBy = existing.CreatedBy
		}
		s.InMemoryStore.Put(ctx, key, copyBilling(b))
	}
	return nil
}

func (s *InMemoryBillingStore) ListByPeriod(ctx context.Context, periodID string) ([]*billing.UtilityBilling, error) {
	return s.list(ctx, func(b *billing.UtilityBilling) bool { return b.BillingPeriodID == periodID })
}

func (s *InMemoryBillingStore) ListByHouseholdAndPeriod(ctx context.Context, householdID, periodID string) ([]*billing.UtilityBilling, error) {
	return s.list(ctx, func(b *billing.UtilityBilling) bool {
		return b.HouseholdID == householdID && b.BillingPeriodID == periodID
	})
}

func (s *InMemoryBillingStore) DeleteStale(ctx context.Context, periodID string, keep []billing.Key) (int, error) {
	keepSet := lo.SliceToMap(keep, func(k billing.Key) (string, struct{}) { return k.String(), struct{}{} })

	stale, err := s.ListByPeriod(ctx, periodID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, b := range stale {
		key := b.Key().String()
		if _, ok := keepSet[key]; ok {
			continue
		}
		if err := s.InMemoryStore.Delete(ctx, key); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (s *InMemoryBillingStore) list(ctx context.Context, match func(*billing.UtilityBilling) bool) ([]*billing.UtilityBilling, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, b *billing.UtilityBilling, _ interface{}) bool {
		return b.Status == types.StatusPublished && match(b)
	}, func(i, j *billing.UtilityBilling) bool {
		return i.Key().String() < j.Key().String()
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(b *billing.UtilityBilling, _ int) *billing.UtilityBilling { return copyBilling(b) }), nil
}
