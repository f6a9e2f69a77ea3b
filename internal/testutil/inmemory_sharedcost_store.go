package testutil

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/sharedcost"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
)

// InMemorySharedCostStore implements sharedcost.Repository
type InMemorySharedCostStore struct {
	*InMemoryStore[*sharedcost.SharedCost]
}

func NewInMemorySharedCostStore() *InMemorySharedCostStore {
	return &InMemorySharedCostStore{InMemoryStore: NewInMemoryStore[*sharedcost.SharedCost]()}
}

func copySharedCost(c *sharedcost.SharedCost) *sharedcost.SharedCost {
	cp := *c
	return &cp
}

func (s *InMemorySharedCostStore) Create(ctx context.Context, c *sharedcost.SharedCost) error {
	return s.InMemoryStore.Create(ctx, c.ID, copySharedCost(c))
}

func (s *InMemorySharedCostStore) Get(ctx context.Context, id string) (*sharedcost.SharedCost, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("shared cost not found").
			WithHint("Shared cost not found").
			Mark(ierr.ErrNotFound)
	}
	return copySharedCost(c), nil
}

func (s *InMemorySharedCostStore) ListByQuarter(ctx context.Context, year, quarter int) ([]*sharedcost.SharedCost, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, c *sharedcost.SharedCost, _ interface{}) bool {
		return c.Year == year && c.Quarter == quarter && c.Status == types.StatusPublished
	}, func(i, j *sharedcost.SharedCost) bool {
		return i.ID < j.ID
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(c *sharedcost.SharedCost, _ int) *sharedcost.SharedCost { return copySharedCost(c) }), nil
}

func (s *InMemorySharedCostStore) Update(ctx context.Context, c *sharedcost.SharedCost) error {
	return s.InMemoryStore.Update(ctx, c.ID, copySharedCost(c))
}
