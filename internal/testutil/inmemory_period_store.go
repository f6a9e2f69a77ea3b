package testutil

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/period"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
)

// InMemoryPeriodStore implements period.Repository
type InMemoryPeriodStore struct {
	*InMemoryStore[*period.BillingPeriod]
}

func NewInMemoryPeriodStore() *InMemoryPeriodStore {
	return &InMemoryPeriodStore{InMemoryStore: NewInMemoryStore[*period.BillingPeriod]()}
}

func copyPeriod(p *period.BillingPeriod) *period.BillingPeriod {
	c := *p
	if p.ReadingDeadline != nil {
		c.ReadingDeadline = lo.ToPtr(*p.ReadingDeadline)
	}
	return &c
}

func (s *InMemoryPeriodStore) Create(ctx context.Context, p *period.BillingPeriod) error {
	if _, err := s.GetByName(ctx, p.Name); err == nil {
		return ierr.NewError("billing period already exists").
			WithHintf("A billing period named %s already exists", p.Name).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, p.ID, copyPeriod(p))
}

func (s *InMemoryPeriodStore) Get(ctx context.Context, id string) (*period.BillingPeriod, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("billing period not found").
			WithHint("Billing period not found").
			WithReportableDetails(map[string]interface{}{"period_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return copyPeriod(p), nil
}

func (s *InMemoryPeriodStore) GetByName(ctx context.Context, name string) (*period.BillingPeriod, error) {
	items, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, p *period.BillingPeriod, _ interface{}) bool {
		return p.Name == name && p.Status == types.StatusPublished
	}, nil)
	if len(items) == 0 {
		return nil, ierr.NewError("billing period not found").
			WithHint("Billing period not found").
			WithReportableDetails(map[string]interface{}{"name": name}).
			Mark(ierr.ErrNotFound)
	}
	return copyPeriod(items[0]), nil
}

func (s *InMemoryPeriodStore) List(ctx context.Context) ([]*period.BillingPeriod, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, p *period.BillingPeriod, _ interface{}) bool {
		return p.Status == types.StatusPublished
	}, func(i, j *period.BillingPeriod) bool {
		return i.StartDate.Before(j.StartDate)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(p *period.BillingPeriod, _ int) *period.BillingPeriod { return copyPeriod(p) }), nil
}

func (s *InMemoryPeriodStore) Update(ctx context.Context, p *period.BillingPeriod) error {
	return s.InMemoryStore.Update(ctx, p.ID, copyPeriod(p))
}
