package testutil

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/reconciliation"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InMemoryReconciliationStore implements reconciliation.Repository keyed by (service, period)
type InMemoryReconciliationStore struct {
	*InMemoryStore[*reconciliation.Reconciliation]
}

func NewInMemoryReconciliationStore() *InMemoryReconciliationStore {
	return &InMemoryReconciliationStore{InMemoryStore: NewInMemoryStore[*reconciliation.Reconciliation]()}
}

func copyReconciliation(r *reconciliation.Reconciliation) *reconciliation.Reconciliation {
	c := *r
	if r.HouseholdAdjustments != nil {
		c.HouseholdAdjustments = lo.Assign(map[string]decimal.Decimal{}, r.HouseholdAdjustments)
	}
	return &c
}

func (s *InMemoryReconciliationStore) Upsert(ctx context.Context, r *reconciliation.Reconciliation) error {
	key := r.ServiceID + ":" + r.BillingPeriodID
	if existing, err := s.InMemoryStore.Get(ctx, key); err == nil {
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
		r.CreatedBy = existing.CreatedBy
	}
	s.InMemoryStore.Put(ctx, key, copyReconciliation(r))
	return nil
}

func (s *InMemoryReconciliationStore) Get(ctx context.Context, serviceID, periodID string) (*reconciliation.Reconciliation, error) {
	r, err := s.InMemoryStore.Get(ctx, serviceID+":"+periodID)
	if err != nil || r.Status != types.StatusPublished {
		return nil, ierr.NewError("reconciliation not found").
			WithHint("Reconciliation not found").
			WithReportableDetails(map[string]interface{}{
				"service_id": serviceID,
				"period_id":  periodID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyReconciliation(r), nil
}

func (s *InMemoryReconciliationStore) Archive(ctx context.Context, serviceID, periodID string) (bool, error) {
	key := serviceID + ":" + periodID
	r, err := s.InMemoryStore.Get(ctx, key)
	if err != nil || r.Status != types.StatusPublished {
		return false, nil
	}
	archived := copyReconciliation(r)
	archived.Status = types.StatusArchived
	s.InMemoryStore.Put(ctx, key, archived)
	return true, nil
}

func (s *InMemoryReconciliationStore) ListByPeriod(ctx context.Context, periodID string) ([]*reconciliation.Reconciliation, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, r *reconciliation.Reconciliation, _ interface{}) bool {
		return r.BillingPeriodID == periodID && r.Status == types.StatusPublished
	}, func(i, j *reconciliation.Reconciliation) bool {
		return i.ServiceID < j.ServiceID
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(r *reconciliation.Reconciliation, _ int) *reconciliation.Reconciliation {
		return copyReconciliation(r)
	}), nil
}
