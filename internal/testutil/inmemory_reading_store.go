package testutil

import (
	"context"
	"fmt"

	"github.com/brfledger/utilitybilling/internal/domain/reading"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
)

// InMemoryReadingStore implements reading.Repository keyed by (meter kind, meter, period)
type InMemoryReadingStore struct {
	*InMemoryStore[*reading.MeterReading]
}

func NewInMemoryReadingStore() *InMemoryReadingStore {
	return &InMemoryReadingStore{InMemoryStore: NewInMemoryStore[*reading.MeterReading]()}
}

func readingKey(k reading.Key) string {
	return fmt.Sprintf("%s:%s:%s", k.MeterKind, k.MeterID, k.BillingPeriodID)
}

func copyReading(r *reading.MeterReading) *reading.MeterReading {
	c := *r
	if r.ConsumptionOverride != nil {
		c.ConsumptionOverride = lo.ToPtr(*r.ConsumptionOverride)
	}
	return &c
}

func (s *InMemoryReadingStore) Upsert(ctx context.Context, r *reading.MeterReading) error {
	key := readingKey(r.Key())
	if existing, err := s.InMemoryStore.Get(ctx, key); err == nil {
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
		r.CreatedBy = existing.CreatedBy
	}
	s.InMemoryStore.Put(ctx, key, copyReading(r))
	return nil
}

func (s *InMemoryReadingStore) Get(ctx context.Context, key reading.Key) (*reading.MeterReading, error) {
	r, err := s.InMemoryStore.Get(ctx, readingKey(key))
	if err != nil {
		return nil, ierr.NewError("meter reading not found").
			WithHint("Meter reading not found").
			WithReportableDetails(map[string]interface{}{
				"meter_kind": key.MeterKind,
				"meter_id":   key.MeterID,
				"period_id":  key.BillingPeriodID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyReading(r), nil
}

func (s *InMemoryReadingStore) ListByMeter(ctx context.Context, kind types.MeterKind, meterID string) ([]*reading.MeterReading, error) {
	return s.list(ctx, func(r *reading.MeterReading) bool {
		return r.MeterKind == kind && r.MeterID == meterID
	})
}

func (s *InMemoryReadingStore) ListByPeriod(ctx context.Context, periodID string) ([]*reading.MeterReading, error) {
	return s.list(ctx, func(r *reading.MeterReading) bool {
		return r.BillingPeriodID == periodID
	})
}

func (s *InMemoryReadingStore) list(ctx context.Context, match func(*reading.MeterReading) bool) ([]*reading.MeterReading, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, r *reading.MeterReading, _ interface{}) bool {
		return r.Status == types.StatusPublished && match(r)
	}, func(i, j *reading.MeterReading) bool {
		if !i.ReadingDate.Equal(j.ReadingDate) {
			return i.ReadingDate.Before(j.ReadingDate)
		}
		return i.ID < j.ID
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(r *reading.MeterReading, _ int) *reading.MeterReading { return copyReading(r) }), nil
}
