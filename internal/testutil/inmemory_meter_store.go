package testutil

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/meter"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
)

// InMemoryMeterStore implements meter.Repository
type InMemoryMeterStore struct {
	mainMeters      *InMemoryStore[*meter.MainMeter]
	householdMeters *InMemoryStore[*meter.HouseholdMeter]
}

func NewInMemoryMeterStore() *InMemoryMeterStore {
	return &InMemoryMeterStore{
		mainMeters:      NewInMemoryStore[*meter.MainMeter](),
		householdMeters: NewInMemoryStore[*meter.HouseholdMeter](),
	}
}

func copyMainMeter(m *meter.MainMeter) *meter.MainMeter {
	c := *m
	return &c
}

func copyHouseholdMeter(m *meter.HouseholdMeter) *meter.HouseholdMeter {
	c := *m
	if m.Serial != nil {
		c.Serial = lo.ToPtr(*m.Serial)
	}
	return &c
}

func (s *InMemoryMeterStore) CreateMainMeter(ctx context.Context, m *meter.MainMeter) error {
	return s.mainMeters.Create(ctx, m.ID, copyMainMeter(m))
}

func (s *InMemoryMeterStore) GetMainMeter(ctx context.Context, id string) (*meter.MainMeter, error) {
	m, err := s.mainMeters.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Main meter not found").
			Mark(ierr.ErrNotFound)
	}
	return copyMainMeter(m), nil
}

func (s *InMemoryMeterStore) ListMainMeters(ctx context.Context, serviceID string) ([]*meter.MainMeter, error) {
	items, err := s.mainMeters.List(ctx, nil, func(_ context.Context, m *meter.MainMeter, _ interface{}) bool {
		return m.ServiceID == serviceID && m.Status == types.StatusPublished
	}, func(i, j *meter.MainMeter) bool {
		return i.Identifier < j.Identifier
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(m *meter.MainMeter, _ int) *meter.MainMeter { return copyMainMeter(m) }), nil
}

func (s *InMemoryMeterStore) CreateHouseholdMeter(ctx context.Context, m *meter.HouseholdMeter) error {
	existing, _ := s.ListHouseholdMeters(ctx, &types.HouseholdMeterFilter{HouseholdID: m.HouseholdID, ServiceID: m.ServiceID})
	if len(existing) > 0 {
		return ierr.NewError("household meter already exists").
			WithHint("Household already has a meter for this service").
			WithReportableDetails(map[string]interface{}{
				"household_id": m.HouseholdID,
				"service_id":   m.ServiceID,
			}).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.householdMeters.Create(ctx, m.ID, copyHouseholdMeter(m))
}

func (s *InMemoryMeterStore) GetHouseholdMeter(ctx context.Context, id string) (*meter.HouseholdMeter, error) {
	m, err := s.householdMeters.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Household meter not found").
			Mark(ierr.ErrNotFound)
	}
	return copyHouseholdMeter(m), nil
}

func (s *InMemoryMeterStore) ListHouseholdMeters(ctx context.Context, filter *types.HouseholdMeterFilter) ([]*meter.HouseholdMeter, error) {
	items, err := s.householdMeters.List(ctx, filter, func(_ context.Context, m *meter.HouseholdMeter, _ interface{}) bool {
		if m.Status != types.StatusPublished {
			return false
		}
		if filter == nil {
			return true
		}
		if filter.HouseholdID != "" && m.HouseholdID != filter.HouseholdID {
			return false
		}
		return filter.ServiceID == "" || m.ServiceID == filter.ServiceID
	}, func(i, j *meter.HouseholdMeter) bool {
		if i.HouseholdID != j.HouseholdID {
			return i.HouseholdID < j.HouseholdID
		}
		return i.ServiceID < j.ServiceID
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(m *meter.HouseholdMeter, _ int) *meter.HouseholdMeter { return copyHouseholdMeter(m) }), nil
}

func (s *InMemoryMeterStore) Clear() {
	s.mainMeters.Clear()
	s.householdMeters.Clear()
}
