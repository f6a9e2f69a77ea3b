package testutil

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/household"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
)

// InMemoryHouseholdStore implements household.Repository
type InMemoryHouseholdStore struct {
	*InMemoryStore[*household.Household]
}

func NewInMemoryHouseholdStore() *InMemoryHouseholdStore {
	return &InMemoryHouseholdStore{InMemoryStore: NewInMemoryStore[*household.Household]()}
}

func copyHousehold(h *household.Household) *household.Household {
	if h == nil {
		return nil
	}
	c := *h
	if h.Metadata != nil {
		c.Metadata = lo.Assign(types.Metadata{}, h.Metadata)
	}
	return &c
}

func (s *InMemoryHouseholdStore) Create(ctx context.Context, h *household.Household) error {
	if h == nil {
		return ierr.NewError("household cannot be nil").
			WithHint("Household cannot be nil").
			Mark(ierr.ErrValidation)
	}

	if _, err := s.GetByNumber(ctx, h.HouseholdNumber); err == nil {
		return ierr.NewError("household number already exists").
			WithHintf("Household number %s is already registered", h.HouseholdNumber).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, h.ID, copyHousehold(h))
}

func (s *InMemoryHouseholdStore) Get(ctx context.Context, id string) (*household.Household, error) {
	h, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("household not found").
			WithHint("Household not found").
			WithReportableDetails(map[string]interface{}{"household_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return copyHousehold(h), nil
}

func (s *InMemoryHouseholdStore) GetByNumber(ctx context.Context, householdNumber string) (*household.Household, error) {
	items, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, h *household.Household, _ interface{}) bool {
		return h.HouseholdNumber == householdNumber
	}, nil)
	if len(items) == 0 {
		return nil, ierr.NewError("household not found").
			WithHint("Household not found").
			WithReportableDetails(map[string]interface{}{"household_number": householdNumber}).
			Mark(ierr.ErrNotFound)
	}
	return copyHousehold(items[0]), nil
}

func (s *InMemoryHouseholdStore) List(ctx context.Context, filter *types.HouseholdFilter) ([]*household.Household, error) {
	items, err := s.InMemoryStore.List(ctx, filter, householdFilterFn, func(i, j *household.Household) bool {
		return i.HouseholdNumber < j.HouseholdNumber
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(h *household.Household, _ int) *household.Household { return copyHousehold(h) }), nil
}

func (s *InMemoryHouseholdStore) Count(ctx context.Context, filter *types.HouseholdFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, householdFilterFn)
}

func (s *InMemoryHouseholdStore) Update(ctx context.Context, h *household.Household) error {
	if err := s.InMemoryStore.Update(ctx, h.ID, copyHousehold(h)); err != nil {
		return ierr.WithError(err).
			WithHint("Household not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func householdFilterFn(_ context.Context, h *household.Household, filter interface{}) bool {
	if h == nil || h.Status != types.StatusPublished {
		return false
	}
	f, ok := filter.(*types.HouseholdFilter)
	if !ok || f == nil {
		return true
	}
	if len(f.HouseholdIDs) > 0 && !lo.Contains(f.HouseholdIDs, h.ID) {
		return false
	}
	if len(f.HouseholdNumbers) > 0 && !lo.Contains(f.HouseholdNumbers, h.HouseholdNumber) {
		return false
	}
	if f.HouseholdStatus != nil && h.HouseholdStatus != *f.HouseholdStatus {
		return false
	}
	return true
}
