package testutil

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/utilityservice"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
)

// InMemoryUtilityServiceStore implements utilityservice.Repository
type InMemoryUtilityServiceStore struct {
	*InMemoryStore[*utilityservice.UtilityService]
}

func NewInMemoryUtilityServiceStore() *InMemoryUtilityServiceStore {
	return &InMemoryUtilityServiceStore{InMemoryStore: NewInMemoryStore[*utilityservice.UtilityService]()}
}

func copyUtilityService(s *utilityservice.UtilityService) *utilityservice.UtilityService {
	if s == nil {
		return nil
	}
	c := *s
	if s.Metadata != nil {
		c.Metadata = lo.Assign(types.Metadata{}, s.Metadata)
	}
	return &c
}

func (s *InMemoryUtilityServiceStore) Create(ctx context.Context, svc *utilityservice.UtilityService) error {
	existing, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, e *utilityservice.UtilityService, _ interface{}) bool {
		return e.Name == svc.Name
	}, nil)
	if len(existing) > 0 {
		return ierr.NewError("utility service already exists").
			WithHintf("A service named %s already exists", svc.Name).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, svc.ID, copyUtilityService(svc))
}

func (s *InMemoryUtilityServiceStore) Get(ctx context.Context, id string) (*utilityservice.UtilityService, error) {
	svc, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("utility service not found").
			WithHint("Utility service not found").
			WithReportableDetails(map[string]interface{}{"service_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return copyUtilityService(svc), nil
}

func (s *InMemoryUtilityServiceStore) List(ctx context.Context, filter *types.UtilityServiceFilter) ([]*utilityservice.UtilityService, error) {
	items, err := s.InMemoryStore.List(ctx, filter, func(_ context.Context, svc *utilityservice.UtilityService, f interface{}) bool {
		if svc.Status != types.StatusPublished {
			return false
		}
		sf, ok := f.(*types.UtilityServiceFilter)
		if !ok || sf == nil {
			return true
		}
		if len(sf.ServiceIDs) > 0 && !lo.Contains(sf.ServiceIDs, svc.ID) {
			return false
		}
		return sf.Category == nil || svc.Category == *sf.Category
	}, func(i, j *utilityservice.UtilityService) bool {
		return i.Name < j.Name
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(svc *utilityservice.UtilityService, _ int) *utilityservice.UtilityService {
		return copyUtilityService(svc)
	}), nil
}

func (s *InMemoryUtilityServiceStore) Update(ctx context.Context, svc *utilityservice.UtilityService) error {
	return s.InMemoryStore.Update(ctx, svc.ID, copyUtilityService(svc))
}
