package service

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/domain/meter"
	"github.com/brfledger/utilitybilling/internal/domain/utilityservice"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
)

// ServiceCatalogService manages utility services and the meters attached to them
type ServiceCatalogService interface {
	CreateUtilityService(ctx context.Context, req dto.CreateUtilityServiceRequest) (*dto.UtilityServiceResponse, error)
	GetUtilityService(ctx context.Context, id string) (*dto.UtilityServiceResponse, error)
	ListUtilityServices(ctx context.Context, filter *types.UtilityServiceFilter) (*dto.ListUtilityServicesResponse, error)
	CreateMainMeter(ctx context.Context, req dto.CreateMainMeterRequest) (*dto.MainMeterResponse, error)
	ListMainMeters(ctx context.Context, serviceID string) ([]*dto.MainMeterResponse, error)
	CreateHouseholdMeter(ctx context.Context, req dto.CreateHouseholdMeterRequest) (*dto.HouseholdMeterResponse, error)
	ListHouseholdMeters(ctx context.Context, filter *types.HouseholdMeterFilter) ([]*dto.HouseholdMeterResponse, error)
}

type serviceCatalogService struct {
	ServiceParams
}

func NewServiceCatalogService(params ServiceParams) ServiceCatalogService {
	return &serviceCatalogService{
		ServiceParams: params,
	}
}

func (s *serviceCatalogService) CreateUtilityService(ctx context.Context, req dto.CreateUtilityServiceRequest) (*dto.UtilityServiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	svc := req.ToUtilityService(ctx)
	if err := svc.Validate(); err != nil {
		return nil, err
	}
	if err := s.UtilityServiceRepo.Create(ctx, svc); err != nil {
		return nil, err
	}

	s.Logger.Infow("created utility service",
		"service_id", svc.ID,
		"name", svc.Name,
		"category", svc.Category,
		"requires_reconciliation", svc.RequiresReconciliation)

	return &dto.UtilityServiceResponse{UtilityService: svc}, nil
}

func (s *serviceCatalogService) GetUtilityService(ctx context.Context, id string) (*dto.UtilityServiceResponse, error) {
	if id == "" {
		return nil, ierr.NewError("service id is required").
			WithHint("Please provide a valid service ID").
			Mark(ierr.ErrValidation)
	}

	svc, err := s.UtilityServiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.UtilityServiceResponse{UtilityService: svc}, nil
}

func (s *serviceCatalogService) ListUtilityServices(ctx context.Context, filter *types.UtilityServiceFilter) (*dto.ListUtilityServicesResponse, error) {
	if filter == nil {
		filter = types.NewUtilityServiceFilter()
	}

	services, err := s.UtilityServiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.ListUtilityServicesResponse{
		Items: lo.Map(services, func(svc *utilityservice.UtilityService, _ int) *dto.UtilityServiceResponse {
			return &dto.UtilityServiceResponse{UtilityService: svc}
		}),
		Pagination: types.PaginationResponse{
			Total:  len(services),
			Limit:  filter.GetLimit(),
			Offset: filter.GetOffset(),
		},
	}, nil
}

func (s *serviceCatalogService) CreateMainMeter(ctx context.Context, req dto.CreateMainMeterRequest) (*dto.MainMeterResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	svc, err := s.UtilityServiceRepo.Get(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.HasMainMeters {
		return nil, ierr.NewError("service has no main meters").
			WithHintf("Service %s is not configured with main meters", svc.Name).
			WithReportableDetails(map[string]any{"service_id": svc.ID}).
			Mark(ierr.ErrInvalidOperation)
	}

	m := req.ToMainMeter(ctx)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := s.MeterRepo.CreateMainMeter(ctx, m); err != nil {
		return nil, err
	}
	return &dto.MainMeterResponse{MainMeter: m}, nil
}

func (s *serviceCatalogService) ListMainMeters(ctx context.Context, serviceID string) ([]*dto.MainMeterResponse, error) {
	meters, err := s.MeterRepo.ListMainMeters(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	return lo.Map(meters, func(m *meter.MainMeter, _ int) *dto.MainMeterResponse {
		return &dto.MainMeterResponse{MainMeter: m}
	}), nil
}

// CreateHouseholdMeter allows one meter per household per service
func (s *serviceCatalogService) CreateHouseholdMeter(ctx context.Context, req dto.CreateHouseholdMeterRequest) (*dto.HouseholdMeterResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.HouseholdRepo.Get(ctx, req.HouseholdID); err != nil {
		return nil, err
	}
	if _, err := s.UtilityServiceRepo.Get(ctx, req.ServiceID); err != nil {
		return nil, err
	}

	existing, err := s.MeterRepo.ListHouseholdMeters(ctx, &types.HouseholdMeterFilter{
		HouseholdID: req.HouseholdID,
		ServiceID:   req.ServiceID,
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ierr.NewError("household already has a meter for this service").
			WithHint("A household can have only one meter per service").
			WithReportableDetails(map[string]any{
				"household_id": req.HouseholdID,
				"service_id":   req.ServiceID,
				"meter_id":     existing[0].ID,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	m := req.ToHouseholdMeter(ctx)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := s.MeterRepo.CreateHouseholdMeter(ctx, m); err != nil {
		return nil, err
	}
	return &dto.HouseholdMeterResponse{HouseholdMeter: m}, nil
}

func (s *serviceCatalogService) ListHouseholdMeters(ctx context.Context, filter *types.HouseholdMeterFilter) ([]*dto.HouseholdMeterResponse, error) {
	if filter == nil {
		filter = &types.HouseholdMeterFilter{}
	}
	meters, err := s.MeterRepo.ListHouseholdMeters(ctx, filter)
	if err != nil {
		return nil, err
	}
	return lo.Map(meters, func(m *meter.HouseholdMeter, _ int) *dto.HouseholdMeterResponse {
		return &dto.HouseholdMeterResponse{HouseholdMeter: m}
	}), nil
}
