package service

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/domain/period"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
)

type PeriodService interface {
	CreateBillingPeriod(ctx context.Context, req dto.CreateBillingPeriodRequest) (*dto.BillingPeriodResponse, error)
	GetBillingPeriod(ctx context.Context, id string) (*dto.BillingPeriodResponse, error)
	// ListBillingPeriods returns all periods ordered by start date
	ListBillingPeriods(ctx context.Context) (*dto.ListBillingPeriodsResponse, error)
	// ValidateBillingPeriods reports overlapping periods as a data integrity error
	ValidateBillingPeriods(ctx context.Context) error
}

type periodService struct {
	ServiceParams
}

func NewPeriodService(params ServiceParams) PeriodService {
	return &periodService{
		ServiceParams: params,
	}
}

func (s *periodService) CreateBillingPeriod(ctx context.Context, req dto.CreateBillingPeriodRequest) (*dto.BillingPeriodResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := req.ToBillingPeriod(ctx)

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		// serialise period creation so two overlapping periods cannot both pass the check
		if err := s.DB.LockKey(ctx, types.LockRequest{
			Key: types.GenerateLockKey(types.LockScopeBillingPeriod, map[string]interface{}{"action": "create"}),
		}); err != nil {
			return err
		}

		existing, err := s.PeriodRepo.List(ctx)
		if err != nil {
			return err
		}
		if err := period.CheckOverlap(existing, p); err != nil {
			return err
		}
		return s.PeriodRepo.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("created billing period",
		"billing_period_id", p.ID,
		"name", p.Name,
		"start_date", p.StartDate,
		"end_date", p.EndDate)

	return &dto.BillingPeriodResponse{BillingPeriod: p}, nil
}

func (s *periodService) GetBillingPeriod(ctx context.Context, id string) (*dto.BillingPeriodResponse, error) {
	if id == "" {
		return nil, ierr.NewError("billing period id is required").
			WithHint("Please provide a valid billing period ID").
			Mark(ierr.ErrValidation)
	}

	p, err := s.PeriodRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.BillingPeriodResponse{BillingPeriod: p}, nil
}

func (s *periodService) ListBillingPeriods(ctx context.Context) (*dto.ListBillingPeriodsResponse, error) {
	periods, err := s.PeriodRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	periods = period.SortByStart(periods)

	return &dto.ListBillingPeriodsResponse{
		Items: lo.Map(periods, func(p *period.BillingPeriod, _ int) *dto.BillingPeriodResponse {
			return &dto.BillingPeriodResponse{BillingPeriod: p}
		}),
		Pagination: types.PaginationResponse{Total: len(periods)},
	}, nil
}

func (s *periodService) ValidateBillingPeriods(ctx context.Context) error {
	periods, err := s.PeriodRepo.List(ctx)
	if err != nil {
		return err
	}
	return period.ValidatePeriods(periods)
}
