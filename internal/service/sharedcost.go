package service

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/domain/sharedcost"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/samber/lo"
)

type SharedCostService interface {
	// CreateSharedCost stores the cost with the per-household share at the current active count
	CreateSharedCost(ctx context.Context, req dto.CreateSharedCostRequest) (*dto.SharedCostResponse, error)
	ListSharedCosts(ctx context.Context, year, quarter int) ([]*dto.SharedCostResponse, error)
}

type sharedCostService struct {
	ServiceParams
}

func NewSharedCostService(params ServiceParams) SharedCostService {
	return &sharedCostService{
		ServiceParams: params,
	}
}

func (s *sharedCostService) CreateSharedCost(ctx context.Context, req dto.CreateSharedCostRequest) (*dto.SharedCostResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	active, err := listActiveHouseholds(ctx, s.HouseholdRepo)
	if err != nil {
		return nil, err
	}

	c := req.ToSharedCost(ctx)
	if err := c.ComputeShare(len(active)); err != nil {
		return nil, err
	}
	if err := s.SharedCostRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.Logger.Infow("created shared cost",
		"shared_cost_id", c.ID,
		"year", c.Year,
		"quarter", c.Quarter,
		"total_amount", c.TotalAmount.String(),
		"per_household_share", c.PerHouseholdShare.String())

	return &dto.SharedCostResponse{SharedCost: c}, nil
}

func (s *sharedCostService) ListSharedCosts(ctx context.Context, year, quarter int) ([]*dto.SharedCostResponse, error) {
	if quarter < 1 || quarter > 4 {
		return nil, ierr.NewError("quarter must be between 1 and 4").
			WithHint("Please provide a quarter between 1 and 4").
			Mark(ierr.ErrValidation)
	}

	costs, err := s.SharedCostRepo.ListByQuarter(ctx, year, quarter)
	if err != nil {
		return nil, err
	}
	return lo.Map(costs, func(c *sharedcost.SharedCost, _ int) *dto.SharedCostResponse {
		return &dto.SharedCostResponse{SharedCost: c}
	}), nil
}
