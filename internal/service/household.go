package service

import (
	"context"
	"time"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/domain/household"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
)

type HouseholdService interface {
	CreateHousehold(ctx context.Context, req dto.CreateHouseholdRequest) (*dto.HouseholdResponse, error)
	GetHousehold(ctx context.Context, id string) (*dto.HouseholdResponse, error)
	GetHouseholdByNumber(ctx context.Context, householdNumber string) (*dto.HouseholdResponse, error)
	ListHouseholds(ctx context.Context, filter *types.HouseholdFilter) (*dto.ListHouseholdsResponse, error)
	UpdateHousehold(ctx context.Context, id string, req dto.UpdateHouseholdRequest) (*dto.HouseholdResponse, error)
	DeactivateHousehold(ctx context.Context, id string) (*dto.HouseholdResponse, error)
	// ListActiveHouseholds returns every active household ordered by household number
	ListActiveHouseholds(ctx context.Context) ([]*household.Household, error)
}

type householdService struct {
	ServiceParams
}

func NewHouseholdService(params ServiceParams) HouseholdService {
	return &householdService{
		ServiceParams: params,
	}
}

func (s *householdService) CreateHousehold(ctx context.Context, req dto.CreateHouseholdRequest) (*dto.HouseholdResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	h := req.ToHousehold(ctx)
	if err := h.Validate(); err != nil {
		return nil, err
	}

	if err := s.HouseholdRepo.Create(ctx, h); err != nil {
		return nil, err
	}

	s.Logger.Infow("created household",
		"household_id", h.ID,
		"household_number", h.HouseholdNumber)

	return &dto.HouseholdResponse{Household: h}, nil
}

func (s *householdService) GetHousehold(ctx context.Context, id string) (*dto.HouseholdResponse, error) {
	if id == "" {
		return nil, ierr.NewError("household id is required").
			WithHint("Please provide a valid household ID").
			Mark(ierr.ErrValidation)
	}

	h, err := s.HouseholdRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.HouseholdResponse{Household: h}, nil
}

func (s *householdService) GetHouseholdByNumber(ctx context.Context, householdNumber string) (*dto.HouseholdResponse, error) {
	if householdNumber == "" {
		return nil, ierr.NewError("household number is required").
			WithHint("Please provide a household number").
			Mark(ierr.ErrValidation)
	}

	h, err := s.HouseholdRepo.GetByNumber(ctx, householdNumber)
	if err != nil {
		return nil, err
	}
	return &dto.HouseholdResponse{Household: h}, nil
}

func (s *householdService) ListHouseholds(ctx context.Context, filter *types.HouseholdFilter) (*dto.ListHouseholdsResponse, error) {
	if filter == nil {
		filter = types.NewHouseholdFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.QueryFilter.Validate(); err != nil {
		return nil, err
	}

	households, err := s.HouseholdRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.HouseholdRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.ListHouseholdsResponse{
		Items: lo.Map(households, func(h *household.Household, _ int) *dto.HouseholdResponse {
			return &dto.HouseholdResponse{Household: h}
		}),
		Pagination: types.PaginationResponse{
			Total:  count,
			Limit:  filter.GetLimit(),
			Offset: filter.GetOffset(),
		},
	}, nil
}

func (s *householdService) UpdateHousehold(ctx context.Context, id string, req dto.UpdateHouseholdRequest) (*dto.HouseholdResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	h, err := s.HouseholdRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		h.Name = *req.Name
	}
	if req.Email != nil {
		h.Email = *req.Email
	}
	if req.ShareRatio != nil {
		h.ShareRatio = *req.ShareRatio
	}
	if req.AnnualMembershipFee != nil {
		h.AnnualMembershipFee = *req.AnnualMembershipFee
	}
	if req.Metadata != nil {
		h.Metadata = req.Metadata
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}

	h.UpdatedAt = time.Now().UTC()
	h.UpdatedBy = types.GetUserID(ctx)
	if err := s.HouseholdRepo.Update(ctx, h); err != nil {
		return nil, err
	}
	return &dto.HouseholdResponse{Household: h}, nil
}

// DeactivateHousehold is a soft delete; households with billing history are never removed
func (s *householdService) DeactivateHousehold(ctx context.Context, id string) (*dto.HouseholdResponse, error) {
	h, err := s.HouseholdRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := h.Deactivate(); err != nil {
		return nil, err
	}

	h.UpdatedAt = time.Now().UTC()
	h.UpdatedBy = types.GetUserID(ctx)
	if err := s.HouseholdRepo.Update(ctx, h); err != nil {
		return nil, err
	}

	s.Logger.Infow("deactivated household",
		"household_id", h.ID,
		"household_number", h.HouseholdNumber)

	return &dto.HouseholdResponse{Household: h}, nil
}

func (s *householdService) ListActiveHouseholds(ctx context.Context) ([]*household.Household, error) {
	return listActiveHouseholds(ctx, s.HouseholdRepo)
}

func listActiveHouseholds(ctx context.Context, repo household.Repository) ([]*household.Household, error) {
	status := types.HouseholdStatusActive
	return repo.List(ctx, &types.HouseholdFilter{
		QueryFilter:     types.NewNoLimitQueryFilter(),
		HouseholdStatus: &status,
	})
}
