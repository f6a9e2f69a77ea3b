package service

import (
	"context"
	"time"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/domain/pricing"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
)

// PricingService keeps an append-only price history per service.
// There is no active flag; the price in force is resolved from the history by date.
type PricingService interface {
	CreatePricing(ctx context.Context, req dto.CreatePricingRequest) (*dto.PricingResponse, error)
	ListPricing(ctx context.Context, serviceID string) (*dto.ListPricingResponse, error)
	ResolvePricing(ctx context.Context, serviceID string, asOf time.Time) (*dto.PricingResponse, error)
}

type pricingService struct {
	ServiceParams
}

func NewPricingService(params ServiceParams) PricingService {
	return &pricingService{
		ServiceParams: params,
	}
}

func (s *pricingService) CreatePricing(ctx context.Context, req dto.CreatePricingRequest) (*dto.PricingResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.UtilityServiceRepo.Get(ctx, req.ServiceID); err != nil {
		return nil, err
	}

	p := req.ToUtilityPricing(ctx)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	history, err := s.PricingRepo.ListByService(ctx, p.ServiceID)
	if err != nil {
		return nil, err
	}
	if dup, ok := lo.Find(history, func(h *pricing.UtilityPricing) bool {
		return h.EffectiveDate.Equal(p.EffectiveDate)
	}); ok {
		return nil, ierr.NewError("pricing already exists for effective date").
			WithHintf("Service already has a price effective on %s", p.EffectiveDate.Format(time.DateOnly)).
			WithReportableDetails(map[string]any{
				"service_id": p.ServiceID,
				"pricing_id": dup.ID,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	if err := s.PricingRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("created pricing",
		"pricing_id", p.ID,
		"service_id", p.ServiceID,
		"effective_date", p.EffectiveDate,
		"price_per_unit", p.PricePerUnit.String(),
		"fixed_fee_per_household", p.FixedFeePerHousehold.String())

	return &dto.PricingResponse{UtilityPricing: p}, nil
}

func (s *pricingService) ListPricing(ctx context.Context, serviceID string) (*dto.ListPricingResponse, error) {
	history, err := s.PricingRepo.ListByService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	pricing.SortByEffectiveDate(history)

	return &dto.ListPricingResponse{
		Items: lo.Map(history, func(p *pricing.UtilityPricing, _ int) *dto.PricingResponse {
			return &dto.PricingResponse{UtilityPricing: p}
		}),
		Pagination: types.PaginationResponse{Total: len(history)},
	}, nil
}

func (s *pricingService) ResolvePricing(ctx context.Context, serviceID string, asOf time.Time) (*dto.PricingResponse, error) {
	history, err := s.PricingRepo.ListByService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	p, err := pricing.ResolvePricing(history, asOf)
	if err != nil {
		return nil, err
	}
	return &dto.PricingResponse{UtilityPricing: p}, nil
}
