package service

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/domain/consumption"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
)

// ConsumptionService derives per-period consumption from the stored reading history
type ConsumptionService interface {
	GetMeterConsumption(ctx context.Context, periodID string, kind types.MeterKind, meterID string) (*consumption.Consumption, error)
	GetServiceConsumption(ctx context.Context, periodID, serviceID string) (*dto.ServiceConsumptionResponse, error)
}

type consumptionService struct {
	ServiceParams
}

func NewConsumptionService(params ServiceParams) ConsumptionService {
	return &consumptionService{
		ServiceParams: params,
	}
}

func (s *consumptionService) GetMeterConsumption(ctx context.Context, periodID string, kind types.MeterKind, meterID string) (*consumption.Consumption, error) {
	if meterID == "" {
		return nil, ierr.NewError("meter id is required").
			WithHint("Please provide a meter ID").
			Mark(ierr.ErrValidation)
	}

	calc, err := newPeriodCalculator(ctx, s.ServiceParams, periodID)
	if err != nil {
		return nil, err
	}
	return calc.meterConsumption(ctx, kind, meterID)
}

func (s *consumptionService) GetServiceConsumption(ctx context.Context, periodID, serviceID string) (*dto.ServiceConsumptionResponse, error) {
	svc, err := s.UtilityServiceRepo.Get(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !svc.IsMetered {
		return nil, ierr.NewError("service is not metered").
			WithHintf("Service %s has no consumption", svc.Name).
			Mark(ierr.ErrInvalidOperation)
	}

	calc, err := newPeriodCalculator(ctx, s.ServiceParams, periodID)
	if err != nil {
		return nil, err
	}

	consumptions, errs, warnings, err := calc.householdConsumptions(ctx, svc)
	if err != nil {
		return nil, err
	}

	resp := &dto.ServiceConsumptionResponse{
		ServiceID:       svc.ID,
		BillingPeriodID: calc.period.ID,
		Items:           make([]*dto.HouseholdConsumption, 0, len(consumptions)),
		Errors:          errs,
		Warnings:        warnings,
	}
	for _, h := range calc.households {
		if q, ok := consumptions[h.ID]; ok {
			resp.Items = append(resp.Items, &dto.HouseholdConsumption{HouseholdID: h.ID, Consumption: q})
		}
	}
	return resp, nil
}
