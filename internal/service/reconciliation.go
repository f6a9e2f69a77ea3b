package service

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/domain/reconciliation"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/publisher"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
)

type ReconciliationService interface {
	// Reconcile recomputes the reconciliation of one (service, period).
	// A skipped reconciliation returns no record and the reason.
	Reconcile(ctx context.Context, req dto.ReconcileRequest) (*dto.ReconciliationResponse, error)
	GetReconciliation(ctx context.Context, serviceID, periodID string) (*dto.ReconciliationResponse, error)
	ListReconciliations(ctx context.Context, periodID string) ([]*dto.ReconciliationResponse, error)
}

type reconciliationService struct {
	ServiceParams
}

func NewReconciliationService(params ServiceParams) ReconciliationService {
	return &reconciliationService{
		ServiceParams: params,
	}
}

func (s *reconciliationService) Reconcile(ctx context.Context, req dto.ReconcileRequest) (*dto.ReconciliationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	svc, err := s.UtilityServiceRepo.Get(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.IsReconciled() {
		return nil, ierr.NewError("service is not reconciled").
			WithHintf("Service %s does not require reconciliation", svc.Name).
			WithReportableDetails(map[string]any{"service_id": svc.ID}).
			Mark(ierr.ErrInvalidOperation)
	}

	calc, err := newPeriodCalculator(ctx, s.ServiceParams, req.BillingPeriodID)
	if err != nil {
		return nil, err
	}
	if err := calc.requireHouseholds(); err != nil {
		return nil, err
	}

	consumptions, errs, _, err := calc.householdConsumptions(ctx, svc)
	if err != nil {
		return nil, err
	}
	for _, e := range errs {
		s.Logger.Warnw("household consumption unavailable for reconciliation",
			"service_id", svc.ID,
			"billing_period_id", calc.period.ID,
			"household_id", e.HouseholdID,
			"kind", e.Kind,
			"error", e.Message)
	}

	rec, skipReason, _, err := calc.reconcile(ctx, svc, consumptions)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		var archived bool
		err = s.DB.WithTx(ctx, func(ctx context.Context) error {
			if err := lockReconciliation(ctx, s.ServiceParams, svc.ID, calc.period.ID); err != nil {
				return err
			}
			var txErr error
			archived, txErr = s.ReconciliationRepo.Archive(ctx, svc.ID, calc.period.ID)
			return txErr
		})
		if err != nil {
			return nil, err
		}

		s.Logger.Infow("reconciliation skipped",
			"service_id", svc.ID,
			"billing_period_id", calc.period.ID,
			"reason", skipReason,
			"archived_previous", archived)
		return &dto.ReconciliationResponse{Skipped: true, SkipReason: skipReason}, nil
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := lockReconciliation(ctx, s.ServiceParams, rec.ServiceID, rec.BillingPeriodID); err != nil {
			return err
		}
		return s.ReconciliationRepo.Upsert(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, []*publisher.Event{reconciliationEvent(rec)})

	s.Logger.Infow("reconciled service",
		"service_id", svc.ID,
		"billing_period_id", calc.period.ID,
		"main_total", rec.MainTotal.String(),
		"household_total", rec.HouseholdTotal.String(),
		"difference", rec.Difference.String(),
		"split_mode", rec.SplitMode)

	return &dto.ReconciliationResponse{Reconciliation: rec}, nil
}

func (s *reconciliationService) GetReconciliation(ctx context.Context, serviceID, periodID string) (*dto.ReconciliationResponse, error) {
	rec, err := s.ReconciliationRepo.Get(ctx, serviceID, periodID)
	if err != nil {
		return nil, err
	}
	return &dto.ReconciliationResponse{Reconciliation: rec}, nil
}

func (s *reconciliationService) ListReconciliations(ctx context.Context, periodID string) ([]*dto.ReconciliationResponse, error) {
	recs, err := s.ReconciliationRepo.ListByPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	return lo.Map(recs, func(r *reconciliation.Reconciliation, _ int) *dto.ReconciliationResponse {
		return &dto.ReconciliationResponse{Reconciliation: r}
	}), nil
}

// lockReconciliation takes the (service, period) lock without waiting.
// Must be called inside a transaction; a held lock is a retryable conflict.
func lockReconciliation(ctx context.Context, params ServiceParams, serviceID, periodID string) error {
	key := types.GenerateLockKey(types.LockScopeReconciliation, map[string]interface{}{
		"service_id": serviceID,
		"period_id":  periodID,
	})

	ok, err := params.DB.TryLockKey(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return ierr.NewError("reconciliation in progress").
			WithHint("Another reconciliation for this service and period is running, retry shortly").
			WithReportableDetails(map[string]any{
				"service_id": serviceID,
				"period_id":  periodID,
				"lock_key":   key,
			}).
			Mark(ierr.ErrConcurrencyConflict)
	}
	return nil
}
