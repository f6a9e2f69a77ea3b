package billing

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/service"
	"github.com/brfledger/utilitybilling/internal/temporal/models"
	"go.temporal.io/sdk/temporal"
)

const (
	ActivityRunBilling  = "RunBillingActivity"
	ActivityMarkOverdue = "MarkOverdueActivity"
)

// BillingActivities exposes the billing run and overdue sweep to temporal workers
type BillingActivities struct {
	serviceParams service.ServiceParams
	logger        *logger.Logger
}

func NewBillingActivities(serviceParams service.ServiceParams, logger *logger.Logger) *BillingActivities {
	return &BillingActivities{
		serviceParams: serviceParams,
		logger:        logger,
	}
}

// RunBillingActivity bills the input periods in start date order.
// Only concurrency conflicts are left retryable for temporal.
func (a *BillingActivities) RunBillingActivity(
	ctx context.Context,
	input models.RunBillingActivityInput,
) (*models.RunBillingActivityOutput, error) {
	runService := service.NewBillingRunService(a.serviceParams, service.NewBillingService(a.serviceParams))

	resp, err := runService.Run(ctx, dto.BillingRunRequest{
		RunID:            input.RunID,
		BillingPeriodIDs: input.BillingPeriodIDs,
	})
	if err != nil {
		completed := 0
		if resp != nil {
			completed = len(resp.Reports)
		}
		a.logger.Errorw("billing run activity failed",
			"run_id", input.RunID,
			"completed_periods", completed,
			"error", err)
		return nil, toApplicationError(err)
	}

	a.logger.Infow("billing run activity completed",
		"run_id", input.RunID,
		"periods", len(resp.Reports))

	return &models.RunBillingActivityOutput{Reports: resp.Reports}, nil
}

func (a *BillingActivities) MarkOverdueActivity(
	ctx context.Context,
	input models.MarkOverdueActivityInput,
) (*models.MarkOverdueActivityOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, toApplicationError(err)
	}

	resp, err := service.NewInvoiceService(a.serviceParams).MarkOverdue(ctx, input.AsOf)
	if err != nil {
		a.logger.Errorw("overdue sweep activity failed",
			"as_of", input.AsOf,
			"error", err)
		return nil, toApplicationError(err)
	}

	return &models.MarkOverdueActivityOutput{Updated: resp.Updated}, nil
}

func toApplicationError(err error) error {
	if ierr.IsConcurrencyConflict(err) {
		return err
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), ierr.Kind(err), err)
}
