package workflows

import (
	"time"

	"github.com/brfledger/utilitybilling/internal/temporal/activities/billing"
	"github.com/brfledger/utilitybilling/internal/temporal/models"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	// Workflow names - must match the function names
	WorkflowBillingRun   = "BillingRunWorkflow"
	WorkflowOverdueSweep = "OverdueSweepWorkflow"
)

// BillingRunWorkflow bills a set of periods through a single activity so the periods
// keep their start date order inside one billing run
func BillingRunWorkflow(
	ctx workflow.Context,
	input models.BillingRunWorkflowInput,
) (*models.BillingRunWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting billing run workflow",
		"run_id", input.RunID,
		"billing_period_ids", input.BillingPeriodIDs)

	if err := input.Validate(); err != nil {
		logger.Error("Invalid workflow input", "error", err)
		return nil, err
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second * 5,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var output models.RunBillingActivityOutput
	err := workflow.ExecuteActivity(ctx, billing.ActivityRunBilling, models.RunBillingActivityInput{
		RunID:            input.RunID,
		BillingPeriodIDs: input.BillingPeriodIDs,
	}).Get(ctx, &output)
	if err != nil {
		logger.Error("Billing run failed",
			"run_id", input.RunID,
			"error", err)
		return nil, err
	}

	logger.Info("Billing run completed",
		"run_id", input.RunID,
		"periods", len(output.Reports))

	return &models.BillingRunWorkflowResult{
		RunID:       input.RunID,
		Reports:     output.Reports,
		CompletedAt: workflow.Now(ctx),
	}, nil
}

// OverdueSweepWorkflow marks every pending invoice past its due date as overdue
func OverdueSweepWorkflow(
	ctx workflow.Context,
	input models.OverdueSweepWorkflowInput,
) (*models.OverdueSweepWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)

	asOf := input.AsOf
	if asOf.IsZero() {
		asOf = workflow.Now(ctx)
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second * 10,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute * 5,
			MaximumAttempts:    5,
		},
	})

	var output models.MarkOverdueActivityOutput
	if err := workflow.ExecuteActivity(ctx, billing.ActivityMarkOverdue, models.MarkOverdueActivityInput{
		AsOf: asOf,
	}).Get(ctx, &output); err != nil {
		logger.Error("Overdue sweep failed", "as_of", asOf, "error", err)
		return nil, err
	}

	logger.Info("Overdue sweep completed", "as_of", asOf, "updated", output.Updated)

	return &models.OverdueSweepWorkflowResult{
		Updated:     output.Updated,
		CompletedAt: workflow.Now(ctx),
	}, nil
}
