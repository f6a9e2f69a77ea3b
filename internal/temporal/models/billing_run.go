package models

import (
	"time"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/samber/lo"
)

// ===================== Billing Run Workflow Models =====================

// BillingRunWorkflowInput bills the given periods in one run
type BillingRunWorkflowInput struct {
	RunID            string   `json:"run_id"`
	BillingPeriodIDs []string `json:"billing_period_ids"`
}

func (i *BillingRunWorkflowInput) Validate() error {
	if i.RunID == "" {
		return ierr.NewError("run_id is required").
			WithHint("Run ID is required").
			Mark(ierr.ErrValidation)
	}
	if len(i.BillingPeriodIDs) == 0 {
		return ierr.NewError("billing_period_ids is required").
			WithHint("At least one billing period is required").
			Mark(ierr.ErrValidation)
	}
	if lo.Contains(i.BillingPeriodIDs, "") {
		return ierr.NewError("billing_period_ids contains an empty id").
			WithHint("Billing period IDs cannot be empty").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type BillingRunWorkflowResult struct {
	RunID       string             `json:"run_id"`
	Reports     []*dto.BatchReport `json:"reports"`
	CompletedAt time.Time          `json:"completed_at"`
}

// ===================== Overdue Sweep Workflow Models =====================

// OverdueSweepWorkflowInput marks pending invoices overdue as of AsOf.
// A zero AsOf means the workflow's current time.
type OverdueSweepWorkflowInput struct {
	AsOf time.Time `json:"as_of"`
}

type OverdueSweepWorkflowResult struct {
	Updated     int       `json:"updated"`
	CompletedAt time.Time `json:"completed_at"`
}

// ===================== Activity Models =====================

type RunBillingActivityInput struct {
	RunID            string   `json:"run_id"`
	BillingPeriodIDs []string `json:"billing_period_ids"`
}

type RunBillingActivityOutput struct {
	Reports []*dto.BatchReport `json:"reports"`
}

type MarkOverdueActivityInput struct {
	AsOf time.Time `json:"as_of"`
}

func (i *MarkOverdueActivityInput) Validate() error {
	if i.AsOf.IsZero() {
		return ierr.NewError("as_of is required").
			WithHint("The sweep time is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type MarkOverdueActivityOutput struct {
	Updated int `json:"updated"`
}
