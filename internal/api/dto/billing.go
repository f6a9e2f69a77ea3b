package dto

import (
	"github.com/brfledger/utilitybilling/internal/domain/reconciliation"
	"github.com/brfledger/utilitybilling/internal/validator"
)

type GenerateBillsRequest struct {
	BillingPeriodID string `json:"billing_period_id" validate:"required"`
}

func (r *GenerateBillsRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type BillingRunRequest struct {
	BillingPeriodIDs []string `json:"billing_period_ids" validate:"required,min=1,dive,required"`
	// Async starts a workflow instead of running inline
	Async bool `json:"async"`
	// RunID is set by the billing run workflow; empty generates a new one
	RunID string `json:"-"`
}

func (r *BillingRunRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type ReconcileRequest struct {
	BillingPeriodID string `json:"billing_period_id" validate:"required"`
	ServiceID       string `json:"service_id" validate:"required"`
}

func (r *ReconcileRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type ReconciliationResponse struct {
	*reconciliation.Reconciliation
	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"skip_reason,omitempty"`
}

type BillingRunWorkflowResponse struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

// RecordError is one isolated failure collected during a billing batch
type RecordError struct {
	Kind        string `json:"kind"`
	HouseholdID string `json:"household_id,omitempty"`
	ServiceID   string `json:"service_id,omitempty"`
	MeterID     string `json:"meter_id,omitempty"`
	Message     string `json:"message"`
	Hint        string `json:"hint,omitempty"`
}

// BatchReport summarises one period's bill generation
type BatchReport struct {
	BillingPeriodID        string   `json:"billing_period_id"`
	BillingPeriodName      string   `json:"billing_period_name"`
	LineItems              int      `json:"line_items"`
	Invoices               int      `json:"invoices"`
	InvoiceIDs             []string `json:"invoice_ids,omitempty"`
	Reconciliations        int      `json:"reconciliations"`
	SkippedReconciliations []string `json:"skipped_reconciliations,omitempty"`
	// ReconciliationsArchived counts earlier records retired because the service was skipped this time
	ReconciliationsArchived int           `json:"reconciliations_archived"`
	StaleLineItemsPruned    int           `json:"stale_line_items_pruned"`
	Errors                  []RecordError `json:"errors,omitempty"`
	Warnings                []RecordError `json:"warnings,omitempty"`
	ExportLocation          string        `json:"export_location,omitempty"`
}

func (r *BatchReport) HasErrors() bool {
	return len(r.Errors) > 0
}

type BillingRunResponse struct {
	RunID   string         `json:"run_id"`
	Reports []*BatchReport `json:"reports"`
}
