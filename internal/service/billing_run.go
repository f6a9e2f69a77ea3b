package service

import (
	"context"
	"time"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/domain/period"
	"github.com/brfledger/utilitybilling/internal/email"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/publisher"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/cenkalti/backoff/v4"
)

const conflictRetries = 3

// BillingRunService bills several periods in one run.
// Periods run one after another in start date order because each depends on its predecessor's readings.
type BillingRunService interface {
	Run(ctx context.Context, req dto.BillingRunRequest) (*dto.BillingRunResponse, error)
}

type billingRunService struct {
	ServiceParams
	billing    BillingService
	newBackOff func() backoff.BackOff
}

func NewBillingRunService(params ServiceParams, billingService BillingService) BillingRunService {
	return &billingRunService{
		ServiceParams: params,
		billing:       billingService,
		newBackOff:    defaultConflictBackOff,
	}
}

func defaultConflictBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second
	return backoff.WithMaxRetries(b, conflictRetries)
}

// Run returns the reports of every period billed so far together with the error that stopped the run
func (s *billingRunService) Run(ctx context.Context, req dto.BillingRunRequest) (*dto.BillingRunResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	periods := make([]*period.BillingPeriod, 0, len(req.BillingPeriodIDs))
	for _, id := range req.BillingPeriodIDs {
		p, err := s.PeriodRepo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	periods = period.SortByStart(periods)

	resp := &dto.BillingRunResponse{
		RunID:   req.RunID,
		Reports: make([]*dto.BatchReport, 0, len(periods)),
	}
	if resp.RunID == "" {
		resp.RunID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_RUN)
	}
	log := s.Logger.WithFields("run_id", resp.RunID)

	for _, p := range periods {
		if err := ctx.Err(); err != nil {
			log.Warnw("billing run cancelled between periods",
				"next_billing_period_id", p.ID,
				"completed_periods", len(resp.Reports))
			return resp, ierr.WithError(err).
				WithHintf("Billing run stopped before period %s", p.Name).
				Mark(ierr.ErrInvalidOperation)
		}

		if !p.IsBillingEnabled {
			resp.Reports = append(resp.Reports, &dto.BatchReport{
				BillingPeriodID:   p.ID,
				BillingPeriodName: p.Name,
				Warnings: []dto.RecordError{{
					Kind:    "invalid_operation",
					Message: "billing is disabled for the period",
				}},
			})
			continue
		}

		report, err := s.generateWithRetry(ctx, p)
		if err != nil {
			log.Errorw("billing run aborted",
				"billing_period_id", p.ID,
				"completed_periods", len(resp.Reports),
				"error", err)
			if ierr.IsConfiguration(err) {
				s.reportError(ctx, err, map[string]string{
					"run_id":            resp.RunID,
					"billing_period_id": p.ID,
				})
			}
			return resp, err
		}

		s.notifyInvoices(ctx, p, report)
		s.exportPeriod(ctx, p, report)
		resp.Reports = append(resp.Reports, report)
	}

	s.publishEvents(ctx, []*publisher.Event{
		publisher.NewEvent(publisher.EventBillingRunCompleted, "", "", map[string]interface{}{
			"run_id":  resp.RunID,
			"periods": len(resp.Reports),
		}),
	})

	log.Infow("billing run completed", "periods", len(resp.Reports))
	return resp, nil
}

// generateWithRetry retries concurrency conflicts only; every other error is returned as is
func (s *billingRunService) generateWithRetry(ctx context.Context, p *period.BillingPeriod) (*dto.BatchReport, error) {
	op := func() (*dto.BatchReport, error) {
		report, err := s.billing.GenerateBills(ctx, p.ID)
		if err != nil && !ierr.IsConcurrencyConflict(err) {
			return nil, backoff.Permanent(err)
		}
		return report, err
	}

	notify := func(err error, wait time.Duration) {
		s.Logger.Warnw("billing period locked, retrying",
			"billing_period_id", p.ID,
			"wait", wait,
			"error", err)
	}

	return backoff.RetryNotifyWithData(op, backoff.WithContext(s.newBackOff(), ctx), notify)
}

func (s *billingRunService) notifyInvoices(ctx context.Context, p *period.BillingPeriod, report *dto.BatchReport) {
	if !s.Config.Billing.NotifyOnInvoice || s.EmailNotifier == nil {
		return
	}

	for _, id := range report.InvoiceIDs {
		inv, err := s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			report.Warnings = append(report.Warnings, newRecordError(err, "", "", ""))
			continue
		}
		h, err := s.HouseholdRepo.Get(ctx, inv.HouseholdID)
		if err != nil {
			report.Warnings = append(report.Warnings, newRecordError(err, inv.HouseholdID, "", ""))
			continue
		}

		err = s.EmailNotifier.NotifyInvoice(ctx, email.InvoiceNotification{
			InvoiceID:       inv.ID,
			ToAddress:       h.Email,
			HouseholdName:   h.Name,
			HouseholdNumber: h.HouseholdNumber,
			PeriodName:      p.Name,
			TotalAmount:     inv.TotalAmount,
			Currency:        inv.Currency,
			DueDate:         inv.DueDate,
		})
		if err != nil {
			s.Logger.Errorw("failed to send invoice notification",
				"invoice_id", inv.ID,
				"household_id", h.ID,
				"error", err)
			report.Warnings = append(report.Warnings, dto.RecordError{
				Kind:        "notification",
				HouseholdID: h.ID,
				Message:     err.Error(),
			})
		}
	}
}

func (s *billingRunService) exportPeriod(ctx context.Context, p *period.BillingPeriod, report *dto.BatchReport) {
	if !s.Config.Billing.ExportOnRun || s.Exporter == nil {
		return
	}

	location, err := s.Exporter.ExportPeriod(ctx, p)
	if err != nil {
		s.Logger.Errorw("failed to export billing report",
			"billing_period_id", p.ID,
			"error", err)
		report.Warnings = append(report.Warnings, dto.RecordError{
			Kind:    "export",
			Message: err.Error(),
		})
		return
	}
	report.ExportLocation = location
}
