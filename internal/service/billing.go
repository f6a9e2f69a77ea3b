package service

import (
	"context"
	"sort"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/domain/billing"
	"github.com/brfledger/utilitybilling/internal/domain/household"
	"github.com/brfledger/utilitybilling/internal/domain/invoice"
	"github.com/brfledger/utilitybilling/internal/domain/period"
	"github.com/brfledger/utilitybilling/internal/domain/reconciliation"
	"github.com/brfledger/utilitybilling/internal/domain/sharedcost"
	"github.com/brfledger/utilitybilling/internal/domain/utilityservice"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/publisher"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

// BillingService generates the line items and invoices of a billing period
type BillingService interface {
	// GenerateBills is idempotent: regenerating a period replaces its line items and invoices.
	// Per-record failures land in the report; configuration errors abort.
	GenerateBills(ctx context.Context, periodID string) (*dto.BatchReport, error)
	ListLineItems(ctx context.Context, periodID string) ([]*billing.UtilityBilling, error)
}

type billingService struct {
	ServiceParams
}

func NewBillingService(params ServiceParams) BillingService {
	return &billingService{
		ServiceParams: params,
	}
}

func (s *billingService) GenerateBills(ctx context.Context, periodID string) (*dto.BatchReport, error) {
	if periodID == "" {
		return nil, ierr.NewError("billing period id is required").
			WithHint("Please provide the billing period to generate bills for").
			Mark(ierr.ErrValidation)
	}

	calc, err := newPeriodCalculator(ctx, s.ServiceParams, periodID)
	if err != nil {
		return nil, err
	}
	if !calc.period.IsBillingEnabled {
		return nil, ierr.NewError("billing is disabled for the period").
			WithHintf("Billing is not enabled for period %s", calc.period.Name).
			WithReportableDetails(map[string]any{"billing_period_id": calc.period.ID}).
			Mark(ierr.ErrInvalidOperation)
	}
	if err := calc.requireHouseholds(); err != nil {
		s.Logger.Errorw("aborting bill generation",
			"billing_period_id", calc.period.ID,
			"error", err)
		return nil, err
	}

	report := &dto.BatchReport{
		BillingPeriodID:   calc.period.ID,
		BillingPeriodName: calc.period.Name,
	}

	if err := household.ValidateShareRatios(calc.households); err != nil {
		report.Warnings = append(report.Warnings, newRecordError(err, "", "", ""))
	}

	sharedShare, err := s.sharedCostShare(ctx, calc)
	if err != nil {
		return nil, err
	}

	services, err := s.UtilityServiceRepo.List(ctx, types.NewUtilityServiceFilter())
	if err != nil {
		return nil, err
	}

	results, err := s.computeServices(ctx, calc, services)
	if err != nil {
		return nil, err
	}

	var (
		reconciliations []*reconciliation.Reconciliation
		skippedServices []string
		lineItems       []*billing.UtilityBilling
	)
	for _, r := range results {
		report.Errors = append(report.Errors, r.errors...)
		report.Warnings = append(report.Warnings, r.warnings...)
		lineItems = append(lineItems, r.lineItems...)
		if r.reconciliation != nil {
			reconciliations = append(reconciliations, r.reconciliation)
		} else if r.service.IsReconciled() {
			skippedServices = append(skippedServices, r.service.ID)
			report.SkippedReconciliations = append(report.SkippedReconciliations, r.service.ID+": "+r.skipReason)
		}
	}

	var events []*publisher.Event
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		var txErr error
		events, txErr = s.writePeriod(ctx, calc, report, reconciliations, skippedServices, lineItems, sharedShare)
		return txErr
	})
	if err != nil {
		s.Logger.Errorw("failed to write billing period",
			"billing_period_id", calc.period.ID,
			"error", err)
		return nil, err
	}

	events = append(events, publisher.NewEvent(publisher.EventPeriodBilled, calc.period.ID, "", map[string]interface{}{
		"line_items":      report.LineItems,
		"invoices":        report.Invoices,
		"reconciliations": report.Reconciliations,
		"errors":          len(report.Errors),
	}))
	s.publishEvents(ctx, events)

	s.Logger.Infow("generated bills",
		"billing_period_id", calc.period.ID,
		"billing_period_name", calc.period.Name,
		"line_items", report.LineItems,
		"invoices", report.Invoices,
		"reconciliations", report.Reconciliations,
		"stale_line_items_pruned", report.StaleLineItemsPruned,
		"errors", len(report.Errors),
		"warnings", len(report.Warnings))

	return report, nil
}

func (s *billingService) ListLineItems(ctx context.Context, periodID string) ([]*billing.UtilityBilling, error) {
	return s.BillingRepo.ListByPeriod(ctx, periodID)
}

// computeServices runs every service of the period in parallel.
// Services are independent within a period; the first fatal error cancels the rest.
func (s *billingService) computeServices(ctx context.Context, calc *periodCalculator, services []*utilityservice.UtilityService) ([]*serviceComputation, error) {
	maxParallel := s.Config.Billing.MaxParallelServices
	if maxParallel <= 0 {
		maxParallel = 1
	}

	p := pool.NewWithResults[*serviceComputation]().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(maxParallel)

	for _, svc := range services {
		svc := svc
		p.Go(func(ctx context.Context) (*serviceComputation, error) {
			return calc.computeService(ctx, svc)
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].service.ID < results[j].service.ID
	})
	return results, nil
}

// sharedCostShare is one household's share of the quarter's shared costs, pro-rated over the
// billing periods that fall in the quarter
func (s *billingService) sharedCostShare(ctx context.Context, calc *periodCalculator) (decimal.Decimal, error) {
	year, quarter := calc.period.Quarter()

	costs, err := s.SharedCostRepo.ListByQuarter(ctx, year, quarter)
	if err != nil {
		return decimal.Zero, err
	}

	return sharedcost.ShareFor(
		costs,
		len(calc.households),
		period.CountInQuarter(calc.periods, year, quarter),
		s.Config.Billing.Currency,
	)
}

// writePeriod is the single atomic unit of a period: reconciliations, line items and invoices.
// Reconciliations of skipped services are archived so line items and records agree.
func (s *billingService) writePeriod(
	ctx context.Context,
	calc *periodCalculator,
	report *dto.BatchReport,
	reconciliations []*reconciliation.Reconciliation,
	skippedServices []string,
	lineItems []*billing.UtilityBilling,
	sharedShare decimal.Decimal,
) ([]*publisher.Event, error) {
	lockReq := types.LockRequest{
		Key: types.GenerateLockKey(types.LockScopeBillingPeriod, map[string]interface{}{"period_id": calc.period.ID}),
	}
	if s.Config.Billing.LockTimeout > 0 {
		lockReq.Timeout = lo.ToPtr(s.Config.Billing.LockTimeout)
	}
	if err := s.DB.LockKey(ctx, lockReq); err != nil {
		return nil, err
	}

	var events []*publisher.Event

	for _, rec := range reconciliations {
		if err := lockReconciliation(ctx, s.ServiceParams, rec.ServiceID, rec.BillingPeriodID); err != nil {
			return nil, err
		}
		if err := s.ReconciliationRepo.Upsert(ctx, rec); err != nil {
			return nil, err
		}
		events = append(events, reconciliationEvent(rec))
	}
	report.Reconciliations = len(reconciliations)

	for _, serviceID := range skippedServices {
		if err := lockReconciliation(ctx, s.ServiceParams, serviceID, calc.period.ID); err != nil {
			return nil, err
		}
		archived, err := s.ReconciliationRepo.Archive(ctx, serviceID, calc.period.ID)
		if err != nil {
			return nil, err
		}
		if archived {
			report.ReconciliationsArchived++
		}
	}

	if err := s.BillingRepo.UpsertMany(ctx, lineItems); err != nil {
		return nil, err
	}
	report.LineItems = len(lineItems)

	pruned, err := s.BillingRepo.DeleteStale(ctx, calc.period.ID, lo.Map(lineItems, func(item *billing.UtilityBilling, _ int) billing.Key {
		return item.Key()
	}))
	if err != nil {
		return nil, err
	}
	report.StaleLineItemsPruned = pruned

	byHousehold := lo.GroupBy(lineItems, func(item *billing.UtilityBilling) string { return item.HouseholdID })
	dueDate := calc.period.DueDate(s.Config.Billing.DueDateOffsetMonths)

	households := append([]*household.Household(nil), calc.households...)
	sort.Slice(households, func(i, j int) bool { return households[i].ID < households[j].ID })

	for _, h := range households {
		if err := lockInvoice(ctx, s.ServiceParams, h.ID, calc.period.ID); err != nil {
			return nil, err
		}

		fresh, err := invoice.Aggregate(invoice.AggregateInput{
			HouseholdID:     h.ID,
			BillingPeriodID: calc.period.ID,
			LineItems:       byHousehold[h.ID],
			SharedCosts:     sharedShare,
			DueDate:         dueDate,
			Currency:        s.Config.Billing.Currency,
		})
		if err != nil {
			return nil, err
		}
		fresh.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE)
		fresh.BaseModel = types.GetDefaultBaseModel(ctx)

		existing, err := s.InvoiceRepo.GetByHouseholdAndPeriod(ctx, h.ID, calc.period.ID)
		if err != nil && !ierr.IsNotFound(err) {
			return nil, err
		}

		result := invoice.ApplyRecomputation(existing, fresh, calc.now)
		if err := s.InvoiceRepo.Upsert(ctx, result.Invoice); err != nil {
			return nil, err
		}

		report.Invoices++
		report.InvoiceIDs = append(report.InvoiceIDs, result.Invoice.ID)
		events = append(events, publisher.NewEvent(publisher.EventInvoiceGenerated, calc.period.ID, h.ID, map[string]interface{}{
			"invoice_id":   result.Invoice.ID,
			"total_amount": result.Invoice.TotalAmount.String(),
			"due_date":     result.Invoice.DueDate,
		}))

		if result.PaidTotalChanged {
			report.Warnings = append(report.Warnings, dto.RecordError{
				Kind:        "paid_total_changed",
				HouseholdID: h.ID,
				Message:     "recomputed total differs from the total of a paid invoice; status kept as paid",
			})
			events = append(events, publisher.NewEvent(publisher.EventInvoicePaidChanged, calc.period.ID, h.ID, map[string]interface{}{
				"invoice_id":     result.Invoice.ID,
				"previous_total": existing.TotalAmount.String(),
				"total_amount":   result.Invoice.TotalAmount.String(),
			}))
		}
		if result.BecamePaid {
			events = append(events, invoicePaidEvent(result.Invoice))
		}
	}

	return events, nil
}

func invoicePaidEvent(inv *invoice.Invoice) *publisher.Event {
	return publisher.NewEvent(publisher.EventInvoicePaid, inv.BillingPeriodID, inv.HouseholdID, map[string]interface{}{
		"invoice_id":   inv.ID,
		"total_amount": inv.TotalAmount.String(),
		"paid_amount":  inv.PaidAmount.String(),
	})
}

func reconciliationEvent(rec *reconciliation.Reconciliation) *publisher.Event {
	return publisher.NewEvent(publisher.EventReconciliationComputed, rec.BillingPeriodID, "", map[string]interface{}{
		"reconciliation_id": rec.ID,
		"service_id":        rec.ServiceID,
		"difference":        rec.Difference.String(),
		"split_mode":        rec.SplitMode,
	})
}
