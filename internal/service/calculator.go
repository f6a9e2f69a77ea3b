package service

import (
	"context"
	"time"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/domain/billing"
	"github.com/brfledger/utilitybilling/internal/domain/consumption"
	"github.com/brfledger/utilitybilling/internal/domain/household"
	"github.com/brfledger/utilitybilling/internal/domain/meter"
	"github.com/brfledger/utilitybilling/internal/domain/period"
	"github.com/brfledger/utilitybilling/internal/domain/pricing"
	"github.com/brfledger/utilitybilling/internal/domain/reconciliation"
	"github.com/brfledger/utilitybilling/internal/domain/utilityservice"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const (
	skipNotReconciled       = "service does not require reconciliation"
	skipNoPrecedingPeriod   = "no preceding billing period"
	skipNoMainMeters        = "service has no main meters"
	skipNoMainReadings      = "no main meter consumption for the period"
	skipNoHouseholdReading  = "no household consumption for the period"
	skipMainIncomplete      = "main meter consumption incomplete"
	skipHouseholdIncomplete = "household consumption incomplete"
)

// periodCalculator computes one period against a snapshot of the store taken up front.
// It only reads; writes happen in the caller's transaction.
type periodCalculator struct {
	ServiceParams
	period     *period.BillingPeriod
	periods    []*period.BillingPeriod
	households []*household.Household
	now        time.Time
}

// serviceComputation is the outcome of one service for one period
type serviceComputation struct {
	service        *utilityservice.UtilityService
	consumptions   map[string]*consumption.Consumption
	reconciliation *reconciliation.Reconciliation
	skipReason     string
	lineItems      []*billing.UtilityBilling
	errors         []dto.RecordError
	warnings       []dto.RecordError
}

func newPeriodCalculator(ctx context.Context, params ServiceParams, periodID string) (*periodCalculator, error) {
	p, err := params.PeriodRepo.Get(ctx, periodID)
	if err != nil {
		return nil, err
	}

	periods, err := params.PeriodRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	households, err := listActiveHouseholds(ctx, params.HouseholdRepo)
	if err != nil {
		return nil, err
	}

	return &periodCalculator{
		ServiceParams: params,
		period:        p,
		periods:       period.SortByStart(periods),
		households:    households,
		now:           time.Now().UTC(),
	}, nil
}

// requireHouseholds fails the whole computation; there is no sane partial result without households
func (c *periodCalculator) requireHouseholds() error {
	if len(c.households) > 0 {
		return nil
	}
	return ierr.NewError("no active households").
		WithHint("At least one active household is required to compute per-household shares").
		WithReportableDetails(map[string]any{"billing_period_id": c.period.ID}).
		Mark(ierr.ErrConfiguration)
}

func (c *periodCalculator) householdIDs() []string {
	return lo.Map(c.households, func(h *household.Household, _ int) string { return h.ID })
}

func (c *periodCalculator) meterConsumption(ctx context.Context, kind types.MeterKind, meterID string) (*consumption.Consumption, error) {
	history, err := c.ReadingRepo.ListByMeter(ctx, kind, meterID)
	if err != nil {
		return nil, err
	}
	return consumption.ForPeriod(kind, meterID, history, c.periods, c.period, c.Config.Billing.FirstReadingPolicy)
}

// householdConsumptions computes every active household's consumption of a metered service.
// Record level failures are returned as report entries; anything else aborts.
func (c *periodCalculator) householdConsumptions(ctx context.Context, svc *utilityservice.UtilityService) (map[string]*consumption.Consumption, []dto.RecordError, []dto.RecordError, error) {
	meters, err := c.MeterRepo.ListHouseholdMeters(ctx, &types.HouseholdMeterFilter{ServiceID: svc.ID})
	if err != nil {
		return nil, nil, nil, err
	}
	byHousehold := lo.KeyBy(meters, func(m *meter.HouseholdMeter) string { return m.HouseholdID })

	var (
		out      = make(map[string]*consumption.Consumption, len(c.households))
		errs     []dto.RecordError
		warnings []dto.RecordError
	)
	for _, h := range c.households {
		m, ok := byHousehold[h.ID]
		if !ok {
			warnings = append(warnings, dto.RecordError{
				Kind:        "not_found",
				HouseholdID: h.ID,
				ServiceID:   svc.ID,
				Message:     "household has no meter for the service",
			})
			continue
		}

		q, err := c.meterConsumption(ctx, types.MeterKindHousehold, m.ID)
		if err != nil {
			if !isRecordError(err) {
				return nil, nil, nil, err
			}
			errs = append(errs, newRecordError(err, h.ID, svc.ID, m.ID))
			continue
		}
		out[h.ID] = q
	}
	return out, errs, warnings, nil
}

// reconcile apportions the main meter gap for a reconciled service.
// A nil record with a skip reason means billing proceeds with zero adjustment.
// Totals are only computed when every main meter and every active household has a consumption.
func (c *periodCalculator) reconcile(
	ctx context.Context,
	svc *utilityservice.UtilityService,
	consumptions map[string]*consumption.Consumption,
) (*reconciliation.Reconciliation, string, []dto.RecordError, error) {
	if !svc.IsReconciled() {
		return nil, skipNotReconciled, nil, nil
	}
	if period.Preceding(c.periods, c.period) == nil {
		return nil, skipNoPrecedingPeriod, nil, nil
	}

	mainMeters, err := c.MeterRepo.ListMainMeters(ctx, svc.ID)
	if err != nil {
		return nil, "", nil, err
	}
	if len(mainMeters) == 0 {
		return nil, skipNoMainMeters, nil, nil
	}

	var (
		mainConsumptions []decimal.Decimal
		errs             []dto.RecordError
		missingMain      int
	)
	for _, m := range mainMeters {
		q, err := c.meterConsumption(ctx, types.MeterKindMain, m.ID)
		if err != nil {
			if ierr.IsNotFound(err) {
				missingMain++
				continue
			}
			if !isRecordError(err) {
				return nil, "", nil, err
			}
			errs = append(errs, newRecordError(err, "", svc.ID, m.ID))
			continue
		}
		mainConsumptions = append(mainConsumptions, q.Quantity)
	}
	if len(mainConsumptions) == 0 {
		return nil, skipNoMainReadings, errs, nil
	}
	if len(errs) > 0 || missingMain > 0 {
		return nil, skipMainIncomplete, errs, nil
	}
	if len(consumptions) == 0 {
		return nil, skipNoHouseholdReading, nil, nil
	}
	if _, missing := lo.Find(c.households, func(h *household.Household) bool {
		_, ok := consumptions[h.ID]
		return !ok
	}); missing {
		return nil, skipHouseholdIncomplete, nil, nil
	}

	quantities := make(map[string]decimal.Decimal, len(consumptions))
	for id, q := range consumptions {
		quantities[id] = q.Quantity
	}

	rec, err := reconciliation.Compute(reconciliation.Input{
		ServiceID:             svc.ID,
		BillingPeriodID:       c.period.ID,
		MainConsumptions:      mainConsumptions,
		HouseholdConsumptions: quantities,
		ActiveHouseholdIDs:    c.householdIDs(),
		SplitMode:             c.Config.Billing.ReconciliationSplitMode,
		Now:                   c.now,
	})
	if err != nil {
		return nil, "", nil, err
	}
	rec.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RECONCILIATION)
	rec.BaseModel = types.GetDefaultBaseModel(ctx)
	return rec, "", nil, nil
}

// computeService produces the line items of one service for every active household
func (c *periodCalculator) computeService(ctx context.Context, svc *utilityservice.UtilityService) (*serviceComputation, error) {
	result := &serviceComputation{service: svc}

	history, err := c.PricingRepo.ListByService(ctx, svc.ID)
	if err != nil {
		return nil, err
	}
	price, pricingErr := pricing.ResolvePricing(history, c.period.BillingDate(c.Config.Billing.PricingDateAnchor))
	if pricingErr != nil && !ierr.IsMissingPricing(pricingErr) {
		return nil, pricingErr
	}

	lineInput := func(householdID string) billing.LineInput {
		return billing.LineInput{
			HouseholdID:     householdID,
			ServiceID:       svc.ID,
			BillingPeriodID: c.period.ID,
			Category:        svc.Category,
			Pricing:         price,
			Currency:        c.Config.Billing.Currency,
		}
	}

	if !svc.IsMetered {
		for _, h := range c.households {
			item, err := billing.ComputeFlat(lineInput(h.ID))
			if err != nil {
				result.errors = append(result.errors, newRecordError(err, h.ID, svc.ID, ""))
				continue
			}
			result.lineItems = append(result.lineItems, c.stamp(ctx, item))
		}
		return result, nil
	}

	consumptions, errs, warnings, err := c.householdConsumptions(ctx, svc)
	if err != nil {
		return nil, err
	}
	result.consumptions = consumptions
	result.errors = append(result.errors, errs...)
	result.warnings = append(result.warnings, warnings...)

	rec, skipReason, recErrs, err := c.reconcile(ctx, svc, consumptions)
	if err != nil {
		return nil, err
	}
	result.reconciliation = rec
	result.skipReason = skipReason
	result.errors = append(result.errors, recErrs...)

	for _, h := range c.households {
		q, ok := consumptions[h.ID]
		if !ok {
			continue
		}
		item, err := billing.ComputeMetered(lineInput(h.ID), q, rec.AdjustmentFor(h.ID))
		if err != nil {
			result.errors = append(result.errors, newRecordError(err, h.ID, svc.ID, q.MeterID))
			continue
		}
		result.lineItems = append(result.lineItems, c.stamp(ctx, item))
	}
	return result, nil
}

func (c *periodCalculator) stamp(ctx context.Context, item *billing.UtilityBilling) *billing.UtilityBilling {
	item.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LINE_ITEM)
	item.BaseModel = types.GetDefaultBaseModel(ctx)
	return item
}

// isRecordError reports failures that are isolated to one record and belong in the batch report
func isRecordError(err error) bool {
	return ierr.IsDataIntegrity(err) ||
		ierr.IsMissingPricing(err) ||
		ierr.IsMissingPrecedingPeriod(err) ||
		ierr.IsNotFound(err) ||
		ierr.IsValidation(err)
}

func newRecordError(err error, householdID, serviceID, meterID string) dto.RecordError {
	return dto.RecordError{
		Kind:        ierr.Kind(err),
		HouseholdID: householdID,
		ServiceID:   serviceID,
		MeterID:     meterID,
		Message:     err.Error(),
		Hint:        ierr.GetHint(err),
	}
}
