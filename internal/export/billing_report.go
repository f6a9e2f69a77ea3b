package export

import (
	"bytes"
	"context"

	"github.com/brfledger/utilitybilling/internal/domain/billing"
	"github.com/brfledger/utilitybilling/internal/domain/household"
	"github.com/brfledger/utilitybilling/internal/domain/invoice"
	"github.com/brfledger/utilitybilling/internal/domain/period"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
)

// BillingReportExporter renders one period's line items and invoices as CSV
type BillingReportExporter struct {
	billingRepo   billing.Repository
	invoiceRepo   invoice.Repository
	householdRepo household.Repository
	logger        *logger.Logger
}

// BillingReportCSV is one line item row, repeated invoice columns included
type BillingReportCSV struct {
	HouseholdNumber          string `csv:"household_number"`
	HouseholdID              string `csv:"household_id"`
	ServiceID                string `csv:"service_id"`
	Category                 string `csv:"category"`
	ConsumptionSource        string `csv:"consumption_source"`
	RawConsumption           string `csv:"raw_consumption"`
	ReconciliationAdjustment string `csv:"reconciliation_adjustment"`
	AdjustedConsumption      string `csv:"adjusted_consumption"`
	CostPerUnit              string `csv:"cost_per_unit"`
	ConsumptionCost          string `csv:"consumption_cost"`
	FixedFeeShare            string `csv:"fixed_fee_share"`
	TotalUtilityCost         string `csv:"total_utility_cost"`
	InvoiceID                string `csv:"invoice_id"`
	InvoiceTotal             string `csv:"invoice_total"`
	InvoiceStatus            string `csv:"invoice_status"`
	DueDate                  string `csv:"due_date"`
}

func NewBillingReportExporter(
	billingRepo billing.Repository,
	invoiceRepo invoice.Repository,
	householdRepo household.Repository,
	log *logger.Logger,
) *BillingReportExporter {
	return &BillingReportExporter{
		billingRepo:   billingRepo,
		invoiceRepo:   invoiceRepo,
		householdRepo: householdRepo,
		logger:        log,
	}
}

// PrepareData returns the CSV bytes and the number of rows
func (e *BillingReportExporter) PrepareData(ctx context.Context, p *period.BillingPeriod) ([]byte, int, error) {
	lines, err := e.billingRepo.ListByPeriod(ctx, p.ID)
	if err != nil {
		return nil, 0, err
	}

	invoices, err := e.invoiceRepo.List(ctx, &types.InvoiceFilter{
		QueryFilter:     types.NewNoLimitQueryFilter(),
		BillingPeriodID: p.ID,
	})
	if err != nil {
		return nil, 0, err
	}
	byHousehold := lo.KeyBy(invoices, func(inv *invoice.Invoice) string { return inv.HouseholdID })

	households, err := e.householdRepo.List(ctx, &types.HouseholdFilter{QueryFilter: types.NewNoLimitQueryFilter()})
	if err != nil {
		return nil, 0, err
	}
	numbers := lo.SliceToMap(households, func(h *household.Household) (string, string) { return h.ID, h.HouseholdNumber })

	records := e.convertToCSVRecords(lines, byHousehold, numbers)

	var buf bytes.Buffer
	if err := gocsv.Marshal(records, &buf); err != nil {
		return nil, 0, ierr.WithError(err).
			WithHint("Failed to marshal billing report to CSV").
			Mark(ierr.ErrInternal)
	}

	e.logger.Infow("prepared billing report",
		"billing_period_id", p.ID,
		"rows", len(records),
		"csv_size_bytes", buf.Len())

	return buf.Bytes(), len(records), nil
}

func (e *BillingReportExporter) convertToCSVRecords(
	lines []*billing.UtilityBilling,
	invoices map[string]*invoice.Invoice,
	numbers map[string]string,
) []*BillingReportCSV {
	records := make([]*BillingReportCSV, 0, len(lines))

	for _, line := range lines {
		record := &BillingReportCSV{
			HouseholdNumber:          numbers[line.HouseholdID],
			HouseholdID:              line.HouseholdID,
			ServiceID:                line.ServiceID,
			Category:                 string(line.Category),
			ConsumptionSource:        string(line.ConsumptionSource),
			RawConsumption:           line.RawConsumption.String(),
			ReconciliationAdjustment: line.ReconciliationAdjustment.String(),
			AdjustedConsumption:      line.AdjustedConsumption.String(),
			CostPerUnit:              line.CostPerUnit.String(),
			ConsumptionCost:          line.ConsumptionCost.StringFixed(2),
			FixedFeeShare:            line.FixedFeeShare.StringFixed(2),
			TotalUtilityCost:         line.TotalUtilityCost.StringFixed(2),
		}
		if inv, ok := invoices[line.HouseholdID]; ok {
			record.InvoiceID = inv.ID
			record.InvoiceTotal = inv.TotalAmount.StringFixed(2)
			record.InvoiceStatus = string(inv.InvoiceStatus)
			record.DueDate = inv.DueDate.Format("2006-01-02")
		}
		records = append(records, record)
	}

	return records
}
