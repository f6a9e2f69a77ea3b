package export

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/brfledger/utilitybilling/internal/config"
	"github.com/brfledger/utilitybilling/internal/domain/billing"
	"github.com/brfledger/utilitybilling/internal/domain/household"
	"github.com/brfledger/utilitybilling/internal/domain/invoice"
	"github.com/brfledger/utilitybilling/internal/domain/period"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/testutil"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, key string, body []byte) (string, error) {
	args := m.Called(ctx, key, body)
	return args.String(0), args.Error(1)
}

func TestExporter_ExportPeriod(t *testing.T) {
	ctx := context.Background()
	base := types.GetDefaultBaseModel(ctx)

	households := testutil.NewInMemoryHouseholdStore()
	lines := testutil.NewInMemoryBillingStore()
	invoices := testutil.NewInMemoryInvoiceStore()

	require.NoError(t, households.Create(ctx, &household.Household{
		ID: "hh_1", HouseholdNumber: "1101", HouseholdStatus: types.HouseholdStatusActive, BaseModel: base,
	}))
	require.NoError(t, lines.UpsertMany(ctx, []*billing.UtilityBilling{{
		ID:                  "ub_1",
		HouseholdID:         "hh_1",
		ServiceID:           "svc_water",
		BillingPeriodID:     "bp_1",
		Category:            types.ServiceCategoryUtility,
		ConsumptionSource:   types.ConsumptionSourceDerived,
		RawConsumption:      decimal.NewFromInt(20),
		AdjustedConsumption: decimal.NewFromInt(20),
		CostPerUnit:         decimal.NewFromInt(50),
		ConsumptionCost:     decimal.NewFromInt(1000),
		FixedFeeShare:       decimal.NewFromInt(50),
		TotalUtilityCost:    decimal.NewFromInt(1050),
		BaseModel:           base,
	}}))
	require.NoError(t, invoices.Upsert(ctx, &invoice.Invoice{
		ID:              "inv_1",
		HouseholdID:     "hh_1",
		BillingPeriodID: "bp_1",
		TotalAmount:     decimal.NewFromInt(1050),
		InvoiceStatus:   types.InvoiceStatusPending,
		DueDate:         time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
		BaseModel:       base,
	}))

	log := logger.NewNopLogger()
	cfg := config.GetDefaultConfig()
	cfg.Export.KeyPrefix = "reports"

	uploader := &mockUploader{}
	var uploaded []byte
	uploader.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "reports/2025-H1/billing_report_")
	}), mock.Anything).
		Run(func(args mock.Arguments) { uploaded = args.Get(2).([]byte) }).
		Return("s3://bucket/reports/2025-H1/report.csv", nil)

	exporter := NewExporter(NewBillingReportExporter(lines, invoices, households, log), uploader, cfg, log)
	location, err := exporter.ExportPeriod(ctx, &period.BillingPeriod{ID: "bp_1", Name: "2025-H1"})
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/reports/2025-H1/report.csv", location)
	uploader.AssertExpectations(t)

	var rows []*BillingReportCSV
	require.NoError(t, gocsv.UnmarshalBytes(uploaded, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "1101", rows[0].HouseholdNumber)
	assert.Equal(t, "1050.00", rows[0].TotalUtilityCost)
	assert.Equal(t, "inv_1", rows[0].InvoiceID)
	assert.Equal(t, "2025-10-31", rows[0].DueDate)
}
