package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brfledger/utilitybilling/internal/api/cron"
	"github.com/brfledger/utilitybilling/internal/api/dto"
	v1 "github.com/brfledger/utilitybilling/internal/api/v1"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/sentry"
	"github.com/brfledger/utilitybilling/internal/service"
	"github.com/brfledger/utilitybilling/internal/testutil"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router *gin.Engine
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	gin.SetMode(gin.TestMode)

	cfg := *s.GetConfig()
	cfg.Billing.FirstReadingPolicy = types.FirstReadingPolicyUseCurrentReading

	stores := s.GetStores()
	params := service.ServiceParams{
		Logger:             s.GetLogger(),
		Config:             &cfg,
		DB:                 s.GetDB(),
		HouseholdRepo:      stores.HouseholdRepo,
		UtilityServiceRepo: stores.UtilityServiceRepo,
		MeterRepo:          stores.MeterRepo,
		PeriodRepo:         stores.PeriodRepo,
		ReadingRepo:        stores.ReadingRepo,
		PricingRepo:        stores.PricingRepo,
		ReconciliationRepo: stores.ReconciliationRepo,
		BillingRepo:        stores.BillingRepo,
		InvoiceRepo:        stores.InvoiceRepo,
		PaymentRepo:        stores.PaymentRepo,
		SharedCostRepo:     stores.SharedCostRepo,
		EventPublisher:     s.GetPublisher(),
	}

	billingService := service.NewBillingService(params)
	invoiceService := service.NewInvoiceService(params)
	log := s.GetLogger()

	s.router = NewRouter(Handlers{
		Health:         v1.NewHealthHandler(&cfg, nil),
		Household:      v1.NewHouseholdHandler(service.NewHouseholdService(params), log),
		ServiceCatalog: v1.NewServiceCatalogHandler(service.NewServiceCatalogService(params), log),
		Period:         v1.NewPeriodHandler(service.NewPeriodService(params), log),
		Pricing:        v1.NewPricingHandler(service.NewPricingService(params), log),
		Reading:        v1.NewReadingHandler(service.NewReadingService(params), log),
		SharedCost:     v1.NewSharedCostHandler(service.NewSharedCostService(params), log),
		Billing: v1.NewBillingHandler(
			billingService,
			service.NewBillingRunService(params, billingService),
			service.NewConsumptionService(params),
			service.NewReconciliationService(params),
			nil,
			log,
		),
		Invoice:     v1.NewInvoiceHandler(invoiceService, log),
		CronInvoice: cron.NewInvoiceCronHandler(invoiceService, nil, log),
	}, &cfg, log, sentry.NewSentryService(&cfg, log))
}

func (s *RouterSuite) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(types.HeaderUserID, "usr_admin")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) decode(w *httptest.ResponseRecorder, v interface{}) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *RouterSuite) requireStatus(w *httptest.ResponseRecorder, status int) {
	s.Require().Equal(status, w.Code, w.Body.String())
}

// seed creates one household with a water meter, the first quarter and its price
func (s *RouterSuite) seed() (householdID, serviceID, periodID string) {
	w := s.do(http.MethodPost, "/v1/households", dto.CreateHouseholdRequest{
		HouseholdNumber:     "1101",
		Name:                "Andersson",
		ShareRatio:          decimal.NewFromInt(1),
		AnnualMembershipFee: decimal.Zero,
	})
	s.requireStatus(w, http.StatusCreated)
	var hh dto.HouseholdResponse
	s.decode(w, &hh)

	w = s.do(http.MethodPost, "/v1/services", dto.CreateUtilityServiceRequest{
		Name:      "Water",
		Unit:      "m3",
		Category:  types.ServiceCategoryUtility,
		IsMetered: true,
	})
	s.requireStatus(w, http.StatusCreated)
	var svc dto.UtilityServiceResponse
	s.decode(w, &svc)

	w = s.do(http.MethodPost, "/v1/household_meters", dto.CreateHouseholdMeterRequest{
		HouseholdID: hh.ID,
		ServiceID:   svc.ID,
	})
	s.requireStatus(w, http.StatusCreated)

	w = s.do(http.MethodPost, "/v1/billing_periods", dto.CreateBillingPeriodRequest{
		Name:      "2025-Q1",
		StartDate: testutil.Date(2025, 1, 1),
		EndDate:   testutil.Date(2025, 3, 31),
	})
	s.requireStatus(w, http.StatusCreated)
	var bp dto.BillingPeriodResponse
	s.decode(w, &bp)

	w = s.do(http.MethodPost, "/v1/services/"+svc.ID+"/pricing", dto.CreatePricingRequest{
		EffectiveDate: testutil.Date(2025, 1, 1),
		PricePerUnit:  decimal.RequireFromString("45.50"),
	})
	s.requireStatus(w, http.StatusCreated)

	return hh.ID, svc.ID, bp.ID
}

func (s *RouterSuite) TestBillingFlow() {
	householdID, serviceID, periodID := s.seed()

	w := s.do(http.MethodPost, "/v1/readings/household", dto.RecordHouseholdReadingRequest{
		HouseholdNumber: "1101",
		ServiceID:       serviceID,
		PeriodName:      "2025-Q1",
		Reading:         decimal.NewFromInt(10),
		ReadingDate:     testutil.Date(2025, 3, 31),
	})
	s.requireStatus(w, http.StatusOK)

	w = s.do(http.MethodPost, "/v1/billing/generate", dto.GenerateBillsRequest{BillingPeriodID: periodID})
	s.requireStatus(w, http.StatusOK)
	var report dto.BatchReport
	s.decode(w, &report)
	s.Equal(1, report.Invoices)
	s.Require().Len(report.InvoiceIDs, 1)

	w = s.do(http.MethodGet, "/v1/invoices/"+report.InvoiceIDs[0], nil)
	s.requireStatus(w, http.StatusOK)
	var inv dto.InvoiceResponse
	s.decode(w, &inv)
	s.Equal(householdID, inv.HouseholdID)
	s.True(inv.TotalAmount.Equal(decimal.RequireFromString("455")), inv.TotalAmount.String())

	w = s.do(http.MethodPost, "/v1/invoices/"+inv.ID+"/payments", dto.RecordPaymentRequest{
		Amount: decimal.RequireFromString("455"),
	})
	s.requireStatus(w, http.StatusOK)
	s.decode(w, &inv)
	s.Equal(types.InvoiceStatusPaid, inv.InvoiceStatus)

	w = s.do(http.MethodGet, "/v1/billing_periods/"+periodID+"/line_items", nil)
	s.requireStatus(w, http.StatusOK)
	s.Contains(w.Body.String(), serviceID)
}

func (s *RouterSuite) TestImportReadingsCSV() {
	_, serviceID, _ := s.seed()

	sheet := strings.Join([]string{
		"household_number,service_id,period_name,reading,reading_date,consumption_override",
		"1101," + serviceID + ",2025-Q1,12.5,2025-03-31,",
		"9999," + serviceID + ",2025-Q1,4,2025-03-31,",
	}, "\n")

	req := httptest.NewRequest(http.MethodPost, "/v1/readings/import", strings.NewReader(sheet))
	req.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.requireStatus(w, http.StatusOK)

	var resp dto.ImportReadingsResponse
	s.decode(w, &resp)
	s.Equal(1, resp.Imported)
	s.Require().Len(resp.Errors, 1)
	s.Equal(2, resp.Errors[0].Row)
	s.Equal("not_found", resp.Errors[0].Kind)
}

func (s *RouterSuite) TestImportReadingsCSV_BadNumber() {
	req := httptest.NewRequest(http.MethodPost, "/v1/readings/import", strings.NewReader(
		"household_number,service_id,period_name,reading,reading_date,consumption_override\n1101,svc_water,2025-Q1,ten,2025-03-31,\n"))
	req.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.requireStatus(w, http.StatusBadRequest)
	var resp ierr.ErrorResponse
	s.decode(w, &resp)
	s.Equal("validation", resp.Error.Kind)
}

func (s *RouterSuite) TestErrorMapping() {
	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		kind   string
	}{
		{
			name:   "unknown invoice",
			method: http.MethodGet,
			path:   "/v1/invoices/inv_missing",
			status: http.StatusNotFound,
			kind:   "not_found",
		},
		{
			name:   "invalid household",
			method: http.MethodPost,
			path:   "/v1/households",
			body:   dto.CreateHouseholdRequest{Name: "No number"},
			status: http.StatusBadRequest,
			kind:   "validation",
		},
		{
			name:   "async run without temporal",
			method: http.MethodPost,
			path:   "/v1/billing/runs",
			body:   dto.BillingRunRequest{BillingPeriodIDs: []string{"bp_q1"}, Async: true},
			status: http.StatusBadRequest,
			kind:   "invalid_operation",
		},
		{
			name:   "bad shared cost quarter",
			method: http.MethodGet,
			path:   "/v1/shared_costs?year=2025&quarter=q2",
			status: http.StatusBadRequest,
			kind:   "validation",
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(tt.method, tt.path, tt.body)
			s.requireStatus(w, tt.status)

			var resp ierr.ErrorResponse
			s.decode(w, &resp)
			s.False(resp.Success)
			s.Equal(tt.kind, resp.Error.Kind)
			s.NotEmpty(w.Header().Get(types.HeaderRequestID))
		})
	}
}

func (s *RouterSuite) TestBillingRunWithoutActiveHouseholds() {
	w := s.do(http.MethodPost, "/v1/billing_periods", dto.CreateBillingPeriodRequest{
		Name:      "2025-Q1",
		StartDate: testutil.Date(2025, 1, 1),
		EndDate:   testutil.Date(2025, 3, 31),
	})
	s.requireStatus(w, http.StatusCreated)
	var bp dto.BillingPeriodResponse
	s.decode(w, &bp)

	w = s.do(http.MethodPost, "/v1/billing/runs", dto.BillingRunRequest{BillingPeriodIDs: []string{bp.ID}})
	s.requireStatus(w, http.StatusUnprocessableEntity)

	var resp ierr.ErrorResponse
	s.decode(w, &resp)
	s.Equal("configuration", resp.Error.Kind)
}

func (s *RouterSuite) TestOverdueCron() {
	_, serviceID, periodID := s.seed()
	s.requireStatus(s.do(http.MethodPost, "/v1/readings/household", dto.RecordHouseholdReadingRequest{
		HouseholdNumber: "1101",
		ServiceID:       serviceID,
		PeriodName:      "2025-Q1",
		Reading:         decimal.NewFromInt(10),
		ReadingDate:     testutil.Date(2025, 3, 31),
	}), http.StatusOK)
	s.requireStatus(s.do(http.MethodPost, "/v1/billing/generate", dto.GenerateBillsRequest{BillingPeriodID: periodID}), http.StatusOK)

	// due date is the period end plus four months
	w := s.do(http.MethodPost, "/v1/cron/invoices/overdue?as_of=2025-07-31", nil)
	s.requireStatus(w, http.StatusOK)
	var resp dto.MarkOverdueResponse
	s.decode(w, &resp)
	s.Equal(0, resp.Updated)

	w = s.do(http.MethodPost, "/v1/cron/invoices/overdue?as_of=2025-08-01", nil)
	s.requireStatus(w, http.StatusOK)
	s.decode(w, &resp)
	s.Equal(1, resp.Updated)

	s.requireStatus(s.do(http.MethodPost, "/v1/cron/invoices/overdue?as_of=August", nil), http.StatusBadRequest)
}

func (s *RouterSuite) TestOverdueCron_AsyncWithoutTemporal() {
	w := s.do(http.MethodPost, "/v1/cron/invoices/overdue?async=true", nil)
	s.requireStatus(w, http.StatusBadRequest)

	var resp ierr.ErrorResponse
	s.decode(w, &resp)
	s.Equal("invalid_operation", resp.Error.Kind)
}

func (s *RouterSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", nil)
	s.requireStatus(w, http.StatusOK)

	var resp map[string]string
	s.decode(w, &resp)
	s.Equal("ok", resp["status"])
	s.Equal("disabled", resp["temporal"])
}
