package testutil

import (
	"context"
	"time"

	"github.com/brfledger/utilitybilling/internal/config"
	"github.com/brfledger/utilitybilling/internal/domain/billing"
	"github.com/brfledger/utilitybilling/internal/domain/household"
	"github.com/brfledger/utilitybilling/internal/domain/invoice"
	"github.com/brfledger/utilitybilling/internal/domain/meter"
	"github.com/brfledger/utilitybilling/internal/domain/payment"
	"github.com/brfledger/utilitybilling/internal/domain/period"
	"github.com/brfledger/utilitybilling/internal/domain/pricing"
	"github.com/brfledger/utilitybilling/internal/domain/reading"
	"github.com/brfledger/utilitybilling/internal/domain/reconciliation"
	"github.com/brfledger/utilitybilling/internal/domain/sharedcost"
	"github.com/brfledger/utilitybilling/internal/domain/utilityservice"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/stretchr/testify/suite"
)

// Stores holds all in-memory repositories used by service tests
type Stores struct {
	HouseholdRepo      household.Repository
	UtilityServiceRepo utilityservice.Repository
	MeterRepo          meter.Repository
	PeriodRepo         period.Repository
	ReadingRepo        reading.Repository
	PricingRepo        pricing.Repository
	ReconciliationRepo reconciliation.Repository
	BillingRepo        billing.Repository
	InvoiceRepo        invoice.Repository
	PaymentRepo        payment.Repository
	SharedCostRepo     sharedcost.Repository
}

// BaseServiceTestSuite provides common functionality for service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	stores    Stores
	db        *MockPostgresClient
	logger    *logger.Logger
	config    *config.Configuration
	publisher *InMemoryPublisher
	now       time.Time
}

func (s *BaseServiceTestSuite) SetupSuite() {
	s.config = config.GetDefaultConfig()
	s.logger = logger.NewNopLogger()
}

func (s *BaseServiceTestSuite) SetupTest() {
	if s.config == nil {
		s.SetupSuite()
	}
	s.ctx = types.SetUserID(types.SetRequestID(context.Background(), "req_test"), "user_test")
	s.db = NewMockPostgresClient()
	s.publisher = NewInMemoryPublisher()
	s.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s.setupStores()
}

func (s *BaseServiceTestSuite) TearDownTest() {
	s.ClearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		HouseholdRepo:      NewInMemoryHouseholdStore(),
		UtilityServiceRepo: NewInMemoryUtilityServiceStore(),
		MeterRepo:          NewInMemoryMeterStore(),
		PeriodRepo:         NewInMemoryPeriodStore(),
		ReadingRepo:        NewInMemoryReadingStore(),
		PricingRepo:        NewInMemoryPricingStore(),
		ReconciliationRepo: NewInMemoryReconciliationStore(),
		BillingRepo:        NewInMemoryBillingStore(),
		InvoiceRepo:        NewInMemoryInvoiceStore(),
		PaymentRepo:        NewInMemoryPaymentStore(),
		SharedCostRepo:     NewInMemorySharedCostStore(),
	}
}

// ClearStores empties every store and the recorded events
func (s *BaseServiceTestSuite) ClearStores() {
	s.stores.HouseholdRepo.(*InMemoryHouseholdStore).Clear()
	s.stores.UtilityServiceRepo.(*InMemoryUtilityServiceStore).Clear()
	s.stores.MeterRepo.(*InMemoryMeterStore).Clear()
	s.stores.PeriodRepo.(*InMemoryPeriodStore).Clear()
	s.stores.ReadingRepo.(*InMemoryReadingStore).Clear()
	s.stores.PricingRepo.(*InMemoryPricingStore).Clear()
	s.stores.ReconciliationRepo.(*InMemoryReconciliationStore).Clear()
	s.stores.BillingRepo.(*InMemoryBillingStore).Clear()
	s.stores.InvoiceRepo.(*InMemoryInvoiceStore).Clear()
	s.stores.PaymentRepo.(*InMemoryPaymentStore).Clear()
	s.stores.SharedCostRepo.(*InMemorySharedCostStore).Clear()
	s.publisher.Clear()
	s.db.Reset()
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetPublisher() *InMemoryPublisher {
	return s.publisher
}

// GetNow returns the fixed clock used by the suite
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// Date is shorthand for a UTC midnight
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
