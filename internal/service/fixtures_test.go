package service

import (
	"context"
	"time"

	"github.com/brfledger/utilitybilling/internal/config"
	"github.com/brfledger/utilitybilling/internal/domain/household"
	"github.com/brfledger/utilitybilling/internal/domain/meter"
	"github.com/brfledger/utilitybilling/internal/domain/period"
	"github.com/brfledger/utilitybilling/internal/domain/pricing"
	"github.com/brfledger/utilitybilling/internal/domain/reading"
	"github.com/brfledger/utilitybilling/internal/domain/utilityservice"
	"github.com/brfledger/utilitybilling/internal/testutil"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// cooperativeFixture is a two household cooperative with reconciled water and a flat membership fee.
// Q1 is the first period; Q2 has readings 100→130 and 200→230 and a main meter 1000→1056.
type cooperativeFixture struct {
	householdA *household.Household
	householdB *household.Household
	water      *utilityservice.UtilityService
	membership *utilityservice.UtilityService
	mainMeter  *meter.MainMeter
	meterA     *meter.HouseholdMeter
	meterB     *meter.HouseholdMeter
	q1         *period.BillingPeriod
	q2         *period.BillingPeriod
}

func newTestConfig(base *config.Configuration) *config.Configuration {
	cfg := *base
	return &cfg
}

func newTestParams(s *testutil.BaseServiceTestSuite, cfg *config.Configuration) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:             s.GetLogger(),
		Config:             cfg,
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
}

func seedCooperative(s *testutil.BaseServiceTestSuite) *cooperativeFixture {
	ctx := s.GetContext()
	stores := s.GetStores()
	base := types.GetDefaultBaseModel(ctx)
	f := &cooperativeFixture{}

	f.householdA = &household.Household{
		ID: "hh_a", HouseholdNumber: "1101", Name: "Andersson", Email: "a@example.com",
		ShareRatio: decimal.RequireFromString("0.5"), AnnualMembershipFee: decimal.NewFromInt(3000),
		HouseholdStatus: types.HouseholdStatusActive, BaseModel: base,
	}
	f.householdB = &household.Household{
		ID: "hh_b", HouseholdNumber: "1102", Name: "Berg",
		ShareRatio: decimal.RequireFromString("0.5"), AnnualMembershipFee: decimal.NewFromInt(3000),
		HouseholdStatus: types.HouseholdStatusActive, BaseModel: base,
	}
	require.NoError(s.T(), stores.HouseholdRepo.Create(ctx, f.householdA))
	require.NoError(s.T(), stores.HouseholdRepo.Create(ctx, f.householdB))

	f.water = &utilityservice.UtilityService{
		ID: "svc_water", Name: "Water", Unit: "m3", Category: types.ServiceCategoryUtility,
		IsMetered: true, HasMainMeters: true, RequiresReconciliation: true, BaseModel: base,
	}
	f.membership = &utilityservice.UtilityService{
		ID: "svc_membership", Name: "Membership", Category: types.ServiceCategoryMembership, BaseModel: base,
	}
	require.NoError(s.T(), stores.UtilityServiceRepo.Create(ctx, f.water))
	require.NoError(s.T(), stores.UtilityServiceRepo.Create(ctx, f.membership))

	f.mainMeter = &meter.MainMeter{ID: "mm_1", ServiceID: f.water.ID, Identifier: "KOMMUN-1", BaseModel: base}
	f.meterA = &meter.HouseholdMeter{ID: "hm_a", HouseholdID: f.householdA.ID, ServiceID: f.water.ID, Serial: lo.ToPtr("A-1"), BaseModel: base}
	f.meterB = &meter.HouseholdMeter{ID: "hm_b", HouseholdID: f.householdB.ID, ServiceID: f.water.ID, Serial: lo.ToPtr("B-1"), BaseModel: base}
	require.NoError(s.T(), stores.MeterRepo.CreateMainMeter(ctx, f.mainMeter))
	require.NoError(s.T(), stores.MeterRepo.CreateHouseholdMeter(ctx, f.meterA))
	require.NoError(s.T(), stores.MeterRepo.CreateHouseholdMeter(ctx, f.meterB))

	f.q1 = &period.BillingPeriod{
		ID: "bp_q1", Name: "2025-Q1", StartDate: testutil.Date(2025, 1, 1), EndDate: testutil.Date(2025, 3, 31),
		IsOfficialBilling: true, IsBillingEnabled: true, BaseModel: base,
	}
	f.q2 = &period.BillingPeriod{
		ID: "bp_q2", Name: "2025-Q2", StartDate: testutil.Date(2025, 4, 1), EndDate: testutil.Date(2025, 6, 30),
		ReadingDeadline:   lo.ToPtr(testutil.Date(2025, 7, 15)),
		IsOfficialBilling: true, IsBillingEnabled: true, BaseModel: base,
	}
	require.NoError(s.T(), stores.PeriodRepo.Create(ctx, f.q1))
	require.NoError(s.T(), stores.PeriodRepo.Create(ctx, f.q2))

	addPricing(s, f.water.ID, testutil.Date(2025, 1, 1), "45.50", "171.43")
	addPricing(s, f.membership.ID, testutil.Date(2025, 1, 1), "0", "750")

	addReading(s, types.MeterKindMain, f.mainMeter.ID, f.q1, "1000", nil)
	addReading(s, types.MeterKindHousehold, f.meterA.ID, f.q1, "100", nil)
	addReading(s, types.MeterKindHousehold, f.meterB.ID, f.q1, "200", nil)

	addReading(s, types.MeterKindMain, f.mainMeter.ID, f.q2, "1056", nil)
	addReading(s, types.MeterKindHousehold, f.meterA.ID, f.q2, "130", nil)
	addReading(s, types.MeterKindHousehold, f.meterB.ID, f.q2, "230", nil)

	return f
}

func addPricing(s *testutil.BaseServiceTestSuite, serviceID string, effective time.Time, price, fee string) *pricing.UtilityPricing {
	ctx := s.GetContext()
	p := &pricing.UtilityPricing{
		ID:                   types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PRICING),
		ServiceID:            serviceID,
		EffectiveDate:        effective,
		PricePerUnit:         decimal.RequireFromString(price),
		FixedFeePerHousehold: decimal.RequireFromString(fee),
		BaseModel:            types.GetDefaultBaseModel(ctx),
	}
	require.NoError(s.T(), s.GetStores().PricingRepo.Create(ctx, p))
	return p
}

func addReading(s *testutil.BaseServiceTestSuite, kind types.MeterKind, meterID string, p *period.BillingPeriod, value string, override *decimal.Decimal) {
	ctx := s.GetContext()
	require.NoError(s.T(), s.GetStores().ReadingRepo.Upsert(ctx, &reading.MeterReading{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_READING),
		MeterKind:           kind,
		MeterID:             meterID,
		BillingPeriodID:     p.ID,
		Reading:             decimal.RequireFromString(value),
		ReadingDate:         p.EndDate,
		ConsumptionOverride: override,
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}))
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func cancelledContext(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	cancel()
	return ctx
}
