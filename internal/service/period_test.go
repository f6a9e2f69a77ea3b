package service

import (
	"testing"
	"time"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/domain/period"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type PeriodServiceSuite struct {
	testutil.BaseServiceTestSuite
	service PeriodService
	pricing PricingService
	data    *cooperativeFixture
}

func TestPeriodService(t *testing.T) {
	suite.Run(t, new(PeriodServiceSuite))
}

func (s *PeriodServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestParams(&s.BaseServiceTestSuite, newTestConfig(s.GetConfig()))
	s.service = NewPeriodService(params)
	s.pricing = NewPricingService(params)
	s.data = seedCooperative(&s.BaseServiceTestSuite)
}

func (s *PeriodServiceSuite) TestCreateBillingPeriod() {
	tests := []struct {
		name    string
		req     dto.CreateBillingPeriodRequest
		wantErr func(error) bool
	}{
		{
			name: "adjacent quarter",
			req: dto.CreateBillingPeriodRequest{
				Name:      "2025-Q3",
				StartDate: testutil.Date(2025, 7, 1),
				EndDate:   testutil.Date(2025, 9, 30),
			},
		},
		{
			name: "overlaps Q2",
			req: dto.CreateBillingPeriodRequest{
				Name:      "2025-June",
				StartDate: testutil.Date(2025, 6, 1),
				EndDate:   testutil.Date(2025, 7, 31),
			},
			wantErr: ierr.IsDataIntegrity,
		},
		{
			name: "ends before it starts",
			req: dto.CreateBillingPeriodRequest{
				Name:      "broken",
				StartDate: testutil.Date(2026, 3, 1),
				EndDate:   testutil.Date(2026, 1, 1),
			},
			wantErr: ierr.IsValidation,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			resp, err := s.service.CreateBillingPeriod(s.GetContext(), tt.req)
			if tt.wantErr != nil {
				s.Require().Error(err)
				s.True(tt.wantErr(err), ierr.Kind(err))
				return
			}
			s.Require().NoError(err)
			s.True(resp.IsBillingEnabled)
		})
	}

	s.NoError(s.service.ValidateBillingPeriods(s.GetContext()))
}

func (s *PeriodServiceSuite) TestListBillingPeriods_SortedByStart() {
	_, err := s.service.CreateBillingPeriod(s.GetContext(), dto.CreateBillingPeriodRequest{
		Name:      "2024-Q4",
		StartDate: testutil.Date(2024, 10, 1),
		EndDate:   testutil.Date(2024, 12, 31),
	})
	s.Require().NoError(err)

	resp, err := s.service.ListBillingPeriods(s.GetContext())
	s.Require().NoError(err)
	s.Equal([]string{"2024-Q4", "2025-Q1", "2025-Q2"}, lo.Map(resp.Items, func(p *dto.BillingPeriodResponse, _ int) string {
		return p.Name
	}))
}

func (s *PeriodServiceSuite) TestValidateBillingPeriods_DetectsStoredOverlap() {
	s.Require().NoError(s.GetStores().PeriodRepo.Create(s.GetContext(), &period.BillingPeriod{
		ID:        "bp_overlap",
		Name:      "2025-May",
		StartDate: testutil.Date(2025, 5, 1),
		EndDate:   testutil.Date(2025, 5, 31),
		BaseModel: s.data.q2.BaseModel,
	}))

	err := s.service.ValidateBillingPeriods(s.GetContext())
	s.Require().Error(err)
	s.True(ierr.IsDataIntegrity(err))
}

func (s *PeriodServiceSuite) TestPricingHistory() {
	_, err := s.pricing.CreatePricing(s.GetContext(), dto.CreatePricingRequest{
		ServiceID:            s.data.water.ID,
		EffectiveDate:        testutil.Date(2025, 5, 1),
		PricePerUnit:         dec("48"),
		FixedFeePerHousehold: dec("171.43"),
	})
	s.Require().NoError(err)

	_, err = s.pricing.CreatePricing(s.GetContext(), dto.CreatePricingRequest{
		ServiceID:     s.data.water.ID,
		EffectiveDate: testutil.Date(2025, 5, 1),
		PricePerUnit:  dec("50"),
	})
	s.True(ierr.IsAlreadyExists(err))

	_, err = s.pricing.CreatePricing(s.GetContext(), dto.CreatePricingRequest{
		ServiceID:     "svc_missing",
		EffectiveDate: testutil.Date(2025, 5, 1),
	})
	s.True(ierr.IsNotFound(err))

	tests := []struct {
		month time.Month
		price string
	}{
		{month: time.April, price: "45.50"},
		{month: time.May, price: "48"},
		{month: time.June, price: "48"},
	}
	for _, tt := range tests {
		resp, err := s.pricing.ResolvePricing(s.GetContext(), s.data.water.ID, testutil.Date(2025, tt.month, 15))
		s.Require().NoError(err)
		s.True(resp.PricePerUnit.Equal(dec(tt.price)), tt.month.String())
	}

	_, err = s.pricing.ResolvePricing(s.GetContext(), s.data.water.ID, testutil.Date(2024, 12, 31))
	s.True(ierr.IsMissingPricing(err))

	list, err := s.pricing.ListPricing(s.GetContext(), s.data.water.ID)
	s.Require().NoError(err)
	s.Equal(2, list.Pagination.Total)
	s.True(list.Items[0].EffectiveDate.Before(list.Items[1].EffectiveDate))
}
