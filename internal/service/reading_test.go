package service

import (
	"testing"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/domain/reading"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/testutil"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type ReadingServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        ReadingService
	consumption    ConsumptionService
	reconciliation ReconciliationService
	data           *cooperativeFixture
}

func TestReadingService(t *testing.T) {
	suite.Run(t, new(ReadingServiceSuite))
}

func (s *ReadingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestParams(&s.BaseServiceTestSuite, newTestConfig(s.GetConfig()))
	s.service = NewReadingService(params)
	s.consumption = NewConsumptionService(params)
	s.reconciliation = NewReconciliationService(params)
	s.data = seedCooperative(&s.BaseServiceTestSuite)
}

func (s *ReadingServiceSuite) householdReading(number, value string) dto.RecordHouseholdReadingRequest {
	return dto.RecordHouseholdReadingRequest{
		HouseholdNumber: number,
		ServiceID:       s.data.water.ID,
		PeriodName:      s.data.q2.Name,
		Reading:         dec(value),
		ReadingDate:     testutil.Date(2025, 7, 1),
	}
}

func (s *ReadingServiceSuite) TestRecordHouseholdReading_ReplacesExisting() {
	resp, err := s.service.RecordHouseholdReading(s.GetContext(), s.householdReading("1101", "142"))
	s.Require().NoError(err)
	s.Equal(s.data.meterA.ID, resp.MeterID)
	s.Equal(s.data.q2.ID, resp.BillingPeriodID)
	s.Equal(types.MeterKindHousehold, resp.MeterKind)

	stored, err := s.GetStores().ReadingRepo.Get(s.GetContext(), reading.Key{
		MeterKind:       types.MeterKindHousehold,
		MeterID:         s.data.meterA.ID,
		BillingPeriodID: s.data.q2.ID,
	})
	s.Require().NoError(err)
	s.True(stored.Reading.Equal(dec("142")))

	history, err := s.service.ListMeterReadings(s.GetContext(), types.MeterKindHousehold, s.data.meterA.ID)
	s.Require().NoError(err)
	s.Len(history, 2)
}

func (s *ReadingServiceSuite) TestRecordHouseholdReading_Rejects() {
	tests := []struct {
		name  string
		req   dto.RecordHouseholdReadingRequest
		check func(error) bool
	}{
		{
			name:  "unknown household",
			req:   s.householdReading("9999", "10"),
			check: ierr.IsNotFound,
		},
		{
			name:  "negative reading",
			req:   s.householdReading("1101", "-1"),
			check: ierr.IsValidation,
		},
		{
			name: "unknown period",
			req: func() dto.RecordHouseholdReadingRequest {
				r := s.householdReading("1101", "10")
				r.PeriodName = "2030-Q1"
				return r
			}(),
			check: ierr.IsNotFound,
		},
		{
			name: "household without meter for the service",
			req: func() dto.RecordHouseholdReadingRequest {
				r := s.householdReading("1101", "10")
				r.ServiceID = s.data.membership.ID
				return r
			}(),
			check: ierr.IsNotFound,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.RecordHouseholdReading(s.GetContext(), tt.req)
			s.Require().Error(err)
			s.True(tt.check(err), ierr.Kind(err))
		})
	}
}

func (s *ReadingServiceSuite) TestRecordMainReading() {
	override := dec("60")
	resp, err := s.service.RecordMainReading(s.GetContext(), dto.RecordMainReadingRequest{
		MainMeterID:         s.data.mainMeter.ID,
		PeriodName:          s.data.q2.Name,
		Reading:             dec("12"),
		ReadingDate:         testutil.Date(2025, 7, 1),
		ConsumptionOverride: &override,
	})
	s.Require().NoError(err)
	s.Equal(types.MeterKindMain, resp.MeterKind)
	s.True(resp.HasOverride())

	q, err := s.consumption.GetMeterConsumption(s.GetContext(), s.data.q2.ID, types.MeterKindMain, s.data.mainMeter.ID)
	s.Require().NoError(err)
	s.True(q.Quantity.Equal(dec("60")))
	s.Equal(types.ConsumptionSourceOverride, q.Source)
}

func (s *ReadingServiceSuite) TestImportReadings_RowErrorsDoNotRejectBatch() {
	resp, err := s.service.ImportReadings(s.GetContext(), dto.ImportReadingsRequest{
		Readings: []dto.RecordHouseholdReadingRequest{
			s.householdReading("1101", "131"),
			s.householdReading("7777", "10"),
			s.householdReading("1102", "231"),
		},
	})
	s.Require().NoError(err)
	s.Equal(2, resp.Imported)
	s.Require().Len(resp.Errors, 1)
	s.Equal(2, resp.Errors[0].Row)
	s.Equal("7777", resp.Errors[0].HouseholdNumber)
	s.Equal("not_found", resp.Errors[0].Kind)

	_, err = s.service.ImportReadings(s.GetContext(), dto.ImportReadingsRequest{})
	s.True(ierr.IsValidation(err))
}

func (s *ReadingServiceSuite) TestGetServiceConsumption() {
	resp, err := s.consumption.GetServiceConsumption(s.GetContext(), s.data.q2.ID, s.data.water.ID)
	s.Require().NoError(err)
	s.Empty(resp.Errors)
	s.Require().Len(resp.Items, 2)

	a, ok := lo.Find(resp.Items, func(c *dto.HouseholdConsumption) bool { return c.HouseholdID == s.data.householdA.ID })
	s.Require().True(ok)
	s.True(a.Quantity.Equal(dec("30")))
	s.True(a.PreviousReading.Equal(dec("100")))

	_, err = s.consumption.GetServiceConsumption(s.GetContext(), s.data.q2.ID, s.data.membership.ID)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *ReadingServiceSuite) TestGetMeterConsumption_FirstPeriod() {
	_, err := s.consumption.GetMeterConsumption(s.GetContext(), s.data.q1.ID, types.MeterKindHousehold, s.data.meterA.ID)
	s.Require().Error(err)
	s.True(ierr.IsMissingPrecedingPeriod(err))
}

func (s *ReadingServiceSuite) TestReconcile() {
	resp, err := s.reconciliation.Reconcile(s.GetContext(), dto.ReconcileRequest{
		BillingPeriodID: s.data.q2.ID,
		ServiceID:       s.data.water.ID,
	})
	s.Require().NoError(err)
	s.False(resp.Skipped)
	s.True(resp.Difference.Equal(dec("-4")))
	s.Equal(2, resp.ActiveHouseholdCount)

	stored, err := s.reconciliation.GetReconciliation(s.GetContext(), s.data.water.ID, s.data.q2.ID)
	s.Require().NoError(err)
	s.Equal(resp.ID, stored.ID)

	// recomputation replaces the record
	addReading(&s.BaseServiceTestSuite, types.MeterKindMain, s.data.mainMeter.ID, s.data.q2, "1070", nil)
	_, err = s.reconciliation.Reconcile(s.GetContext(), dto.ReconcileRequest{
		BillingPeriodID: s.data.q2.ID,
		ServiceID:       s.data.water.ID,
	})
	s.Require().NoError(err)

	list, err := s.reconciliation.ListReconciliations(s.GetContext(), s.data.q2.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.True(list[0].Difference.Equal(dec("10")))
	s.True(list[0].AdjustmentPerHousehold.Equal(dec("5")))
}

func (s *ReadingServiceSuite) TestReconcile_Skips() {
	resp, err := s.reconciliation.Reconcile(s.GetContext(), dto.ReconcileRequest{
		BillingPeriodID: s.data.q1.ID,
		ServiceID:       s.data.water.ID,
	})
	s.Require().NoError(err)
	s.True(resp.Skipped)
	s.Equal(skipNoPrecedingPeriod, resp.SkipReason)
	s.Nil(resp.Reconciliation)

	_, err = s.reconciliation.Reconcile(s.GetContext(), dto.ReconcileRequest{
		BillingPeriodID: s.data.q2.ID,
		ServiceID:       s.data.membership.ID,
	})
	s.True(ierr.IsInvalidOperation(err))
}

func (s *ReadingServiceSuite) TestReconcile_SkipArchivesPreviousRecord() {
	req := dto.ReconcileRequest{BillingPeriodID: s.data.q2.ID, ServiceID: s.data.water.ID}
	_, err := s.reconciliation.Reconcile(s.GetContext(), req)
	s.Require().NoError(err)

	addReading(&s.BaseServiceTestSuite, types.MeterKindHousehold, s.data.meterA.ID, s.data.q2, "90", nil)

	resp, err := s.reconciliation.Reconcile(s.GetContext(), req)
	s.Require().NoError(err)
	s.True(resp.Skipped)
	s.Equal(skipHouseholdIncomplete, resp.SkipReason)

	_, err = s.reconciliation.GetReconciliation(s.GetContext(), s.data.water.ID, s.data.q2.ID)
	s.True(ierr.IsNotFound(err))
}
