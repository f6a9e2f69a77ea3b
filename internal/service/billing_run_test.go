package service

import (
	"context"
	"errors"
	"testing"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/config"
	"github.com/brfledger/utilitybilling/internal/domain/billing"
	"github.com/brfledger/utilitybilling/internal/domain/period"
	"github.com/brfledger/utilitybilling/internal/email"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/publisher"
	"github.com/brfledger/utilitybilling/internal/testutil"
	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type mockBillingService struct {
	mock.Mock
}

func (m *mockBillingService) GenerateBills(ctx context.Context, periodID string) (*dto.BatchReport, error) {
	args := m.Called(ctx, periodID)
	report, _ := args.Get(0).(*dto.BatchReport)
	return report, args.Error(1)
}

func (m *mockBillingService) ListLineItems(ctx context.Context, periodID string) ([]*billing.UtilityBilling, error) {
	args := m.Called(ctx, periodID)
	items, _ := args.Get(0).([]*billing.UtilityBilling)
	return items, args.Error(1)
}

type mockErrorReporter struct {
	mock.Mock
}

func (m *mockErrorReporter) CaptureExceptionWithContext(ctx context.Context, err error, tags map[string]string) {
	m.Called(ctx, err, tags)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyInvoice(ctx context.Context, n email.InvoiceNotification) error {
	return m.Called(ctx, n).Error(0)
}

type mockPeriodExporter struct {
	mock.Mock
}

func (m *mockPeriodExporter) ExportPeriod(ctx context.Context, p *period.BillingPeriod) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

type BillingRunServiceSuite struct {
	testutil.BaseServiceTestSuite
	config *config.Configuration
	params ServiceParams
	data   *cooperativeFixture
}

func TestBillingRunService(t *testing.T) {
	suite.Run(t, new(BillingRunServiceSuite))
}

func (s *BillingRunServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.config = newTestConfig(s.GetConfig())
	s.params = newTestParams(&s.BaseServiceTestSuite, s.config)
	s.data = seedCooperative(&s.BaseServiceTestSuite)
}

func (s *BillingRunServiceSuite) newService(billingService BillingService) BillingRunService {
	svc := NewBillingRunService(s.params, billingService)
	svc.(*billingRunService).newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, conflictRetries)
	}
	return svc
}

func (s *BillingRunServiceSuite) conflict() error {
	return ierr.NewError("lock already held").Mark(ierr.ErrConcurrencyConflict)
}

func (s *BillingRunServiceSuite) TestRun_PeriodsInStartOrder() {
	svc := s.newService(NewBillingService(s.params))

	resp, err := svc.Run(s.GetContext(), dto.BillingRunRequest{
		BillingPeriodIDs: []string{s.data.q2.ID, s.data.q1.ID},
	})
	s.Require().NoError(err)
	s.NotEmpty(resp.RunID)
	s.Require().Len(resp.Reports, 2)
	s.Equal(s.data.q1.ID, resp.Reports[0].BillingPeriodID)
	s.Equal(s.data.q2.ID, resp.Reports[1].BillingPeriodID)
	s.Equal(1, resp.Reports[1].Reconciliations)
	s.Len(s.GetPublisher().EventsNamed(publisher.EventBillingRunCompleted), 1)
}

func (s *BillingRunServiceSuite) TestRun_DisabledPeriodIsReported() {
	s.data.q1.IsBillingEnabled = false
	s.Require().NoError(s.GetStores().PeriodRepo.Update(s.GetContext(), s.data.q1))

	resp, err := s.newService(NewBillingService(s.params)).Run(s.GetContext(), dto.BillingRunRequest{
		BillingPeriodIDs: []string{s.data.q1.ID, s.data.q2.ID},
	})
	s.Require().NoError(err)
	s.Require().Len(resp.Reports, 2)
	s.Equal(0, resp.Reports[0].LineItems)
	s.Require().Len(resp.Reports[0].Warnings, 1)
	s.Equal("invalid_operation", resp.Reports[0].Warnings[0].Kind)
	s.Equal(4, resp.Reports[1].LineItems)
}

func (s *BillingRunServiceSuite) TestRun_CancelledBeforeFirstPeriod() {
	billingService := new(mockBillingService)

	resp, err := s.newService(billingService).Run(cancelledContext(s.GetContext()), dto.BillingRunRequest{
		BillingPeriodIDs: []string{s.data.q1.ID},
	})
	s.Require().Error(err)
	s.True(errors.Is(err, context.Canceled))
	s.Require().NotNil(resp)
	s.Empty(resp.Reports)
	billingService.AssertNotCalled(s.T(), "GenerateBills", mock.Anything, mock.Anything)
}

func (s *BillingRunServiceSuite) TestRun_RetriesConflicts() {
	billingService := new(mockBillingService)
	report := &dto.BatchReport{BillingPeriodID: s.data.q2.ID}
	billingService.On("GenerateBills", mock.Anything, s.data.q2.ID).Return(nil, s.conflict()).Twice()
	billingService.On("GenerateBills", mock.Anything, s.data.q2.ID).Return(report, nil).Once()

	resp, err := s.newService(billingService).Run(s.GetContext(), dto.BillingRunRequest{
		BillingPeriodIDs: []string{s.data.q2.ID},
	})
	s.Require().NoError(err)
	s.Equal([]*dto.BatchReport{report}, resp.Reports)
	billingService.AssertNumberOfCalls(s.T(), "GenerateBills", 3)
}

func (s *BillingRunServiceSuite) TestRun_GivesUpAfterRetries() {
	billingService := new(mockBillingService)
	billingService.On("GenerateBills", mock.Anything, s.data.q1.ID).Return(&dto.BatchReport{BillingPeriodID: s.data.q1.ID}, nil)
	billingService.On("GenerateBills", mock.Anything, s.data.q2.ID).Return(nil, s.conflict())

	resp, err := s.newService(billingService).Run(s.GetContext(), dto.BillingRunRequest{
		BillingPeriodIDs: []string{s.data.q1.ID, s.data.q2.ID},
	})
	s.Require().Error(err)
	s.True(ierr.IsConcurrencyConflict(err))
	s.Len(resp.Reports, 1)
	billingService.AssertNumberOfCalls(s.T(), "GenerateBills", 1+1+conflictRetries)
	s.Empty(s.GetPublisher().EventsNamed(publisher.EventBillingRunCompleted))
}

func (s *BillingRunServiceSuite) TestRun_FatalErrorIsNotRetried() {
	billingService := new(mockBillingService)
	fatal := ierr.NewError("no active households").Mark(ierr.ErrConfiguration)
	billingService.On("GenerateBills", mock.Anything, s.data.q2.ID).Return(nil, fatal)

	reporter := new(mockErrorReporter)
	reporter.On("CaptureExceptionWithContext", mock.Anything, fatal, mock.MatchedBy(func(tags map[string]string) bool {
		return tags["billing_period_id"] == s.data.q2.ID && tags["run_id"] != ""
	})).Return()
	s.params.ErrorReporter = reporter

	_, err := s.newService(billingService).Run(s.GetContext(), dto.BillingRunRequest{
		BillingPeriodIDs: []string{s.data.q2.ID},
	})
	s.Require().Error(err)
	s.True(ierr.IsConfiguration(err))
	billingService.AssertNumberOfCalls(s.T(), "GenerateBills", 1)
	reporter.AssertNumberOfCalls(s.T(), "CaptureExceptionWithContext", 1)
}

func (s *BillingRunServiceSuite) TestRun_ConflictIsNotReported() {
	billingService := new(mockBillingService)
	billingService.On("GenerateBills", mock.Anything, s.data.q2.ID).Return(nil, s.conflict())

	reporter := new(mockErrorReporter)
	s.params.ErrorReporter = reporter

	_, err := s.newService(billingService).Run(s.GetContext(), dto.BillingRunRequest{
		BillingPeriodIDs: []string{s.data.q2.ID},
	})
	s.Require().Error(err)
	reporter.AssertNotCalled(s.T(), "CaptureExceptionWithContext", mock.Anything, mock.Anything, mock.Anything)
}

func (s *BillingRunServiceSuite) TestRun_NotifiesAndExports() {
	s.config.Billing.NotifyOnInvoice = true
	s.config.Billing.ExportOnRun = true

	notifier := new(mockNotifier)
	notifier.On("NotifyInvoice", mock.Anything, mock.MatchedBy(func(n email.InvoiceNotification) bool {
		return n.HouseholdNumber == s.data.householdA.HouseholdNumber
	})).Return(nil)
	notifier.On("NotifyInvoice", mock.Anything, mock.MatchedBy(func(n email.InvoiceNotification) bool {
		return n.HouseholdNumber == s.data.householdB.HouseholdNumber
	})).Return(errors.New("no address"))

	exporter := new(mockPeriodExporter)
	exporter.On("ExportPeriod", mock.Anything, mock.MatchedBy(func(p *period.BillingPeriod) bool {
		return p.ID == s.data.q2.ID
	})).Return("s3://reports/2025-Q2/billing_report.csv", nil)

	s.params.EmailNotifier = notifier
	s.params.Exporter = exporter

	resp, err := s.newService(NewBillingService(s.params)).Run(s.GetContext(), dto.BillingRunRequest{
		BillingPeriodIDs: []string{s.data.q2.ID},
	})
	s.Require().NoError(err)
	s.Require().Len(resp.Reports, 1)

	report := resp.Reports[0]
	s.Equal("s3://reports/2025-Q2/billing_report.csv", report.ExportLocation)
	failed, ok := lo.Find(report.Warnings, func(w dto.RecordError) bool { return w.Kind == "notification" })
	s.Require().True(ok)
	s.Equal(s.data.householdB.ID, failed.HouseholdID)

	notifier.AssertNumberOfCalls(s.T(), "NotifyInvoice", 2)
	exporter.AssertExpectations(s.T())
}

func (s *BillingRunServiceSuite) TestRun_UnknownPeriod() {
	_, err := s.newService(new(mockBillingService)).Run(s.GetContext(), dto.BillingRunRequest{
		BillingPeriodIDs: []string{"bp_missing"},
	})
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))

	_, err = s.newService(new(mockBillingService)).Run(s.GetContext(), dto.BillingRunRequest{})
	s.True(ierr.IsValidation(err))
}
