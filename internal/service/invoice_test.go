package service

import (
	"context"
	"testing"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/domain/invoice"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/publisher"
	"github.com/brfledger/utilitybilling/internal/testutil"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

// payingInvoiceRepo settles an invoice right after a listing, like a payment committed by
// another session between the overdue sweep's read and its write
type payingInvoiceRepo struct {
	invoice.Repository
	payInvoiceID string
}

func (r *payingInvoiceRepo) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	items, err := r.Repository.List(ctx, filter)
	if err != nil || r.payInvoiceID == "" {
		return items, err
	}

	inv, err := r.Repository.Get(ctx, r.payInvoiceID)
	if err != nil {
		return nil, err
	}
	inv.PaidAmount = inv.TotalAmount
	inv.InvoiceStatus = types.InvoiceStatusPaid
	inv.PaidAt = lo.ToPtr(inv.DueDate)
	return items, r.Repository.Upsert(ctx, inv)
}

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service InvoiceService
	data    *cooperativeFixture
	invoice *invoice.Invoice
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestParams(&s.BaseServiceTestSuite, newTestConfig(s.GetConfig()))
	s.service = NewInvoiceService(params)
	s.data = seedCooperative(&s.BaseServiceTestSuite)

	_, err := NewBillingService(params).GenerateBills(s.GetContext(), s.data.q2.ID)
	s.Require().NoError(err)

	s.invoice, err = s.GetStores().InvoiceRepo.GetByHouseholdAndPeriod(s.GetContext(), s.data.householdA.ID, s.data.q2.ID)
	s.Require().NoError(err)
	s.GetPublisher().Clear()
}

func (s *InvoiceServiceSuite) TestGetInvoice() {
	resp, err := s.service.GetInvoice(s.GetContext(), s.invoice.ID)
	s.Require().NoError(err)
	s.Len(resp.LineItems, 2)
	s.Empty(resp.Payments)
	s.True(resp.AmountDue.Equal(dec("2195.43")))

	_, err = s.service.GetInvoice(s.GetContext(), "")
	s.True(ierr.IsValidation(err))

	_, err = s.service.GetInvoice(s.GetContext(), "inv_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestListInvoices() {
	filter := types.NewInvoiceFilter()
	filter.HouseholdID = s.data.householdB.ID

	resp, err := s.service.ListInvoices(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(resp.Items, 1)
	s.Equal(1, resp.Pagination.Total)
	s.Equal(s.data.householdB.ID, resp.Items[0].HouseholdID)

	all, err := s.service.ListInvoices(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Equal(2, all.Pagination.Total)
}

func (s *InvoiceServiceSuite) TestRecordPayment_Partial() {
	resp, err := s.service.RecordPayment(s.GetContext(), s.invoice.ID, dto.RecordPaymentRequest{
		Amount:    dec("1000"),
		Reference: "OCR 1101",
	})
	s.Require().NoError(err)

	s.Equal(types.InvoiceStatusPending, resp.InvoiceStatus)
	s.True(resp.PaidAmount.Equal(dec("1000")))
	s.True(resp.AmountDue.Equal(dec("1195.43")))
	s.Require().Len(resp.Payments, 1)
	s.Equal("OCR 1101", resp.Payments[0].Reference)
	s.Empty(s.GetPublisher().EventsNamed(publisher.EventInvoicePaid))
}

func (s *InvoiceServiceSuite) TestRecordPayment_CoversTotal() {
	_, err := s.service.RecordPayment(s.GetContext(), s.invoice.ID, dto.RecordPaymentRequest{Amount: dec("1000")})
	s.Require().NoError(err)

	resp, err := s.service.RecordPayment(s.GetContext(), s.invoice.ID, dto.RecordPaymentRequest{Amount: dec("1195.43")})
	s.Require().NoError(err)

	s.Equal(types.InvoiceStatusPaid, resp.InvoiceStatus)
	s.NotNil(resp.PaidAt)
	s.True(resp.AmountDue.IsZero())
	s.Len(resp.Payments, 2)
	s.Len(s.GetPublisher().EventsNamed(publisher.EventInvoicePaid), 1)

	_, err = s.service.RecordPayment(s.GetContext(), s.invoice.ID, dto.RecordPaymentRequest{Amount: dec("1")})
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))

	payments, err := s.GetStores().PaymentRepo.ListByInvoice(s.GetContext(), s.invoice.ID)
	s.Require().NoError(err)
	s.Len(payments, 2)
}

func (s *InvoiceServiceSuite) TestRecordPayment_Validation() {
	_, err := s.service.RecordPayment(s.GetContext(), s.invoice.ID, dto.RecordPaymentRequest{Amount: dec("0")})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))

	_, err = s.service.RecordPayment(s.GetContext(), "inv_missing", dto.RecordPaymentRequest{Amount: dec("10")})
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestMarkOverdue() {
	_, err := s.service.RecordPayment(s.GetContext(), s.invoice.ID, dto.RecordPaymentRequest{Amount: dec("2195.43")})
	s.Require().NoError(err)

	resp, err := s.service.MarkOverdue(s.GetContext(), testutil.Date(2025, 11, 15))
	s.Require().NoError(err)
	s.Equal(0, resp.Updated)

	resp, err = s.service.MarkOverdue(s.GetContext(), testutil.Date(2025, 11, 16))
	s.Require().NoError(err)
	s.Equal(1, resp.Updated)

	overdue, err := s.GetStores().InvoiceRepo.GetByHouseholdAndPeriod(s.GetContext(), s.data.householdB.ID, s.data.q2.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusOverdue, overdue.InvoiceStatus)

	paid, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), s.invoice.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, paid.InvoiceStatus)

	s.Len(s.GetPublisher().EventsNamed(publisher.EventInvoiceOverdue), 1)

	// overdue invoices can still be paid
	resp2, err := s.service.RecordPayment(s.GetContext(), overdue.ID, dto.RecordPaymentRequest{Amount: overdue.TotalAmount})
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, resp2.InvoiceStatus)
}

func (s *InvoiceServiceSuite) TestRecordPayment_WaitsForInvoiceLock() {
	key := invoiceLockKey(s.data.householdA.ID, s.data.q2.ID)
	s.GetDB().HoldLock(key)

	_, err := s.service.RecordPayment(s.GetContext(), s.invoice.ID, dto.RecordPaymentRequest{Amount: dec("100")})
	s.Require().Error(err)
	s.True(ierr.IsConcurrencyConflict(err))

	payments, err := s.GetStores().PaymentRepo.ListByInvoice(s.GetContext(), s.invoice.ID)
	s.Require().NoError(err)
	s.Empty(payments)

	s.GetDB().ReleaseLock(key)
	resp, err := s.service.RecordPayment(s.GetContext(), s.invoice.ID, dto.RecordPaymentRequest{Amount: dec("100")})
	s.Require().NoError(err)
	s.True(resp.PaidAmount.Equal(dec("100")))
}

func (s *InvoiceServiceSuite) TestMarkOverdue_WaitsForInvoiceLock() {
	s.GetDB().HoldLock(invoiceLockKey(s.data.householdA.ID, s.data.q2.ID))

	_, err := s.service.MarkOverdue(s.GetContext(), testutil.Date(2025, 11, 16))
	s.Require().Error(err)
	s.True(ierr.IsConcurrencyConflict(err))

	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), s.invoice.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPending, inv.InvoiceStatus)
}

func (s *InvoiceServiceSuite) TestMarkOverdue_KeepsPaymentCommittedAfterListing() {
	params := newTestParams(&s.BaseServiceTestSuite, newTestConfig(s.GetConfig()))
	params.InvoiceRepo = &payingInvoiceRepo{Repository: params.InvoiceRepo, payInvoiceID: s.invoice.ID}
	svc := NewInvoiceService(params)

	resp, err := svc.MarkOverdue(s.GetContext(), testutil.Date(2025, 11, 16))
	s.Require().NoError(err)
	s.Equal(1, resp.Updated)

	paid, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), s.invoice.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, paid.InvoiceStatus)
	s.True(paid.PaidAmount.Equal(paid.TotalAmount))

	overdue, err := s.GetStores().InvoiceRepo.GetByHouseholdAndPeriod(s.GetContext(), s.data.householdB.ID, s.data.q2.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusOverdue, overdue.InvoiceStatus)
}
