package invoice

import (
	"testing"
	"time"

	"github.com/brfledger/utilitybilling/internal/domain/billing"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

var due = time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)

func line(serviceID string, category types.ServiceCategory, total string) *billing.UtilityBilling {
	return &billing.UtilityBilling{
		HouseholdID:      "hh_1",
		ServiceID:        serviceID,
		BillingPeriodID:  "bp_q3",
		Category:         category,
		TotalUtilityCost: d(total),
	}
}

func aggregate(t *testing.T, shared string, lines ...*billing.UtilityBilling) *Invoice {
	inv, err := Aggregate(AggregateInput{
		HouseholdID:     "hh_1",
		BillingPeriodID: "bp_q3",
		LineItems:       lines,
		SharedCosts:     d(shared),
		DueDate:         due,
		Currency:        "sek",
	})
	require.NoError(t, err)
	return inv
}

func TestAggregate_PartitionsByCategory(t *testing.T) {
	inv := aggregate(t, "312.50",
		line("svc_water", types.ServiceCategoryUtility, "1445.43"),
		line("svc_heat", types.ServiceCategoryUtility, "200.10"),
		line("svc_membership", types.ServiceCategoryMembership, "750"),
	)

	assert.True(t, inv.TotalUtilityCosts.Equal(d("1645.53")))
	assert.True(t, inv.MemberFee.Equal(d("750")))
	assert.True(t, inv.SharedCosts.Equal(d("312.50")))
	assert.True(t, inv.TotalAmount.Equal(d("2708.03")))
	assert.True(t, inv.TotalAmount.Equal(inv.TotalUtilityCosts.Add(inv.MemberFee).Add(inv.SharedCosts)))
	assert.Equal(t, types.InvoiceStatusPending, inv.InvoiceStatus)
	assert.Equal(t, due, inv.DueDate)
}

func TestAggregate_RejectsForeignLineItem(t *testing.T) {
	foreign := line("svc_water", types.ServiceCategoryUtility, "10")
	foreign.HouseholdID = "hh_2"

	_, err := Aggregate(AggregateInput{HouseholdID: "hh_1", BillingPeriodID: "bp_q3", LineItems: []*billing.UtilityBilling{foreign}})
	assert.True(t, ierr.IsValidation(err))
}

func TestRecordPayment_StateMachine(t *testing.T) {
	now := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	inv := aggregate(t, "0", line("svc_water", types.ServiceCategoryUtility, "1000"))

	paid, err := RecordPayment(inv, d("400"), now)
	require.NoError(t, err)
	assert.False(t, paid)
	assert.Equal(t, types.InvoiceStatusPending, inv.InvoiceStatus)

	assert.True(t, MarkOverdue(inv, due.AddDate(0, 0, 1)))
	assert.Equal(t, types.InvoiceStatusOverdue, inv.InvoiceStatus)

	paid, err = RecordPayment(inv, d("600"), due.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.True(t, paid)
	assert.Equal(t, types.InvoiceStatusPaid, inv.InvoiceStatus)
	require.NotNil(t, inv.PaidAt)

	_, err = RecordPayment(inv, d("1"), now)
	assert.True(t, ierr.IsInvalidOperation(err))
	assert.False(t, MarkOverdue(inv, due.AddDate(1, 0, 0)))
}

func TestMarkOverdue_NotBeforeDueDate(t *testing.T) {
	inv := aggregate(t, "0", line("svc_water", types.ServiceCategoryUtility, "10"))
	assert.False(t, MarkOverdue(inv, due))
	assert.Equal(t, types.InvoiceStatusPending, inv.InvoiceStatus)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(types.InvoiceStatusPending, types.InvoiceStatusPaid))
	assert.True(t, CanTransition(types.InvoiceStatusPending, types.InvoiceStatusOverdue))
	assert.True(t, CanTransition(types.InvoiceStatusOverdue, types.InvoiceStatusPaid))
	assert.False(t, CanTransition(types.InvoiceStatusPaid, types.InvoiceStatusPending))
	assert.False(t, CanTransition(types.InvoiceStatusPaid, types.InvoiceStatusOverdue))
	assert.False(t, CanTransition(types.InvoiceStatusOverdue, types.InvoiceStatusPending))
}

func TestApplyRecomputation_NeverRegressesPaid(t *testing.T) {
	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	existing := aggregate(t, "0", line("svc_water", types.ServiceCategoryUtility, "100"))
	existing.ID = "inv_1"
	_, err := RecordPayment(existing, d("100"), now)
	require.NoError(t, err)

	fresh := aggregate(t, "0", line("svc_water", types.ServiceCategoryUtility, "120"))
	res := ApplyRecomputation(existing, fresh, now)

	assert.Equal(t, "inv_1", res.Invoice.ID)
	assert.Equal(t, types.InvoiceStatusPaid, res.Invoice.InvoiceStatus)
	assert.True(t, res.Invoice.PaidAmount.Equal(d("100")))
	assert.True(t, res.Invoice.TotalAmount.Equal(d("120")))
	assert.True(t, res.PaidTotalChanged)
}

func TestApplyRecomputation_PaymentsCoverLowerTotal(t *testing.T) {
	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	existing := aggregate(t, "0", line("svc_water", types.ServiceCategoryUtility, "100"))
	existing.ID = "inv_1"
	_, err := RecordPayment(existing, d("90"), now)
	require.NoError(t, err)

	fresh := aggregate(t, "0", line("svc_water", types.ServiceCategoryUtility, "85"))
	res := ApplyRecomputation(existing, fresh, now)

	assert.True(t, res.BecamePaid)
	assert.Equal(t, types.InvoiceStatusPaid, res.Invoice.InvoiceStatus)
	assert.False(t, res.PaidTotalChanged)
}

func TestApplyRecomputation_NewInvoice(t *testing.T) {
	fresh := aggregate(t, "0")
	res := ApplyRecomputation(nil, fresh, time.Now())
	assert.Same(t, fresh, res.Invoice)
}
