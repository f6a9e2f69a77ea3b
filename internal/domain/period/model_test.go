package period

import (
	"testing"
	"time"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func quarter(id string, y int, q int) *BillingPeriod {
	start := date(y, time.Month((q-1)*3+1), 1)
	return &BillingPeriod{ID: id, Name: id, StartDate: start, EndDate: start.AddDate(0, 3, 0)}
}

func TestPreceding(t *testing.T) {
	q1 := quarter("2024Q1", 2024, 1)
	q2 := quarter("2024Q2", 2024, 2)
	q3 := quarter("2024Q3", 2024, 3)
	periods := []*BillingPeriod{q3, q1, q2}

	assert.Equal(t, q2, Preceding(periods, q3))
	assert.Equal(t, q1, Preceding(periods, q2))
	assert.Nil(t, Preceding(periods, q1))
}

func TestSortByStart(t *testing.T) {
	q1 := quarter("a", 2024, 1)
	q2 := quarter("b", 2024, 2)
	sorted := SortByStart([]*BillingPeriod{q2, q1})
	assert.Equal(t, []string{"a", "b"}, lo.Map(sorted, func(p *BillingPeriod, _ int) string { return p.ID }))
}

func TestValidatePeriods_Overlap(t *testing.T) {
	q1 := quarter("2024Q1", 2024, 1)
	q2 := quarter("2024Q2", 2024, 2)
	require.NoError(t, ValidatePeriods([]*BillingPeriod{q1, q2}))

	overlapping := &BillingPeriod{ID: "x", Name: "x", StartDate: date(2024, time.March, 15), EndDate: date(2024, time.April, 15)}
	err := ValidatePeriods([]*BillingPeriod{q1, q2, overlapping})
	require.Error(t, err)
	assert.True(t, ierr.IsDataIntegrity(err))

	err = CheckOverlap([]*BillingPeriod{q1, q2}, overlapping)
	assert.True(t, ierr.IsDataIntegrity(err))
}

func TestDueDate(t *testing.T) {
	deadline := date(2024, time.October, 31)
	p := &BillingPeriod{StartDate: date(2024, time.July, 1), EndDate: date(2024, time.October, 1), ReadingDeadline: &deadline}
	assert.Equal(t, date(2025, time.February, 28), p.DueDate(4))

	p.ReadingDeadline = nil
	assert.Equal(t, date(2025, time.February, 1), p.DueDate(4))
}

func TestBillingDate(t *testing.T) {
	p := quarter("q", 2024, 2)
	assert.Equal(t, p.StartDate, p.BillingDate(types.PricingDateAnchorPeriodStart))
	assert.Equal(t, p.EndDate, p.BillingDate(types.PricingDateAnchorPeriodEnd))
}

func TestCountInQuarter(t *testing.T) {
	months := []*BillingPeriod{
		{ID: "jan", StartDate: date(2024, time.January, 1), EndDate: date(2024, time.February, 1)},
		{ID: "feb", StartDate: date(2024, time.February, 1), EndDate: date(2024, time.March, 1)},
		{ID: "mar", StartDate: date(2024, time.March, 1), EndDate: date(2024, time.April, 1)},
		{ID: "apr", StartDate: date(2024, time.April, 1), EndDate: date(2024, time.May, 1)},
	}
	assert.Equal(t, 3, CountInQuarter(months, 2024, 1))
	assert.Equal(t, 1, CountInQuarter(months, 2024, 2))
}
