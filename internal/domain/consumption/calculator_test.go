package consumption

import (
	"testing"
	"time"

	"github.com/brfledger/utilitybilling/internal/domain/period"
	"github.com/brfledger/utilitybilling/internal/domain/reading"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func householdReading(periodID string, value int64) *reading.MeterReading {
	return &reading.MeterReading{
		MeterKind:       types.MeterKindHousehold,
		MeterID:         "hm_1",
		BillingPeriodID: periodID,
		Reading:         decimal.NewFromInt(value),
	}
}

func TestCalculate_Derived(t *testing.T) {
	c, err := Calculate(householdReading("q2", 130), householdReading("q1", 100), types.FirstReadingPolicyUnavailable)
	require.NoError(t, err)
	assert.True(t, c.Quantity.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, types.ConsumptionSourceDerived, c.Source)
	assert.True(t, c.PreviousReading.Equal(decimal.NewFromInt(100)))
}

func TestCalculate_MeterReplacementOverride(t *testing.T) {
	current := householdReading("q2", 0)
	current.ConsumptionOverride = lo.ToPtr(decimal.NewFromInt(54))

	c, err := Calculate(current, householdReading("q1", 812), types.FirstReadingPolicyUnavailable)
	require.NoError(t, err)
	assert.True(t, c.Quantity.Equal(decimal.NewFromInt(54)))
	assert.Equal(t, types.ConsumptionSourceOverride, c.Source)
}

func TestCalculate_NegativeDeltaIsDataError(t *testing.T) {
	_, err := Calculate(householdReading("q2", 90), householdReading("q1", 100), types.FirstReadingPolicyUnavailable)
	require.Error(t, err)
	assert.True(t, ierr.IsDataIntegrity(err))
}

func TestCalculate_FirstReadingPolicy(t *testing.T) {
	first := householdReading("q1", 412)

	_, err := Calculate(first, nil, types.FirstReadingPolicyUnavailable)
	require.Error(t, err)
	assert.True(t, ierr.IsMissingPrecedingPeriod(err))

	c, err := Calculate(first, nil, types.FirstReadingPolicyUseCurrentReading)
	require.NoError(t, err)
	assert.True(t, c.Quantity.Equal(decimal.NewFromInt(412)))
	assert.Equal(t, types.ConsumptionSourceInitial, c.Source)
	assert.Nil(t, c.PreviousReading)
}

func TestCalculate_MonotonicWhenNoOverride(t *testing.T) {
	values := []int64{0, 5, 5, 17, 300, 301}
	for i := 1; i < len(values); i++ {
		c, err := Calculate(householdReading("cur", values[i]), householdReading("prev", values[i-1]), types.FirstReadingPolicyUnavailable)
		require.NoError(t, err)
		assert.False(t, c.Quantity.IsNegative())
		assert.True(t, c.Quantity.Equal(decimal.NewFromInt(values[i]-values[i-1])))
	}
}

func TestFindPrevious_SkipsGapsAndOrdersByPeriodStart(t *testing.T) {
	q := func(id string, month time.Month) *period.BillingPeriod {
		start := time.Date(2024, month, 1, 0, 0, 0, 0, time.UTC)
		return &period.BillingPeriod{ID: id, Name: id, StartDate: start, EndDate: start.AddDate(0, 3, 0)}
	}
	q1, q2, q3, q4 := q("q1", time.January), q("q2", time.April), q("q3", time.July), q("q4", time.October)
	periods := []*period.BillingPeriod{q4, q2, q3, q1}

	// no reading in q3: q4 diffs against q2
	history := []*reading.MeterReading{
		householdReading("q4", 160),
		householdReading("q1", 100),
		householdReading("q2", 120),
		householdReading("unknown", 150),
	}

	prev := FindPrevious(history, periods, q4)
	require.NotNil(t, prev)
	assert.Equal(t, "q2", prev.BillingPeriodID)

	assert.Nil(t, FindPrevious(history, periods, q1))

	c, err := ForPeriod(types.MeterKindHousehold, "hm_1", history, periods, q4, types.FirstReadingPolicyUnavailable)
	require.NoError(t, err)
	assert.True(t, c.Quantity.Equal(decimal.NewFromInt(40)))

	_, err = ForPeriod(types.MeterKindHousehold, "hm_1", history, periods, q3, types.FirstReadingPolicyUnavailable)
	assert.True(t, ierr.IsNotFound(err))
}
