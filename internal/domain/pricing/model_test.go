package pricing

import (
	"testing"
	"time"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePricing(t *testing.T) {
	t1 := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	t3 := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	history := []*UtilityPricing{
		{ID: "pr_3", ServiceID: "svc_water", EffectiveDate: t3, PricePerUnit: decimal.NewFromFloat(52)},
		{ID: "pr_1", ServiceID: "svc_water", EffectiveDate: t1, PricePerUnit: decimal.NewFromFloat(40)},
		{ID: "pr_2", ServiceID: "svc_water", EffectiveDate: t2, PricePerUnit: decimal.NewFromFloat(45.5)},
	}

	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{"exactly on T2", t2, "pr_2"},
		{"between T2 and T3", time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC), "pr_2"},
		{"just before T3", t3.Add(-time.Nanosecond), "pr_2"},
		{"on T3", t3, "pr_3"},
		{"after T3", t3.AddDate(1, 0, 0), "pr_3"},
		{"between T1 and T2", time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC), "pr_1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePricing(history, tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestResolvePricing_Missing(t *testing.T) {
	history := []*UtilityPricing{
		{ID: "pr_1", ServiceID: "svc_water", EffectiveDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}

	_, err := ResolvePricing(history, time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, ierr.IsMissingPricing(err))

	_, err = ResolvePricing(nil, time.Now())
	assert.True(t, ierr.IsMissingPricing(err))
}
