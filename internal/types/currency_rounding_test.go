package types

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCurrencyRounding(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		expected string
	}{
		{name: "SEK_RoundHalfUp", amount: "1274.005", currency: "sek", expected: "1274.01"},
		{name: "SEK_RoundDown", amount: "171.4285714", currency: "SEK", expected: "171.43"},
		{name: "SEK_NegativeCredit", amount: "-91.005", currency: "sek", expected: "-91.01"},
		{name: "EUR_Standard", amount: "10.275", currency: "eur", expected: "10.28"},
		{name: "ISK_NoDecimals", amount: "1000.5", currency: "isk", expected: "1001"},
		{name: "KWD_ThreeDecimals", amount: "1.23456", currency: "kwd", expected: "1.235"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundToCurrencyPrecision(decimal.RequireFromString(tt.amount), tt.currency)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.expected)),
				"expected %s, got %s", tt.expected, got.String())
		})
	}
}

func TestQuarterOf(t *testing.T) {
	tests := []struct {
		date    time.Time
		year    int
		quarter int
	}{
		{time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 2024, 1},
		{time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), 2024, 1},
		{time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), 2024, 2},
		{time.Date(2024, time.September, 30, 0, 0, 0, 0, time.UTC), 2024, 3},
		{time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC), 2024, 4},
	}
	for _, tt := range tests {
		year, quarter := QuarterOf(tt.date)
		assert.Equal(t, tt.year, year)
		assert.Equal(t, tt.quarter, quarter, tt.date.String())
	}
}

func TestAddMonthsClamped(t *testing.T) {
	assert.Equal(t,
		time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		AddMonthsClamped(time.Date(2024, time.October, 31, 0, 0, 0, 0, time.UTC), 4))
	assert.Equal(t,
		time.Date(2024, time.August, 15, 0, 0, 0, 0, time.UTC),
		AddMonthsClamped(time.Date(2024, time.April, 15, 0, 0, 0, 0, time.UTC), 4))
	assert.Equal(t,
		time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		AddMonthsClamped(time.Date(2023, time.October, 31, 0, 0, 0, 0, time.UTC), 4))
}

func TestGenerateLockKey_Deterministic(t *testing.T) {
	a := GenerateLockKey(LockScopeReconciliation, map[string]interface{}{"service_id": "svc_1", "period_id": "bp_1"})
	b := GenerateLockKey(LockScopeReconciliation, map[string]interface{}{"period_id": "bp_1", "service_id": "svc_1"})
	assert.Equal(t, a, b)
	assert.Equal(t, "reconciliation:period_id=bp_1:service_id=svc_1", a)
}
