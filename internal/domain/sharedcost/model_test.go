package sharedcost

import (
	"testing"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareFor(t *testing.T) {
	costs := []*SharedCost{
		{Year: 2024, Quarter: 3, Description: "Stairwell cleaning", TotalAmount: decimal.NewFromInt(2800)},
		{Year: 2024, Quarter: 3, Description: "Roof inspection", TotalAmount: decimal.NewFromInt(1575)},
	}

	quarterly, err := ShareFor(costs, 14, 1, "sek")
	require.NoError(t, err)
	assert.True(t, quarterly.Equal(decimal.RequireFromString("312.5")))

	monthly, err := ShareFor(costs, 14, 3, "sek")
	require.NoError(t, err)
	assert.True(t, monthly.Equal(decimal.RequireFromString("104.17")))

	none, err := ShareFor(nil, 0, 1, "sek")
	require.NoError(t, err)
	assert.True(t, none.IsZero())
}

func TestShareFor_NoActiveHouseholds(t *testing.T) {
	_, err := ShareFor([]*SharedCost{{TotalAmount: decimal.NewFromInt(10)}}, 0, 1, "sek")
	assert.True(t, ierr.IsConfiguration(err))
}

func TestComputeShare(t *testing.T) {
	c := &SharedCost{Year: 2024, Quarter: 1, TotalAmount: decimal.NewFromInt(1400)}
	require.NoError(t, c.ComputeShare(14))
	assert.True(t, c.PerHouseholdShare.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 14, c.ActiveHouseholdCount)

	assert.True(t, ierr.IsConfiguration(c.ComputeShare(0)))
}
