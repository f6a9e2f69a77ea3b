package household

import (
	"testing"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHousehold(number string, ratio string, status types.HouseholdStatus) *Household {
	return &Household{
		ID:              "hh_" + number,
		HouseholdNumber: number,
		ShareRatio:      decimal.RequireFromString(ratio),
		HouseholdStatus: status,
	}
}

func TestValidateShareRatios(t *testing.T) {
	t.Run("sums to one", func(t *testing.T) {
		households := []*Household{
			newHousehold("1", "0.25", types.HouseholdStatusActive),
			newHousehold("2", "0.75", types.HouseholdStatusActive),
			newHousehold("3", "0.40", types.HouseholdStatusInactive),
		}
		assert.NoError(t, ValidateShareRatios(households))
	})

	t.Run("drift beyond tolerance", func(t *testing.T) {
		households := []*Household{
			newHousehold("1", "0.25", types.HouseholdStatusActive),
			newHousehold("2", "0.70", types.HouseholdStatusActive),
		}
		err := ValidateShareRatios(households)
		require.Error(t, err)
		assert.True(t, ierr.IsDataIntegrity(err))
	})

	t.Run("thirds within tolerance", func(t *testing.T) {
		households := []*Household{
			newHousehold("1", "0.3333333", types.HouseholdStatusActive),
			newHousehold("2", "0.3333333", types.HouseholdStatusActive),
			newHousehold("3", "0.3333334", types.HouseholdStatusActive),
		}
		assert.NoError(t, ValidateShareRatios(households))
	})
}

func TestHousehold_Deactivate(t *testing.T) {
	h := newHousehold("7", "0.1", types.HouseholdStatusActive)
	require.NoError(t, h.Deactivate())
	assert.False(t, h.IsActive())

	err := h.Deactivate()
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidOperation(err))
}
