package sharedcost

import (
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/shopspring/decimal"
)

// SharedCost is a cooperative-wide expense for a calendar quarter, split across active households
type SharedCost struct {
	ID          string          `json:"id"`
	Year        int             `json:"year"`
	Quarter     int             `json:"quarter"`
	Description string          `json:"description"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	// PerHouseholdShare is TotalAmount / ActiveHouseholdCount at the time it was computed
	PerHouseholdShare    decimal.Decimal `json:"per_household_share"`
	ActiveHouseholdCount int             `json:"active_household_count"`
	types.BaseModel
}

func (c *SharedCost) Validate() error {
	if c.Quarter < 1 || c.Quarter > 4 {
		return ierr.NewError("quarter must be between 1 and 4").
			WithHint("Please provide a quarter between 1 and 4").
			WithReportableDetails(map[string]any{"quarter": c.Quarter}).
			Mark(ierr.ErrValidation)
	}
	if c.Year < 1900 {
		return ierr.NewError("invalid year").
			WithHint("Please provide a valid year").
			Mark(ierr.ErrValidation)
	}
	if c.TotalAmount.IsNegative() {
		return ierr.NewError("shared cost must not be negative").
			WithHint("Total amount must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ComputeShare sets PerHouseholdShare for the given active household count
func (c *SharedCost) ComputeShare(activeHouseholdCount int) error {
	if activeHouseholdCount <= 0 {
		return ierr.NewError("no active households").
			WithHint("Shared costs need at least one active household to be split").
			WithReportableDetails(map[string]any{
				"year":    c.Year,
				"quarter": c.Quarter,
			}).
			Mark(ierr.ErrConfiguration)
	}
	c.ActiveHouseholdCount = activeHouseholdCount
	c.PerHouseholdShare = c.TotalAmount.Div(decimal.NewFromInt(int64(activeHouseholdCount)))
	return nil
}

// ShareFor returns one household's share of the quarter's costs for a single billing period.
// The quarter's per-household share is pro-rated over the periods starting in that quarter.
func ShareFor(costs []*SharedCost, activeHouseholdCount, periodsInQuarter int, currency string) (decimal.Decimal, error) {
	if len(costs) == 0 {
		return decimal.Zero, nil
	}
	if activeHouseholdCount <= 0 {
		return decimal.Zero, ierr.NewError("no active households").
			WithHint("Shared costs need at least one active household to be split").
			Mark(ierr.ErrConfiguration)
	}
	if periodsInQuarter <= 0 {
		periodsInQuarter = 1
	}

	total := decimal.Zero
	for _, c := range costs {
		total = total.Add(c.TotalAmount)
	}

	share := total.
		Div(decimal.NewFromInt(int64(activeHouseholdCount))).
		Div(decimal.NewFromInt(int64(periodsInQuarter)))
	return types.RoundToCurrencyPrecision(share, currency), nil
}
