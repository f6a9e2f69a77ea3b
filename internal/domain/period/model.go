package period

import (
	"sort"
	"time"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
)

// BillingPeriod is a fixed interval over which readings are taken and bills computed.
// Periods never overlap and are totally ordered by StartDate.
type BillingPeriod struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           time.Time  `json:"end_date"`
	ReadingDeadline   *time.Time `json:"reading_deadline,omitempty"`
	IsOfficialBilling bool       `json:"is_official_billing"`
	IsBillingEnabled  bool       `json:"is_billing_enabled"`
	types.BaseModel
}

func (p *BillingPeriod) Validate() error {
	if p.Name == "" {
		return ierr.NewError("period name is required").
			WithHint("Please provide a billing period name").
			Mark(ierr.ErrValidation)
	}
	if !p.EndDate.After(p.StartDate) {
		return ierr.NewError("period end must be after start").
			WithHintf("Billing period %s ends before it starts", p.Name).
			WithReportableDetails(map[string]any{
				"start_date": p.StartDate,
				"end_date":   p.EndDate,
			}).
			Mark(ierr.ErrValidation)
	}
	if p.ReadingDeadline != nil && p.ReadingDeadline.Before(p.StartDate) {
		return ierr.NewError("reading deadline before period start").
			WithHintf("Reading deadline of %s must not be before the period starts", p.Name).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Overlaps reports whether the two half-open intervals [start, end) intersect
func (p *BillingPeriod) Overlaps(other *BillingPeriod) bool {
	return p.StartDate.Before(other.EndDate) && other.StartDate.Before(p.EndDate)
}

// BillingDate is the date pricing is resolved at
func (p *BillingPeriod) BillingDate(anchor types.PricingDateAnchor) time.Time {
	if anchor == types.PricingDateAnchorPeriodStart {
		return p.StartDate
	}
	return p.EndDate
}

// DueDate is the reading deadline (or the end date when none is set) plus offsetMonths
func (p *BillingPeriod) DueDate(offsetMonths int) time.Time {
	base := p.EndDate
	if p.ReadingDeadline != nil {
		base = *p.ReadingDeadline
	}
	return types.AddMonthsClamped(base, offsetMonths)
}

// Quarter returns the calendar year and quarter the period starts in
func (p *BillingPeriod) Quarter() (int, int) {
	return types.QuarterOf(p.StartDate)
}

// SortByStart returns a copy of periods ordered by StartDate
func SortByStart(periods []*BillingPeriod) []*BillingPeriod {
	sorted := make([]*BillingPeriod, len(periods))
	copy(sorted, periods)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDate.Before(sorted[j].StartDate)
	})
	return sorted
}

// ValidatePeriods returns an ErrDataIntegrity error naming the first pair of overlapping periods
func ValidatePeriods(periods []*BillingPeriod) error {
	sorted := SortByStart(periods)
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.Overlaps(cur) {
			return ierr.NewError("billing periods overlap").
				WithHintf("Billing periods %s and %s overlap", prev.Name, cur.Name).
				WithReportableDetails(map[string]any{
					"period_ids": []string{prev.ID, cur.ID},
				}).
				Mark(ierr.ErrDataIntegrity)
		}
	}
	return nil
}

// CheckOverlap returns an ErrDataIntegrity error if candidate overlaps any existing period other than itself
func CheckOverlap(existing []*BillingPeriod, candidate *BillingPeriod) error {
	for _, p := range existing {
		if p.ID == candidate.ID {
			continue
		}
		if p.Overlaps(candidate) {
			return ierr.NewError("billing period overlaps an existing period").
				WithHintf("Billing period %s overlaps %s", candidate.Name, p.Name).
				WithReportableDetails(map[string]any{
					"period_id":             candidate.ID,
					"overlapping_period_id": p.ID,
				}).
				Mark(ierr.ErrDataIntegrity)
		}
	}
	return nil
}

// Preceding returns the period immediately before current by start date, or nil
func Preceding(periods []*BillingPeriod, current *BillingPeriod) *BillingPeriod {
	var prev *BillingPeriod
	for _, p := range periods {
		if !p.StartDate.Before(current.StartDate) {
			continue
		}
		if prev == nil || p.StartDate.After(prev.StartDate) {
			prev = p
		}
	}
	return prev
}

// CountInQuarter returns how many periods start in the given calendar quarter
func CountInQuarter(periods []*BillingPeriod, year, quarter int) int {
	count := 0
	for _, p := range periods {
		y, q := p.Quarter()
		if y == year && q == quarter {
			count++
		}
	}
	return count
}
