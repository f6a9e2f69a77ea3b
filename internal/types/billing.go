package types

import (
	"time"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
)

// HouseholdStatus is the onboarding lifecycle of a household.
// Households with billing history are deactivated, never deleted.
type HouseholdStatus string

const (
	HouseholdStatusActive   HouseholdStatus = "active"
	HouseholdStatusInactive HouseholdStatus = "inactive"
)

// ServiceCategory decides which invoice bucket a service's line items land in
type ServiceCategory string

const (
	ServiceCategoryUtility    ServiceCategory = "utility"
	ServiceCategoryMembership ServiceCategory = "membership"
)

func (c ServiceCategory) Validate() error {
	switch c {
	case ServiceCategoryUtility, ServiceCategoryMembership:
		return nil
	}
	return ierr.NewError("invalid service category").
		WithHintf("Service category must be one of %s, %s", ServiceCategoryUtility, ServiceCategoryMembership).
		Mark(ierr.ErrValidation)
}

// MeterKind distinguishes municipal main meters from household sub-meters
type MeterKind string

const (
	MeterKindMain      MeterKind = "main"
	MeterKindHousehold MeterKind = "household"
)

// ConsumptionSource is the provenance of a consumption figure
type ConsumptionSource string

const (
	// ConsumptionSourceDerived is current minus previous reading
	ConsumptionSourceDerived ConsumptionSource = "derived"
	// ConsumptionSourceOverride was supplied with the reading, e.g. after a meter swap
	ConsumptionSourceOverride ConsumptionSource = "override"
	// ConsumptionSourceInitial is the first reading taken as the full consumption
	ConsumptionSourceInitial ConsumptionSource = "initial"
	// ConsumptionSourceFlat is used for non-metered services
	ConsumptionSourceFlat ConsumptionSource = "flat"
)

// FirstReadingPolicy decides what a meter's first ever reading means
type FirstReadingPolicy string

const (
	// FirstReadingPolicyUnavailable reports a missing preceding period and skips the meter
	FirstReadingPolicyUnavailable FirstReadingPolicy = "unavailable"
	// FirstReadingPolicyUseCurrentReading assumes the meter started at zero
	FirstReadingPolicyUseCurrentReading FirstReadingPolicy = "use_current_reading"
)

func (p FirstReadingPolicy) Validate() error {
	switch p {
	case FirstReadingPolicyUnavailable, FirstReadingPolicyUseCurrentReading:
		return nil
	}
	return ierr.NewError("invalid first reading policy").
		WithHintf("First reading policy must be one of %s, %s",
			FirstReadingPolicyUnavailable, FirstReadingPolicyUseCurrentReading).
		Mark(ierr.ErrValidation)
}

// ReconciliationSplitMode decides how the main/household difference is apportioned
type ReconciliationSplitMode string

const (
	// SplitModeEqual gives every active household the same adjustment
	SplitModeEqual ReconciliationSplitMode = "equal"
	// SplitModeProportional weights the adjustment by each household's raw consumption
	SplitModeProportional ReconciliationSplitMode = "proportional"
)

func (m ReconciliationSplitMode) Validate() error {
	switch m {
	case SplitModeEqual, SplitModeProportional:
		return nil
	}
	return ierr.NewError("invalid reconciliation split mode").
		WithHintf("Split mode must be one of %s, %s", SplitModeEqual, SplitModeProportional).
		Mark(ierr.ErrValidation)
}

// PricingDateAnchor picks which period date is used to resolve the effective price
type PricingDateAnchor string

const (
	PricingDateAnchorPeriodStart PricingDateAnchor = "period_start"
	PricingDateAnchorPeriodEnd   PricingDateAnchor = "period_end"
)

func (a PricingDateAnchor) Validate() error {
	switch a {
	case PricingDateAnchorPeriodStart, PricingDateAnchorPeriodEnd:
		return nil
	}
	return ierr.NewError("invalid pricing date anchor").
		WithHintf("Pricing date anchor must be one of %s, %s",
			PricingDateAnchorPeriodStart, PricingDateAnchorPeriodEnd).
		Mark(ierr.ErrValidation)
}

// InvoiceStatus is the payment state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// QuarterOf returns the calendar year and quarter (1-4) of t
func QuarterOf(t time.Time) (int, int) {
	return t.Year(), (int(t.Month())-1)/3 + 1
}

// AddMonthsClamped adds months to t keeping the day within the target month,
// so Oct 31 + 4 months is Feb 28/29 instead of rolling into March.
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
