package utilityservice

import (
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
)

// UtilityService is a billable service, either metered (water) or a flat fee (membership).
// A service is immutable once pricing history references it.
type UtilityService struct {
	ID                     string                `json:"id"`
	Name                   string                `json:"name"`
	Unit                   string                `json:"unit,omitempty"`
	Category               types.ServiceCategory `json:"category"`
	IsMetered              bool                  `json:"is_metered"`
	HasMainMeters          bool                  `json:"has_main_meters"`
	RequiresReconciliation bool                  `json:"requires_reconciliation"`
	Metadata               types.Metadata        `json:"metadata,omitempty"`
	types.BaseModel
}

func (s *UtilityService) Validate() error {
	if s.Name == "" {
		return ierr.NewError("service name is required").
			WithHint("Please provide a service name").
			Mark(ierr.ErrValidation)
	}
	if err := s.Category.Validate(); err != nil {
		return err
	}
	if s.RequiresReconciliation && (!s.IsMetered || !s.HasMainMeters) {
		return ierr.NewError("reconciliation requires a metered service with main meters").
			WithHintf("Service %s must be metered and have main meters to be reconciled", s.Name).
			WithReportableDetails(map[string]any{
				"is_metered":      s.IsMetered,
				"has_main_meters": s.HasMainMeters,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsReconciled reports whether the reconciliation step applies to this service
func (s *UtilityService) IsReconciled() bool {
	return s.IsMetered && s.RequiresReconciliation
}
