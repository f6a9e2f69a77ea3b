package meter

import (
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/types"
)

// MainMeter is a municipal bulk meter; a service may have several whose readings are summed
type MainMeter struct {
	ID         string `json:"id"`
	ServiceID  string `json:"service_id"`
	Identifier string `json:"identifier"`
	types.BaseModel
}

// HouseholdMeter is one household's sub-meter for a service.
// Serial is nil for non-metered services.
type HouseholdMeter struct {
	ID          string  `json:"id"`
	HouseholdID string  `json:"household_id"`
	ServiceID   string  `json:"service_id"`
	Serial      *string `json:"serial,omitempty"`
	types.BaseModel
}

func (m *MainMeter) Validate() error {
	if m.ServiceID == "" || m.Identifier == "" {
		return ierr.NewError("main meter requires service and identifier").
			WithHint("Please provide a service id and a meter identifier").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (m *HouseholdMeter) Validate() error {
	if m.HouseholdID == "" || m.ServiceID == "" {
		return ierr.NewError("household meter requires household and service").
			WithHint("Please provide a household id and a service id").
			Mark(ierr.ErrValidation)
	}
	return nil
}
