package dto

import (
	"github.com/brfledger/utilitybilling/internal/domain/consumption"
)

type HouseholdConsumption struct {
	HouseholdID string `json:"household_id"`
	*consumption.Consumption
}

// ServiceConsumptionResponse lists the period's household consumption of one service.
// Meters that could not be computed are listed under errors.
type ServiceConsumptionResponse struct {
	ServiceID       string                  `json:"service_id"`
	BillingPeriodID string                  `json:"billing_period_id"`
	Items           []*HouseholdConsumption `json:"items"`
	Errors          []RecordError           `json:"errors,omitempty"`
	Warnings        []RecordError           `json:"warnings,omitempty"`
}
