package publisher

import (
	"time"

	"github.com/brfledger/utilitybilling/internal/types"
)

type EventName string

const (
	EventPeriodBilled           EventName = "billing.period.billed"
	EventBillingRunCompleted    EventName = "billing.run.completed"
	EventInvoiceGenerated       EventName = "invoice.generated"
	EventInvoicePaid            EventName = "invoice.paid"
	EventInvoiceOverdue         EventName = "invoice.overdue"
	EventInvoicePaidChanged     EventName = "invoice.paid_total_changed"
	EventReconciliationComputed EventName = "reconciliation.computed"
)

// Event is the envelope published for every billing state change
type Event struct {
	ID              string                 `json:"id"`
	EventName       EventName              `json:"event_name"`
	Timestamp       time.Time              `json:"timestamp"`
	BillingPeriodID string                 `json:"billing_period_id,omitempty"`
	HouseholdID     string                 `json:"household_id,omitempty"`
	Payload         map[string]interface{} `json:"payload,omitempty"`
}

func NewEvent(name EventName, periodID, householdID string, payload map[string]interface{}) *Event {
	return &Event{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EVENT),
		EventName:       name,
		Timestamp:       time.Now().UTC(),
		BillingPeriodID: periodID,
		HouseholdID:     householdID,
		Payload:         payload,
	}
}

// PartitionKey keeps a household's events ordered on one partition
func (e *Event) PartitionKey() string {
	if e.HouseholdID != "" {
		return e.HouseholdID
	}
	return e.BillingPeriodID
}
