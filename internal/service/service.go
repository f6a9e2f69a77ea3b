package service

import (
	"context"

	"github.com/brfledger/utilitybilling/internal/config"
	"github.com/brfledger/utilitybilling/internal/domain/billing"
	"github.com/brfledger/utilitybilling/internal/domain/household"
	"github.com/brfledger/utilitybilling/internal/domain/invoice"
	"github.com/brfledger/utilitybilling/internal/domain/meter"
	"github.com/brfledger/utilitybilling/internal/domain/payment"
	"github.com/brfledger/utilitybilling/internal/domain/period"
	"github.com/brfledger/utilitybilling/internal/domain/pricing"
	"github.com/brfledger/utilitybilling/internal/domain/reading"
	"github.com/brfledger/utilitybilling/internal/domain/reconciliation"
	"github.com/brfledger/utilitybilling/internal/domain/sharedcost"
	"github.com/brfledger/utilitybilling/internal/domain/utilityservice"
	"github.com/brfledger/utilitybilling/internal/email"
	"github.com/brfledger/utilitybilling/internal/export"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/postgres"
	"github.com/brfledger/utilitybilling/internal/publisher"
	"go.uber.org/fx"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	fx.In

	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	HouseholdRepo      household.Repository
	UtilityServiceRepo utilityservice.Repository
	MeterRepo          meter.Repository
	PeriodRepo         period.Repository
	ReadingRepo        reading.Repository
	PricingRepo        pricing.Repository
	ReconciliationRepo reconciliation.Repository
	BillingRepo        billing.Repository
	InvoiceRepo        invoice.Repository
	PaymentRepo        payment.Repository
	SharedCostRepo     sharedcost.Repository

	EventPublisher publisher.Publisher
	EmailNotifier  email.InvoiceNotifier `optional:"true"`
	Exporter       export.PeriodExporter `optional:"true"`
	ErrorReporter  ErrorReporter         `optional:"true"`
}

// ErrorReporter sends errors that need operator attention to the error tracker
type ErrorReporter interface {
	CaptureExceptionWithContext(ctx context.Context, err error, tags map[string]string)
}

func (p ServiceParams) reportError(ctx context.Context, err error, tags map[string]string) {
	if p.ErrorReporter == nil {
		return
	}
	p.ErrorReporter.CaptureExceptionWithContext(ctx, err, tags)
}

// publishEvents sends events after the write unit has committed.
// Publish failures are logged and never undo the billing state.
func (p ServiceParams) publishEvents(ctx context.Context, events []*publisher.Event) {
	if p.EventPublisher == nil {
		return
	}
	for _, e := range events {
		if err := p.EventPublisher.Publish(ctx, e); err != nil {
			p.Logger.Errorw("failed to publish event",
				"event_id", e.ID,
				"event_name", e.EventName,
				"billing_period_id", e.BillingPeriodID,
				"error", err)
		}
	}
}
