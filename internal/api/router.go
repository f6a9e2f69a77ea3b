package api

import (
	"github.com/brfledger/utilitybilling/internal/api/cron"
	v1 "github.com/brfledger/utilitybilling/internal/api/v1"
	"github.com/brfledger/utilitybilling/internal/config"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/rest/middleware"
	"github.com/brfledger/utilitybilling/internal/sentry"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health         *v1.HealthHandler
	Household      *v1.HouseholdHandler
	ServiceCatalog *v1.ServiceCatalogHandler
	Period         *v1.PeriodHandler
	Pricing        *v1.PricingHandler
	Reading        *v1.ReadingHandler
	SharedCost     *v1.SharedCostHandler
	Billing        *v1.BillingHandler
	Invoice        *v1.InvoiceHandler
	CronInvoice    *cron.InvoiceCronHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger, sentryService *sentry.Service) *gin.Engine {
	gin.DefaultWriter = logger.GetGinLogger()
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.SentryMiddleware(cfg),
		middleware.RequestIDMiddleware,
		middleware.SentryRequestContextMiddleware,
		middleware.LoggingMiddleware(logger),
		middleware.ErrorHandler(sentryService),
	)

	router.GET("/health", handlers.Health.Health)

	v1Router := router.Group("/v1")

	households := v1Router.Group("/households")
	{
		households.POST("", handlers.Household.CreateHousehold)
		households.GET("", handlers.Household.ListHouseholds)
		households.GET("/:id", handlers.Household.GetHousehold)
		households.PUT("/:id", handlers.Household.UpdateHousehold)
		households.POST("/:id/deactivate", handlers.Household.DeactivateHousehold)
	}

	services := v1Router.Group("/services")
	{
		services.POST("", handlers.ServiceCatalog.CreateUtilityService)
		services.GET("", handlers.ServiceCatalog.ListUtilityServices)
		services.GET("/:id", handlers.ServiceCatalog.GetUtilityService)
		services.POST("/:id/main_meters", handlers.ServiceCatalog.CreateMainMeter)
		services.GET("/:id/main_meters", handlers.ServiceCatalog.ListMainMeters)
		services.POST("/:id/pricing", handlers.Pricing.CreatePricing)
		services.GET("/:id/pricing", handlers.Pricing.ListPricing)
		services.GET("/:id/pricing/resolve", handlers.Pricing.ResolvePricing)
	}

	meters := v1Router.Group("/household_meters")
	{
		meters.POST("", handlers.ServiceCatalog.CreateHouseholdMeter)
		meters.GET("", handlers.ServiceCatalog.ListHouseholdMeters)
	}

	periods := v1Router.Group("/billing_periods")
	{
		periods.POST("", handlers.Period.CreateBillingPeriod)
		periods.GET("", handlers.Period.ListBillingPeriods)
		periods.POST("/validate", handlers.Period.ValidateBillingPeriods)
		periods.GET("/:id", handlers.Period.GetBillingPeriod)
		periods.GET("/:id/line_items", handlers.Billing.ListLineItems)
		periods.GET("/:id/reconciliations", handlers.Billing.ListReconciliations)
		periods.GET("/:id/services/:service_id/consumption", handlers.Billing.GetServiceConsumption)
		periods.POST("/:id/services/:service_id/reconcile", handlers.Billing.Reconcile)
		periods.GET("/:id/services/:service_id/reconciliation", handlers.Billing.GetReconciliation)
	}

	readings := v1Router.Group("/readings")
	{
		readings.POST("/household", handlers.Reading.RecordHouseholdReading)
		readings.POST("/main", handlers.Reading.RecordMainReading)
		readings.POST("/import", handlers.Reading.ImportReadings)
		readings.GET("/meters/:meter_id", handlers.Reading.ListMeterReadings)
	}

	sharedCosts := v1Router.Group("/shared_costs")
	{
		sharedCosts.POST("", handlers.SharedCost.CreateSharedCost)
		sharedCosts.GET("", handlers.SharedCost.ListSharedCosts)
	}

	billing := v1Router.Group("/billing")
	{
		billing.POST("/generate", handlers.Billing.GenerateBills)
		billing.POST("/runs", handlers.Billing.RunBilling)
	}

	invoices := v1Router.Group("/invoices")
	{
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.POST("/:id/payments", handlers.Invoice.RecordPayment)
	}

	cronGroup := v1Router.Group("/cron")
	{
		cronGroup.POST("/invoices/overdue", handlers.CronInvoice.MarkOverdue)
	}

	return router
}
