package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/brfledger/utilitybilling/internal/api"
	"github.com/brfledger/utilitybilling/internal/api/cron"
	v1 "github.com/brfledger/utilitybilling/internal/api/v1"
	"github.com/brfledger/utilitybilling/internal/cache"
	"github.com/brfledger/utilitybilling/internal/config"
	"github.com/brfledger/utilitybilling/internal/domain/billing"
	"github.com/brfledger/utilitybilling/internal/domain/household"
	"github.com/brfledger/utilitybilling/internal/domain/invoice"
	"github.com/brfledger/utilitybilling/internal/email"
	"github.com/brfledger/utilitybilling/internal/export"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/postgres"
	"github.com/brfledger/utilitybilling/internal/publisher"
	"github.com/brfledger/utilitybilling/internal/redis"
	repo "github.com/brfledger/utilitybilling/internal/repository/postgres"
	"github.com/brfledger/utilitybilling/internal/sentry"
	"github.com/brfledger/utilitybilling/internal/service"
	temporalservice "github.com/brfledger/utilitybilling/internal/temporal/service"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			sentry.NewSentryService,
			newErrorReporter,
			newPostgres,
			newRedis,
			cache.Initialize,
			publisher.NewPublisher,
			newInvoiceNotifier,
			newPeriodExporter,
		),

		fx.Provide(
			repo.NewHouseholdRepository,
			repo.NewUtilityServiceRepository,
			repo.NewMeterRepository,
			repo.NewPeriodRepository,
			repo.NewReadingRepository,
			repo.NewPricingRepository,
			repo.NewReconciliationRepository,
			repo.NewBillingRepository,
			repo.NewInvoiceRepository,
			repo.NewPaymentRepository,
			repo.NewSharedCostRepository,
		),

		fx.Provide(
			service.NewHouseholdService,
			service.NewServiceCatalogService,
			service.NewPeriodService,
			service.NewPricingService,
			service.NewReadingService,
			service.NewSharedCostService,
			service.NewConsumptionService,
			service.NewReconciliationService,
			service.NewBillingService,
			service.NewBillingRunService,
			service.NewInvoiceService,
			temporalservice.NewTemporalService,
		),

		fx.Provide(
			newHandlers,
			api.NewRouter,
		),

		fx.Invoke(
			sentry.RegisterHooks,
			closePublisher,
			startTemporal,
			startServer,
		),
	)
	app.Run()
}

func newPostgres(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (*postgres.Client, postgres.IClient, error) {
	client, err := postgres.NewDB(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, client, nil
}

func newErrorReporter(s *sentry.Service) service.ErrorReporter {
	return s
}

// newRedis only connects when the pricing cache is backed by redis
func newRedis(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (*redis.Client, error) {
	if cache.CacheType(cfg.Cache.Type) != cache.CacheTypeRedis {
		return nil, nil
	}
	client, err := redis.NewClient(redis.ConfigFromSettings(cfg.Redis), log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newInvoiceNotifier(cfg *config.Configuration, log *logger.Logger) email.InvoiceNotifier {
	if !cfg.Email.Enabled {
		return nil
	}
	return email.NewEmail(email.NewEmailClient(cfg), log)
}

func newPeriodExporter(
	cfg *config.Configuration,
	log *logger.Logger,
	billingRepo billing.Repository,
	invoiceRepo invoice.Repository,
	householdRepo household.Repository,
) (export.PeriodExporter, error) {
	if !cfg.Export.Enabled {
		return nil, nil
	}
	uploader, err := export.NewS3Uploader(context.Background(), cfg.Export)
	if err != nil {
		return nil, err
	}
	report := export.NewBillingReportExporter(billingRepo, invoiceRepo, householdRepo, log)
	return export.NewExporter(report, uploader, cfg, log), nil
}

func newHandlers(
	cfg *config.Configuration,
	log *logger.Logger,
	households service.HouseholdService,
	catalog service.ServiceCatalogService,
	periods service.PeriodService,
	pricing service.PricingService,
	readings service.ReadingService,
	sharedCosts service.SharedCostService,
	billingService service.BillingService,
	billingRun service.BillingRunService,
	consumption service.ConsumptionService,
	reconciliation service.ReconciliationService,
	invoices service.InvoiceService,
	temporal temporalservice.TemporalService,
) api.Handlers {
	return api.Handlers{
		Health:         v1.NewHealthHandler(cfg, temporal),
		Household:      v1.NewHouseholdHandler(households, log),
		ServiceCatalog: v1.NewServiceCatalogHandler(catalog, log),
		Period:         v1.NewPeriodHandler(periods, log),
		Pricing:        v1.NewPricingHandler(pricing, log),
		Reading:        v1.NewReadingHandler(readings, log),
		SharedCost:     v1.NewSharedCostHandler(sharedCosts, log),
		Billing:        v1.NewBillingHandler(billingService, billingRun, consumption, reconciliation, temporal, log),
		Invoice:        v1.NewInvoiceHandler(invoices, log),
		CronInvoice:    cron.NewInvoiceCronHandler(invoices, temporal, log),
	}
}

func closePublisher(lc fx.Lifecycle, pub publisher.Publisher) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return pub.Close()
		},
	})
}

func startTemporal(lc fx.Lifecycle, temporal temporalservice.TemporalService) {
	lc.Append(fx.Hook{
		OnStart: temporal.Start,
		OnStop:  temporal.Stop,
	})
}

// startServer serves the API unless the process only runs temporal workers
func startServer(lc fx.Lifecycle, cfg *config.Configuration, router *gin.Engine, log *logger.Logger) {
	if cfg.Deployment.Mode == types.ModeTemporal {
		log.Infow("running in worker mode, http server disabled")
		return
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting http server", "address", cfg.Server.Address, "mode", cfg.Deployment.Mode)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("http server failed: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("shutting down http server")
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("failed to shut down http server: %w", err)
			}
			return nil
		},
	})
}
