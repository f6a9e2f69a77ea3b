package service

import (
	"context"
	"crypto/tls"
	"sync"
	"time"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	"github.com/brfledger/utilitybilling/internal/config"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/sentry"
	"github.com/brfledger/utilitybilling/internal/service"
	"github.com/brfledger/utilitybilling/internal/temporal/activities/billing"
	temporalInterceptor "github.com/brfledger/utilitybilling/internal/temporal/interceptor"
	"github.com/brfledger/utilitybilling/internal/temporal/models"
	"github.com/brfledger/utilitybilling/internal/temporal/workflows"
	"github.com/brfledger/utilitybilling/internal/types"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// TemporalService starts billing workflows and, depending on the deployment mode,
// hosts the workers that execute them
type TemporalService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsHealthy(ctx context.Context) bool
	StartBillingRun(ctx context.Context, req dto.BillingRunRequest) (*dto.BillingRunWorkflowResponse, error)
	StartOverdueSweep(ctx context.Context, asOf time.Time) (*dto.BillingRunWorkflowResponse, error)
}

type temporalService struct {
	cfg           *config.Configuration
	logger        *logger.Logger
	sentry        *sentry.Service
	serviceParams service.ServiceParams

	mu      sync.RWMutex
	client  client.Client
	workers map[types.TemporalTaskQueue]worker.Worker
}

func NewTemporalService(
	cfg *config.Configuration,
	logger *logger.Logger,
	sentryService *sentry.Service,
	serviceParams service.ServiceParams,
) TemporalService {
	return &temporalService{
		cfg:           cfg,
		logger:        logger,
		sentry:        sentryService,
		serviceParams: serviceParams,
		workers:       make(map[types.TemporalTaskQueue]worker.Worker),
	}
}

// Start dials the temporal frontend and starts one worker per task queue when the
// deployment mode runs workers. A disabled temporal config makes Start a no-op.
func (s *temporalService) Start(ctx context.Context) error {
	if !s.cfg.Temporal.Enabled {
		s.logger.Infow("temporal is disabled")
		return nil
	}

	c, err := client.DialContext(ctx, clientOptions(s.cfg, s.logger))
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Failed to connect to temporal at %s", s.cfg.Temporal.Address).
			Mark(ierr.ErrConfiguration)
	}

	s.mu.Lock()
	s.client = c
	s.mu.Unlock()

	if runsWorkers(s.cfg.Deployment.Mode) {
		if err := s.startWorkers(); err != nil {
			c.Close()
			return err
		}
	}

	s.logger.Infow("temporal service started",
		"address", s.cfg.Temporal.Address,
		"namespace", s.cfg.Temporal.Namespace,
		"workers", len(s.workers))
	return nil
}

func (s *temporalService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for queue, w := range s.workers {
		w.Stop()
		s.logger.Infow("stopped temporal worker", "task_queue", queue)
	}
	s.workers = make(map[types.TemporalTaskQueue]worker.Worker)

	if s.client != nil {
		s.client.Close()
		s.client = nil
	}

	s.logger.Infow("temporal service stopped")
	return nil
}

func (s *temporalService) IsHealthy(ctx context.Context) bool {
	c, err := s.getClient()
	if err != nil {
		return false
	}
	_, err = c.CheckHealth(ctx, &client.CheckHealthRequest{})
	return err == nil
}

// StartBillingRun starts a billing run workflow; the run id doubles as the workflow id suffix
func (s *temporalService) StartBillingRun(ctx context.Context, req dto.BillingRunRequest) (*dto.BillingRunWorkflowResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	input := models.BillingRunWorkflowInput{
		RunID:            req.RunID,
		BillingPeriodIDs: req.BillingPeriodIDs,
	}
	if input.RunID == "" {
		input.RunID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_RUN)
	}

	return s.execute(ctx, types.TemporalBillingRunWorkflow, input.RunID, workflows.BillingRunWorkflow, input)
}

func (s *temporalService) StartOverdueSweep(ctx context.Context, asOf time.Time) (*dto.BillingRunWorkflowResponse, error) {
	identifier := asOf.UTC().Format("2006-01-02")
	if asOf.IsZero() {
		identifier = types.GenerateUUID()
	}

	return s.execute(ctx, types.TemporalOverdueSweepWorkflow, identifier, workflows.OverdueSweepWorkflow, models.OverdueSweepWorkflowInput{
		AsOf: asOf,
	})
}

func (s *temporalService) execute(
	ctx context.Context,
	workflowType types.TemporalWorkflowType,
	identifier string,
	fn interface{},
	input interface{},
) (*dto.BillingRunWorkflowResponse, error) {
	c, err := s.getClient()
	if err != nil {
		return nil, err
	}

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowType.WorkflowID(identifier),
		TaskQueue: workflowType.TaskQueueName(),
	}, fn, input)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to start %s", workflowType).
			Mark(ierr.ErrInternal)
	}

	s.logger.Infow("started temporal workflow",
		"workflow_type", workflowType,
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID())

	return &dto.BillingRunWorkflowResponse{
		WorkflowID: run.GetID(),
		RunID:      run.GetRunID(),
	}, nil
}

func (s *temporalService) getClient() (client.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.client == nil {
		return nil, ierr.NewError("temporal client not started").
			WithHint("Asynchronous billing runs need temporal to be enabled").
			Mark(ierr.ErrInvalidOperation)
	}
	return s.client, nil
}

func (s *temporalService) startWorkers() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	activities := billing.NewBillingActivities(s.serviceParams, s.logger)

	for _, queue := range types.GetAllTaskQueues() {
		options := models.DefaultWorkerOptions()
		if s.sentry.IsEnabled() {
			options.Interceptors = []interceptor.WorkerInterceptor{
				temporalInterceptor.NewSentryInterceptor(s.sentry),
			}
		}

		w := worker.New(s.client, queue.String(), options)
		registerQueue(w, queue, activities)

		if err := w.Start(); err != nil {
			return ierr.WithError(err).
				WithHintf("Failed to start worker for task queue %s", queue).
				Mark(ierr.ErrInternal)
		}
		s.workers[queue] = w
		s.logger.Infow("started temporal worker",
			"task_queue", queue,
			"workflows", types.GetWorkflowsForTaskQueue(queue))
	}
	return nil
}

// registerQueue registers the workflows of a task queue together with every billing activity
func registerQueue(r worker.Registry, queue types.TemporalTaskQueue, activities *billing.BillingActivities) {
	for _, wf := range types.GetWorkflowsForTaskQueue(queue) {
		switch wf {
		case types.TemporalBillingRunWorkflow:
			r.RegisterWorkflowWithOptions(workflows.BillingRunWorkflow, workflow.RegisterOptions{Name: workflows.WorkflowBillingRun})
		case types.TemporalOverdueSweepWorkflow:
			r.RegisterWorkflowWithOptions(workflows.OverdueSweepWorkflow, workflow.RegisterOptions{Name: workflows.WorkflowOverdueSweep})
		}
	}
	r.RegisterActivity(activities)
}

func clientOptions(cfg *config.Configuration, log *logger.Logger) client.Options {
	opts := client.Options{
		HostPort:  cfg.Temporal.Address,
		Namespace: cfg.Temporal.Namespace,
		Logger:    log.GetTemporalLogger(),
	}
	if cfg.Temporal.APIKey != "" {
		opts.Credentials = client.NewAPIKeyStaticCredentials(cfg.Temporal.APIKey)
	}
	if cfg.Temporal.TLS {
		opts.ConnectionOptions = client.ConnectionOptions{
			TLS: &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}
	return opts
}

func runsWorkers(mode types.RunMode) bool {
	switch mode {
	case types.ModeLocal, types.ModeTemporal, types.ModeAPIAndTemp:
		return true
	default:
		return false
	}
}
