package sentry

import (
	"context"
	"time"

	"github.com/brfledger/utilitybilling/internal/config"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/getsentry/sentry-go"
	"go.uber.org/fx"
)

const flushTimeout = 2 * time.Second

// Service wraps the sentry SDK. Every method is a no-op when sentry is disabled.
type Service struct {
	cfg    *config.Configuration
	logger *logger.Logger
}

func NewSentryService(cfg *config.Configuration, logger *logger.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Service) IsEnabled() bool {
	return s != nil && s.cfg.Sentry.Enabled && s.cfg.Sentry.DSN != ""
}

// Init configures the global sentry client
func (s *Service) Init() error {
	if !s.IsEnabled() {
		s.logger.Infow("sentry is disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              s.cfg.Sentry.DSN,
		Environment:      s.cfg.Sentry.Environment,
		SampleRate:       s.cfg.Sentry.SampleRate,
		TracesSampleRate: s.cfg.Sentry.SampleRate,
		EnableTracing:    true,
		AttachStacktrace: true,
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to initialise sentry").
			Mark(ierr.ErrConfiguration)
	}

	s.logger.Infow("sentry initialised",
		"environment", s.cfg.Sentry.Environment,
		"sample_rate", s.cfg.Sentry.SampleRate)
	return nil
}

func (s *Service) CaptureException(err error) {
	if !s.IsEnabled() || err == nil {
		return
	}
	sentry.CaptureException(err)
}

// CaptureExceptionWithContext reports err on the hub bound to ctx (set by the gin middleware)
// tagged with the error kind and request id
func (s *Service) CaptureExceptionWithContext(ctx context.Context, err error, tags map[string]string) {
	if !s.IsEnabled() || err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_kind", ierr.Kind(err))
		if requestID := types.GetRequestID(ctx); requestID != "" {
			scope.SetTag("request_id", requestID)
		}
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if details := ierr.GetReportableDetails(err); len(details) > 0 {
			scope.SetContext("details", details)
		}
		hub.CaptureException(err)
	})
}

// StartMonitoringSpan starts a performance span; the returned context carries it.
// A nil span is returned when sentry is disabled.
func (s *Service) StartMonitoringSpan(ctx context.Context, operation string, data map[string]interface{}) (*sentry.Span, context.Context) {
	if !s.IsEnabled() {
		return nil, ctx
	}
	span := sentry.StartSpan(ctx, operation)
	for k, v := range data {
		span.SetData(k, v)
	}
	return span, span.Context()
}

func (s *Service) Flush() {
	if !s.IsEnabled() {
		return
	}
	sentry.Flush(flushTimeout)
}

// RegisterHooks initialises sentry on start and flushes buffered events on stop
func RegisterHooks(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Init()
		},
		OnStop: func(ctx context.Context) error {
			s.Flush()
			return nil
		},
	})
}
