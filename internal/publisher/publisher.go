// Package publisher emits billing events to Kafka through watermill.
package publisher

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wkafka "github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/brfledger/utilitybilling/internal/config"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/kafka"
	"github.com/brfledger/utilitybilling/internal/logger"
	jsoniter "github.com/json-iterator/go"
)

const metadataPartitionKey = "partition_key"

// Publisher sends billing events to the configured topic
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

type watermillPublisher struct {
	pub    message.Publisher
	topic  string
	logger *logger.Logger
}

// NewPublisher returns a Kafka publisher, or a no-op one when Kafka is disabled
func NewPublisher(cfg *config.Configuration, log *logger.Logger) (Publisher, error) {
	if !cfg.Kafka.Enabled {
		log.Infow("kafka disabled, billing events will not be published")
		return NewNoopPublisher(log), nil
	}

	saramaConfig, err := kafka.NewProducerConfig(cfg.Kafka)
	if err != nil {
		return nil, err
	}

	pub, err := wkafka.NewPublisher(
		wkafka.PublisherConfig{
			Brokers: cfg.Kafka.Brokers,
			Marshaler: wkafka.NewWithPartitioningMarshaler(func(_ string, msg *message.Message) (string, error) {
				return msg.Metadata.Get(metadataPartitionKey), nil
			}),
			OverwriteSaramaConfig: saramaConfig,
		},
		NewWatermillLogger(log),
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create kafka publisher").
			WithReportableDetails(map[string]any{"brokers": cfg.Kafka.Brokers}).
			Mark(ierr.ErrConfiguration)
	}

	return NewWatermillPublisher(pub, cfg.Kafka.Topic, log), nil
}

// NewWatermillPublisher wraps any watermill publisher
func NewWatermillPublisher(pub message.Publisher, topic string, log *logger.Logger) Publisher {
	return &watermillPublisher{pub: pub, topic: topic, logger: log}
}

func (p *watermillPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(event)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to marshal billing event").
			Mark(ierr.ErrValidation)
	}

	// message ids must be unique across redeliveries of the same event
	uniqueID := fmt.Sprintf("%s-%d-%d", event.ID, time.Now().UnixNano(), rand.Int63())

	msg := message.NewMessage(uniqueID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_name", string(event.EventName))
	msg.Metadata.Set(metadataPartitionKey, event.PartitionKey())

	p.logger.Debugw("publishing billing event",
		"event_id", event.ID,
		"event_name", event.EventName,
		"partition_key", event.PartitionKey(),
		"topic", p.topic,
	)

	if err := p.pub.Publish(p.topic, msg); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to publish billing event").
			WithReportableDetails(map[string]any{"event_name": event.EventName}).
			Mark(ierr.ErrInternal)
	}
	return nil
}

func (p *watermillPublisher) Close() error {
	return p.pub.Close()
}

type noopPublisher struct {
	logger *logger.Logger
}

func NewNoopPublisher(log *logger.Logger) Publisher {
	return &noopPublisher{logger: log}
}

func (p *noopPublisher) Publish(_ context.Context, event *Event) error {
	p.logger.Debugw("dropping billing event, publisher disabled", "event_name", event.EventName)
	return nil
}

func (p *noopPublisher) Close() error { return nil }

// watermillLogger adapts the zap logger to watermill.LoggerAdapter
type watermillLogger struct {
	logger *logger.Logger
	fields watermill.LogFields
}

func NewWatermillLogger(log *logger.Logger) watermill.LoggerAdapter {
	return &watermillLogger{logger: log}
}

func (l *watermillLogger) keyvals(fields watermill.LogFields) []interface{} {
	merged := l.fields.Add(fields)
	kv := make([]interface{}, 0, len(merged)*2)
	for k, v := range merged {
		kv = append(kv, k, v)
	}
	return kv
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Errorw(msg, append(l.keyvals(fields), "error", err)...)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.logger.Infow(msg, l.keyvals(fields)...)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.logger.Debugw(msg, l.keyvals(fields)...)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.logger.Debugw(msg, l.keyvals(fields)...)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{logger: l.logger, fields: l.fields.Add(fields)}
}
