// Package kafka delivers billing audit events to a Kafka topic.  Delivery is
// advisory: reconciliation operations never fail or roll back because an
// event could not be published.
package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/config"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = apperrors.New(apperrors.ErrCodeInternal, "event publisher closed")

// envelope is the wire format of an audit event.
type envelope struct {
	EventID       string        `json:"event_id"`
	Source        string        `json:"source"`
	SchemaVersion string        `json:"schema_version"`
	Event         billing.Event `json:"event"`
}

const (
	eventSource   = "pharmacliff-apiserver"
	schemaVersion = "1.0"
)

// writerInterface abstracts kafka.Writer for testing.
type writerInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements billing.EventPublisher over a Kafka topic.  Events are
// keyed by user id so one user's history stays in partition order.
type Publisher struct {
	writer writerInterface
	log    logging.Logger
	closed atomic.Bool
}

// NewPublisher creates a Kafka-backed audit event publisher.
func NewPublisher(cfg config.KafkaConfig, log logging.Logger) *Publisher {
	if log == nil {
		log = logging.NewNopLogger()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.ProducerRetries + 1,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return &Publisher{writer: writer, log: log.Named("kafka")}
}

// Publish sends one audit event.
func (p *Publisher) Publish(ctx context.Context, event billing.Event) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(envelope{
		EventID:       uuid.NewString(),
		Source:        eventSource,
		SchemaVersion: schemaVersion,
		Event:         event,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to encode audit event")
	}

	key := event.UserID
	if key == "" {
		key = event.SubscriptionID
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeExternalService, "failed to publish audit event")
	}
	p.log.Debug("audit event published",
		logging.String("type", string(event.Type)),
		logging.String("key", key),
	)
	return nil
}

// Close flushes and shuts the writer down.
func (p *Publisher) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}
