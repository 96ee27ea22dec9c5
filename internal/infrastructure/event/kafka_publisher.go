// Package event delivers order events to downstream consumers.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/config"
)

// Message headers set on every published event
const (
	HeaderEventType     = "event-type"
	HeaderSchemaVersion = "schema-version"

	EventTypeOrderReconciled = "order.reconciled"
	schemaVersion            = "1"
)

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var newWriter = func(brokers []string, topic string) writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// KafkaPublisher publishes OrderReconciledEvents keyed by order id, so every
// event of one order lands on the same partition.
type KafkaPublisher struct {
	w      writer
	topic  string
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher for the configured brokers and topic
func NewKafkaPublisher(cfg config.EventsConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{
		w:      newWriter(cfg.Brokers, cfg.Topic),
		topic:  cfg.Topic,
		logger: logger.Named("kafka"),
	}, nil
}

// PublishOrderReconciled writes all events in one batch
func (p *KafkaPublisher) PublishOrderReconciled(ctx context.Context, events ...integration.OrderReconciledEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := buildMessage(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d events to %s: %w", len(msgs), p.topic, err)
	}
	p.logger.Debug("Published order events", zap.String("topic", p.topic), zap.Int("events", len(msgs)))
	return nil
}

// Close flushes pending writes and closes the connection
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func buildMessage(e integration.OrderReconciledEvent) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event for order %s: %w", e.OrderID, err)
	}
	return kafka.Message{
		Key:   []byte(e.OrderID.String()),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(EventTypeOrderReconciled)},
			{Key: HeaderSchemaVersion, Value: []byte(schemaVersion)},
		},
	}, nil
}

var _ integration.EventPublisher = (*KafkaPublisher)(nil)
