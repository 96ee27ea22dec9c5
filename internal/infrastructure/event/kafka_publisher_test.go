package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/config"
)

type fakeWriter struct {
	brokers []string
	topic   string
	written []kafka.Message
	err     error
	closed  bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func withFakeWriter(t *testing.T) *fakeWriter {
	t.Helper()
	fw := &fakeWriter{}
	orig := newWriter
	newWriter = func(brokers []string, topic string) writer {
		fw.brokers, fw.topic = brokers, topic
		return fw
	}
	t.Cleanup(func() { newWriter = orig })
	return fw
}

func sampleEvent() integration.OrderReconciledEvent {
	return integration.OrderReconciledEvent{
		OrderID:        uuid.MustParse("0b8f3a56-7f4c-4d7e-9a51-1c6f1f0e2b11"),
		UserID:         uuid.MustParse("f5b3e1c2-1d0a-4a8e-8b6f-3c2d1e0f9a87"),
		Marketplace:    integration.MarketplaceVeeqo,
		MarketplaceKey: "V-1001",
		Created:        true,
		OccurredAt:     time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(config.EventsConfig{Topic: "t"}, nil)
	assert.ErrorContains(t, err, "brokers")

	_, err = NewKafkaPublisher(config.EventsConfig{Brokers: []string{"b:9092"}}, nil)
	assert.ErrorContains(t, err, "topic")
}

func TestKafkaPublisher_Publish(t *testing.T) {
	fw := withFakeWriter(t)
	p, err := NewKafkaPublisher(config.EventsConfig{Brokers: []string{"b1:9092", "b2:9092"}, Topic: "order.reconciled"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, fw.brokers)
	assert.Equal(t, "order.reconciled", fw.topic)

	e := sampleEvent()
	require.NoError(t, p.PublishOrderReconciled(context.Background(), e))
	require.Len(t, fw.written, 1)

	msg := fw.written[0]
	assert.Equal(t, e.OrderID.String(), string(msg.Key))
	assert.Equal(t, e.OccurredAt, msg.Time)
	assert.Contains(t, msg.Headers, kafka.Header{Key: HeaderEventType, Value: []byte(EventTypeOrderReconciled)})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "V-1001", decoded["marketplaceKey"])
	assert.Equal(t, "VEEQO", decoded["marketplace"])
	assert.Equal(t, true, decoded["created"])

	require.NoError(t, p.Close())
	assert.True(t, fw.closed)
}

func TestKafkaPublisher_Empty(t *testing.T) {
	fw := withFakeWriter(t)
	p, err := NewKafkaPublisher(config.EventsConfig{Brokers: []string{"b:9092"}, Topic: "t"}, nil)
	require.NoError(t, err)

	require.NoError(t, p.PublishOrderReconciled(context.Background()))
	assert.Empty(t, fw.written)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	fw := withFakeWriter(t)
	fw.err = errors.New("leader not available")
	p, err := NewKafkaPublisher(config.EventsConfig{Brokers: []string{"b:9092"}, Topic: "t"}, nil)
	require.NoError(t, err)

	err = p.PublishOrderReconciled(context.Background(), sampleEvent(), sampleEvent())
	assert.ErrorContains(t, err, "publish 2 events to t")
	assert.ErrorContains(t, err, "leader not available")
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.PublishOrderReconciled(context.Background(), sampleEvent()))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "V-1001", logs.All()[0].ContextMap()["marketplace_key"])
}
