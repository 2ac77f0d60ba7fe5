package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishWritesRecordWithTraceHeaders(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	writer := &recordingWriter{}
	producer := NewProducerWithWriter(writer)

	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	err := producer.Publish(ctx, Message{
		Topic:   "marketplace.orders",
		Key:     "order-1",
		Value:   []byte(`{"ok":true}`),
		Headers: map[string]string{"event_type": "order_created", "aggregate_id": "order-1"},
	})
	span.End()
	require.NoError(t, err)

	require.Len(t, writer.messages, 1)
	record := writer.messages[0]
	assert.Equal(t, "marketplace.orders", record.Topic)
	assert.Equal(t, "order-1", string(record.Key))

	carrier := NewMessageCarrier(&record)
	assert.Equal(t, "order_created", carrier.Get("event_type"))
	assert.NotEmpty(t, carrier.Get("traceparent"))
	assert.Equal(t, "aggregate_id", record.Headers[0].Key)
}

func TestPublishValidatesAndWrapsErrors(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker down")}
	producer := NewProducerWithWriter(writer)

	err := producer.Publish(context.Background(), Message{Key: "k"})
	require.Error(t, err)

	err = producer.Publish(context.Background(), Message{Topic: "t", Key: "k"})
	require.ErrorContains(t, err, "broker down")

	require.NoError(t, producer.Close())
	assert.True(t, writer.closed)
}

func TestMessageCarrierOverwritesHeaders(t *testing.T) {
	msg := kafka.Message{}
	carrier := NewMessageCarrier(&msg)
	carrier.Set("a", "1")
	carrier.Set("a", "2")
	carrier.Set("b", "3")

	assert.Equal(t, "2", carrier.Get("a"))
	assert.ElementsMatch(t, []string{"a", "b"}, carrier.Keys())
	assert.Empty(t, carrier.Get("missing"))
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(config.KafkaConfig{}, nil)
	require.Error(t, err)
}
