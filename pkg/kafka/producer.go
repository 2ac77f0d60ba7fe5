package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

var producerTracer = otel.Tracer("marketplace/kafka/producer")

// MessageWriter is the subset of kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message is a single record destined for a topic.
type Message struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
}

// Producer writes outbox records to Kafka, propagating the active trace through headers.
type Producer struct {
	writer  MessageWriter
	brokers []string
}

// NewProducer builds a producer whose writer routes each message by its own topic.
func NewProducer(cfg config.KafkaConfig, logg *logger.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           100 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
	}
	if logg != nil {
		logg.Info(logg.WithField(context.Background(), "brokers", cfg.Brokers), "kafka producer configured")
	}
	return &Producer{writer: writer, brokers: cfg.Brokers}, nil
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(writer MessageWriter) *Producer {
	return &Producer{writer: writer}
}

// Publish writes msg synchronously and records a producer span.
func (p *Producer) Publish(ctx context.Context, msg Message) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka producer not initialized")
	}
	if msg.Topic == "" {
		return errors.New("topic is required")
	}

	record := buildRecord(msg)

	ctx, span := producerTracer.Start(ctx, "send "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(msg.Topic),
			semconv.MessagingKafkaMessageKey(msg.Key),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, NewMessageCarrier(&record))

	if err := p.writer.WriteMessages(ctx, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write to %s: %w", msg.Topic, err)
	}
	return nil
}

// Ping dials the first reachable broker.
func (p *Producer) Ping(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return nil
	}
	var lastErr error
	for _, broker := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func buildRecord(msg Message) kafka.Message {
	record := kafka.Message{
		Topic: msg.Topic,
		Key:   []byte(msg.Key),
		Value: msg.Value,
	}
	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		record.Headers = append(record.Headers, kafka.Header{Key: k, Value: []byte(msg.Headers[k])})
	}
	return record
}
