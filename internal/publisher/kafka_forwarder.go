package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/orders/internal/bus"
	"github.com/fjod/go_cart/orders/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const breakerFailureThreshold = 5

// Event is implemented by domain events that carry their own type and partition key.
type Event interface {
	EventType() string
	AggregateKey() string
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Subscriber interface {
	Subscribe(topic string, h bus.Handler)
}

// KafkaForwarder copies bus envelopes to a Kafka topic. Delivery is best effort:
// a failed write is returned to the bus, which logs it, and is not retried.
// After repeated failures the breaker opens and writes fail fast until it
// lets a probe through.
type KafkaForwarder struct {
	writer  MessageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
	timeout time.Duration
	logger  *zap.Logger
}

func NewKafkaForwarder(topic string, l *zap.Logger, brokers ...string) *KafkaForwarder {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return NewKafkaForwarderWithWriter(w, l)
}

func NewKafkaForwarderWithWriter(w MessageWriter, l *zap.Logger) *KafkaForwarder {
	if l == nil {
		l = zap.NewNop()
	}
	l = l.Named("kafka_forwarder")

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka-writer",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &KafkaForwarder{
		writer:  w,
		breaker: breaker,
		timeout: 10 * time.Second,
		logger:  l,
	}
}

// Forward subscribes the forwarder to each bus topic.
func (f *KafkaForwarder) Forward(s Subscriber, topics ...string) {
	for _, topic := range topics {
		s.Subscribe(topic, f.Handle)
	}
}

type wireEnvelope struct {
	MessageID string    `json:"message_id"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

func (f *KafkaForwarder) Handle(ctx context.Context, env bus.Envelope) error {
	msg, err := toMessage(env)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	_, err = f.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, f.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to write message %s to kafka: %w", env.MessageID, err)
	}

	logger.Debug(ctx, f.logger, "event forwarded",
		zap.String("topic", env.Topic),
		zap.String("message_id", env.MessageID),
		zap.ByteString("key", msg.Key))
	return nil
}

func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}

func toMessage(env bus.Envelope) (kafka.Message, error) {
	eventType, key := env.Topic, env.MessageID
	if e, ok := env.Payload.(Event); ok {
		eventType, key = e.EventType(), e.AggregateKey()
	}

	value, err := json.Marshal(wireEnvelope{
		MessageID: env.MessageID,
		Topic:     env.Topic,
		Timestamp: env.Timestamp,
		Payload:   env.Payload,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal message %s: %w", env.MessageID, err)
	}

	return kafka.Message{
		Key:   []byte(key), // aggregate id keeps one order's events on one partition
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "message_id", Value: []byte(env.MessageID)},
		},
		Time: env.Timestamp,
	}, nil
}
