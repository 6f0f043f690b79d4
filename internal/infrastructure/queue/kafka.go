// Package queue mirrors broadcast events onto Kafka so non-websocket
// consumers can tail the change stream. The feed is optional: when no
// brokers are configured the pipeline runs without it.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds Kafka connection configuration.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// EventPublisher publishes change-event batches to a Kafka topic, keyed by
// event type so per-type ordering survives partitioning.
type EventPublisher struct {
	writer *kafka.Writer
}

// NewEventPublisher creates a publisher, or nil when no brokers are
// configured.
func NewEventPublisher(config KafkaConfig) *EventPublisher {
	if len(config.Brokers) == 0 {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // the broadcast cycle must never block on Kafka
	}
	return &EventPublisher{writer: writer}
}

// queueEvent matches the websocket envelope so both feeds carry the same
// shape.
type queueEvent struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Publish sends one event batch stamped with at, matching the websocket
// envelope for the same cycle.
func (p *EventPublisher) Publish(ctx context.Context, eventType string, data any, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	payload, err := json.Marshal(queueEvent{Type: eventType, Data: data, Timestamp: at})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(eventType),
		Value: payload,
		Time:  at,
	})
}

// Close flushes and closes the writer.
func (p *EventPublisher) Close() error {
	return p.writer.Close()
}
