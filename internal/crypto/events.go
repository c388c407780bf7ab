package crypto

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Aidin1998/cryptoapi/pkg/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventType names a kind of change to the collection.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
	EventReset   EventType = "reset"
)

// Event describes a single change. Record is nil for resets.
type Event struct {
	Type       EventType      `json:"type"`
	ID         string         `json:"id,omitempty"`
	Record     *models.Crypto `json:"record,omitempty"`
	Deleted    int64          `json:"deleted,omitempty"`
	Inserted   int            `json:"inserted,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Publisher delivers change events.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

// KafkaPublisher writes change events as JSON to a Kafka topic, keyed by record ID.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher for the given brokers and topic
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger,
	}
}

// Publish sends evt and waits for the broker acknowledgement
func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.ID),
		Value: value,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(evt.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", evt.Type, err)
	}
	p.logger.Debug("Published change event", zap.String("type", string(evt.Type)), zap.String("id", evt.ID))
	return nil
}

// Close flushes pending messages and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
