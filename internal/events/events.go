// Package events publishes access-change notifications to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/quinisports/quinisports/internal/observability"
)

// Access-change event types.
const (
	TypeRoleChanged   = "role_changed"
	TypeStatusChanged = "status_changed"
	TypeUserDeleted   = "user_deleted"
	TypeUserCreated   = "user_created"
)

// AccessChange records that the effective access of a user changed and their
// existing sessions were revoked.
type AccessChange struct {
	Type       string    `json:"type"`
	SubjectID  string    `json:"subjectId"`
	ActorID    string    `json:"actorId"`
	Role       string    `json:"role,omitempty"`
	Status     string    `json:"status,omitempty"`
	BusinessID *int64    `json:"businessId,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher delivers access-change events.
type Publisher interface {
	PublishAccessChange(ctx context.Context, ev AccessChange) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by subject id.
type KafkaPublisher struct {
	logger  *slog.Logger
	writer  messageWriter
	metrics *observability.Metrics
}

// NewKafkaPublisher builds a synchronous Kafka writer for topic.
func NewKafkaPublisher(logger *slog.Logger, brokers []string, topic string, metrics *observability.Metrics) *KafkaPublisher {
	logger = logger.WithGroup("kafka").With("topic", topic)
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
		ErrorLogger:            kafka.LoggerFunc(func(msg string, args ...any) { logger.Error(fmt.Sprintf(msg, args...)) }),
	}
	return &KafkaPublisher{logger: logger, writer: w, metrics: metrics}
}

// PublishAccessChange writes ev.
func (p *KafkaPublisher) PublishAccessChange(ctx context.Context, ev AccessChange) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.SubjectID),
		Value: payload,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	})
	p.metrics.EventPublished(ev.Type, err)
	if err != nil {
		return fmt.Errorf("events: write %s: %w", ev.Type, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

// PublishAccessChange implements Publisher.
func (NopPublisher) PublishAccessChange(context.Context, AccessChange) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = NopPublisher{}
)
