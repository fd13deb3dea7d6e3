package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/SAP-F-2025/student-records-service/internal/config"
)

type EventType string

const (
	StudentCreated    EventType = "student.created"
	StudentUpdated    EventType = "student.updated"
	StudentDeleted    EventType = "student.deleted"
	MarksRecorded     EventType = "marks.recorded"
	MarksUpdated      EventType = "marks.updated"
	MarksDeleted      EventType = "marks.deleted"
	AttendanceMarked  EventType = "attendance.marked"
	AttendanceDeleted EventType = "attendance.deleted"
	UserRegistered    EventType = "user.registered"
	UserDeleted       EventType = "user.deleted"
)

// Event is the JSON envelope published for every domain change
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	ActorID    uint        `json:"actor_id,omitempty"`
	Payload    interface{} `json:"payload"`
}

// NewEvent stamps an event with an id and the current time
func NewEvent(eventType EventType, actorID uint, payload interface{}) Event {
	return Event{
		ID:         watermill.NewUUID(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Payload:    payload,
	}
}

// EventPublisher publishes domain events after a change is committed
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// WatermillPublisher publishes events through any watermill transport
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
}

// NewWatermillPublisher wraps an existing watermill publisher
func NewWatermillPublisher(publisher message.Publisher, topic string, logger *slog.Logger) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

// Publish marshals the event and sends it on the configured topic
func (p *WatermillPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.Debug("Event published", "event_type", event.Type, "event_id", event.ID, "topic", p.topic)
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// Transport bundles the publisher with an in-process subscriber when one exists
type Transport struct {
	Publisher  *WatermillPublisher
	Subscriber message.Subscriber
}

// NewTransport picks Kafka when brokers are configured, otherwise an in-process channel
func NewTransport(cfg config.EventsConfig, logger *slog.Logger) (*Transport, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		logger.Info("Publishing events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.Topic)
		return &Transport{Publisher: NewWatermillPublisher(publisher, cfg.Topic, logger)}, nil
	}

	channel := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
	logger.Info("Publishing events in process", "topic", cfg.Topic)
	return &Transport{
		Publisher:  NewWatermillPublisher(channel, cfg.Topic, logger),
		Subscriber: channel,
	}, nil
}

// RunAuditLog logs every event received on topic until ctx is cancelled
func RunAuditLog(ctx context.Context, subscriber message.Subscriber, topic string, logger *slog.Logger) error {
	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				logger.Warn("Dropping malformed event", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			logger.Info("Audit event",
				"event_type", event.Type,
				"event_id", event.ID,
				"actor_id", event.ActorID,
				"occurred_at", event.OccurredAt)
			msg.Ack()
		}
	}()

	return nil
}

// MockEventPublisher records events in memory for tests
type MockEventPublisher struct {
	mu     sync.Mutex
	events []Event
	logger *slog.Logger
	err    error
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

func (m *MockEventPublisher) Publish(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MockEventPublisher) Close() error { return nil }

// FailWith makes subsequent Publish calls return err
func (m *MockEventPublisher) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// GetPublishedEvents returns a copy of the recorded events
func (m *MockEventPublisher) GetPublishedEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Types lists recorded event types in publish order
func (m *MockEventPublisher) Types() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventType, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}
