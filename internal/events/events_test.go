package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/student-records-service/internal/config"
)

func TestInProcessTransportDeliversEvents(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	transport, err := NewTransport(config.EventsConfig{Topic: "test.events"}, logger)
	if err != nil {
		t.Fatalf("NewTransport() error = %v", err)
	}
	defer transport.Publisher.Close()

	if transport.Subscriber == nil {
		t.Fatal("expected in-process subscriber without kafka brokers")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := transport.Subscriber.Subscribe(ctx, "test.events")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	event := NewEvent(MarksRecorded, 3, map[string]any{"student_id": 9})
	if err := transport.Publisher.Publish(ctx, event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-messages:
		defer msg.Ack()
		if got := msg.Metadata.Get("event_type"); got != string(MarksRecorded) {
			t.Errorf("event_type metadata = %q", got)
		}
		var decoded Event
		if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if decoded.ID != event.ID || decoded.ActorID != 3 || decoded.Type != MarksRecorded {
			t.Errorf("decoded = %+v", decoded)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(slog.Default())
	_ = mock.Publish(context.Background(), NewEvent(StudentCreated, 1, nil))
	_ = mock.Publish(context.Background(), NewEvent(StudentDeleted, 1, nil))

	types := mock.Types()
	if len(types) != 2 || types[0] != StudentCreated || types[1] != StudentDeleted {
		t.Fatalf("Types() = %v", types)
	}
}
