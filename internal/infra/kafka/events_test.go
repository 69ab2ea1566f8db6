package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T) (*EventPublisher, *fakeAsyncProducer) {
	t.Helper()
	asyncProducer := newFakeAsyncProducer()

	producer := newProducer(&asyncSender{producer: asyncProducer}, "hopehand", zaptest.NewLogger(t))
	t.Cleanup(func() { _ = producer.Close() })

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "hopehand-guard",
		Env:  "test",
	}, zaptest.NewLogger(t))
	return publisher, asyncProducer
}

func receiveEnvelope(t *testing.T, asyncProducer *fakeAsyncProducer) (*sarama.ProducerMessage, map[string]any) {
	t.Helper()
	select {
	case msg := <-asyncProducer.input:
		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}
		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}
		return msg, envelope
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
	return nil, nil
}

func TestPublishSessionSignedOut(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	signedOutAt := time.Date(2025, 10, 12, 10, 30, 0, 0, time.UTC)
	event := domain.SessionSignedOutEvent{
		EventID:     "event-123",
		UserID:      "admin-1",
		Reason:      domain.SignOutReasonTimeout,
		SignedOutAt: signedOutAt,
	}

	if err := publisher.PublishSessionSignedOut(context.Background(), event); err != nil {
		t.Fatalf("PublishSessionSignedOut returned error: %v", err)
	}

	msg, envelope := receiveEnvelope(t, asyncProducer)
	if msg.Topic != "hopehand.security.session.signed_out" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	if key, _ := msg.Key.Encode(); string(key) != "admin-1" {
		t.Fatalf("unexpected key: %s", key)
	}
	if got := envelope["event_id"]; got != "event-123" {
		t.Fatalf("unexpected event_id: %v", got)
	}
	if got := envelope["user_id"]; got != "admin-1" {
		t.Fatalf("unexpected user_id: %v", got)
	}
	if got := envelope["timestamp"]; got != signedOutAt.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected timestamp: %v", got)
	}

	payload, ok := envelope["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload not a map: %T", envelope["payload"])
	}
	if payload["reason"] != domain.SignOutReasonTimeout {
		t.Fatalf("unexpected reason: %v", payload["reason"])
	}

	metadata, ok := envelope["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("envelope metadata not a map: %T", envelope["metadata"])
	}
	if metadata["service"] != "hopehand-guard" || metadata["environment"] != "test" {
		t.Fatalf("unexpected metadata: %v", metadata)
	}
}

func TestPublishPasswordResetRequested(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	event := domain.PasswordResetRequestedEvent{
		RequestID:   "req-1",
		Email:       "donor@example.com",
		IPAddress:   "198.51.100.7",
		RequestedAt: time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC),
	}
	if err := publisher.PublishPasswordResetRequested(context.Background(), event); err != nil {
		t.Fatalf("PublishPasswordResetRequested returned error: %v", err)
	}

	msg, envelope := receiveEnvelope(t, asyncProducer)
	if msg.Topic != "hopehand.security.password.reset_requested" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	if msg.Key != nil {
		t.Fatalf("reset requests should not be keyed")
	}
	if id, _ := envelope["event_id"].(string); id == "" {
		t.Fatalf("expected generated event id")
	}
	payload := envelope["payload"].(map[string]any)
	if payload["email"] != "donor@example.com" || payload["request_id"] != "req-1" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestLogActivityEntry(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	entry := domain.ActivityEntry{
		ID:          "entry-1",
		Category:    domain.CategorySession,
		PrincipalID: "admin-1",
		Message:     "forced sign-out after idle timeout failed",
		Severity:    domain.SeverityCritical,
		CreatedAt:   time.Date(2025, 10, 12, 10, 30, 0, 0, time.UTC),
	}
	if err := publisher.Log(context.Background(), entry); err != nil {
		t.Fatalf("Log returned error: %v", err)
	}

	msg, envelope := receiveEnvelope(t, asyncProducer)
	if msg.Topic != "hopehand.security.activity.logged" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	payload := envelope["payload"].(map[string]any)
	if payload["severity"] != "critical" || payload["success"] != false {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)
	asyncProducer.input <- &sarama.ProducerMessage{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishSessionSignedOut(ctx, domain.SessionSignedOutEvent{UserID: "u"})
	if err == nil {
		t.Fatalf("expected context error when the producer is saturated")
	}
}

func TestTopicName(t *testing.T) {
	producer := &Producer{prefix: "hopehand"}
	if got := producer.TopicName("security.session.signed_out"); got != "hopehand.security.session.signed_out" {
		t.Fatalf("unexpected topic %s", got)
	}
	if got := producer.TopicName("hopehand.already"); got != "hopehand.already" {
		t.Fatalf("prefix should not be doubled, got %s", got)
	}
	producer.prefix = ""
	if got := producer.TopicName("plain"); got != "plain" {
		t.Fatalf("unexpected topic %s", got)
	}
}

func TestStubPublisherImplementsSinks(t *testing.T) {
	stub := NewStubPublisher(zaptest.NewLogger(t))
	ctx := context.Background()
	if err := stub.PublishSessionSignedOut(ctx, domain.SessionSignedOutEvent{UserID: "u"}); err != nil {
		t.Fatalf("stub sign-out: %v", err)
	}
	if err := stub.PublishPasswordResetRequested(ctx, domain.PasswordResetRequestedEvent{Email: "a@b.c"}); err != nil {
		t.Fatalf("stub reset: %v", err)
	}
	if err := stub.Log(ctx, domain.ActivityEntry{PrincipalID: "u"}); err != nil {
		t.Fatalf("stub log: %v", err)
	}
}
