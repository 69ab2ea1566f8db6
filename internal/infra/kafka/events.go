package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/port"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types published to the bus.
const (
	EventPasswordResetRequested = "security.password.reset_requested"
	EventSessionSignedOut       = "security.session.signed_out"
	EventActivityLogged         = "security.activity.logged"
)

// EventPublisher implements port.EventPublisher and port.ActivityLogger using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}
	if userID != "" {
		message.Key = sarama.StringEncoder(userID)
	}

	return p.producer.Send(ctx, message)
}

// PublishPasswordResetRequested publishes security.password.reset_requested events.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := struct {
		RequestID   string    `json:"request_id,omitempty"`
		Email       string    `json:"email"`
		IPAddress   string    `json:"ip_address,omitempty"`
		RequestedAt time.Time `json:"requested_at"`
	}{
		RequestID:   event.RequestID,
		Email:       event.Email,
		IPAddress:   event.IPAddress,
		RequestedAt: event.RequestedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventPasswordResetRequested, "", event.RequestedAt, payload)
}

// PublishSessionSignedOut publishes security.session.signed_out events.
func (p *EventPublisher) PublishSessionSignedOut(ctx context.Context, event domain.SessionSignedOutEvent) error {
	payload := struct {
		UserID      string    `json:"user_id"`
		Reason      string    `json:"reason"`
		SignedOutAt time.Time `json:"signed_out_at"`
	}{
		UserID:      event.UserID,
		Reason:      event.Reason,
		SignedOutAt: event.SignedOutAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventSessionSignedOut, event.UserID, event.SignedOutAt, payload)
}

// Log publishes an activity entry as security.activity.logged.
func (p *EventPublisher) Log(ctx context.Context, entry domain.ActivityEntry) error {
	payload := struct {
		Category    string    `json:"category"`
		PrincipalID string    `json:"principal_id"`
		Message     string    `json:"message"`
		Success     bool      `json:"success"`
		Severity    string    `json:"severity"`
		CreatedAt   time.Time `json:"created_at"`
	}{
		Category:    string(entry.Category),
		PrincipalID: entry.PrincipalID,
		Message:     entry.Message,
		Success:     entry.Success,
		Severity:    string(entry.Severity),
		CreatedAt:   entry.CreatedAt.UTC(),
	}

	return p.publish(ctx, entry.ID, EventActivityLogged, entry.PrincipalID, entry.CreatedAt, payload)
}

var (
	_ port.EventPublisher = (*EventPublisher)(nil)
	_ port.ActivityLogger = (*EventPublisher)(nil)
)
