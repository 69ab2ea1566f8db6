package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/port"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(log *zap.Logger) *StubPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &StubPublisher{logger: log}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published", append([]zap.Field{
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
	}, fields...)...)
}

// PublishPasswordResetRequested logs security.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.logEvent(EventPasswordResetRequested, "", event.RequestedAt,
		zap.String("request_id", event.RequestID),
		zap.String("email", logger.MaskEmail(event.Email)),
		zap.String("ip_address", logger.MaskIP(event.IPAddress)),
	)
	return nil
}

// PublishSessionSignedOut logs security.session.signed_out events.
func (p *StubPublisher) PublishSessionSignedOut(_ context.Context, event domain.SessionSignedOutEvent) error {
	p.logEvent(EventSessionSignedOut, event.UserID, event.SignedOutAt, zap.String("reason", event.Reason))
	return nil
}

// Log logs security.activity.logged entries.
func (p *StubPublisher) Log(_ context.Context, entry domain.ActivityEntry) error {
	p.logEvent(EventActivityLogged, entry.PrincipalID, entry.CreatedAt,
		zap.String("category", string(entry.Category)),
		zap.String("message", entry.Message),
		zap.Bool("success", entry.Success),
		zap.String("severity", string(entry.Severity)),
	)
	return nil
}

var (
	_ port.EventPublisher = (*StubPublisher)(nil)
	_ port.ActivityLogger = (*StubPublisher)(nil)
)
