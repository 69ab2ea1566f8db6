package port

import (
	"context"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
	PublishSessionSignedOut(ctx context.Context, event domain.SessionSignedOutEvent) error
}
