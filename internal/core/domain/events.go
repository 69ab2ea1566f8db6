package domain

import "time"

// PasswordResetRequestedEvent represents the payload for security.password.reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID     string
	RequestID   string
	Email       string
	IPAddress   string
	RequestedAt time.Time
}

// SessionSignedOutEvent represents the payload for security.session.signed_out messages.
type SessionSignedOutEvent struct {
	EventID     string
	UserID      string
	Reason      string
	SignedOutAt time.Time
}

// Sign-out reasons carried on SessionSignedOutEvent.
const (
	SignOutReasonUser    = "user_sign_out"
	SignOutReasonTimeout = "idle_timeout"
)
