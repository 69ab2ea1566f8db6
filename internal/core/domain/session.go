package domain

import "time"

// SessionEventKind enumerates idle-session notifications.
type SessionEventKind string

const (
	SessionWarning SessionEventKind = "warning"
	SessionTimeout SessionEventKind = "timeout"
)

// SessionRecord tracks inactivity for one signed-in principal. It is never persisted.
type SessionRecord struct {
	UserID         string
	LastActivityAt time.Time
	WarningIssued  bool
}

// Idle returns how long the session has been inactive at the supplied instant.
func (s SessionRecord) Idle(at time.Time) time.Duration {
	if s.LastActivityAt.IsZero() {
		return 0
	}
	return at.Sub(s.LastActivityAt)
}

// SessionEvent is delivered to subscribers when a session is warned or timed out.
type SessionEvent struct {
	Kind     SessionEventKind `json:"kind"`
	UserID   string           `json:"user_id"`
	At       time.Time        `json:"at"`
	Deadline time.Time        `json:"deadline"`
}

// SessionState describes the current principal's session for display.
type SessionState struct {
	UserID         string        `json:"user_id"`
	Privileged     bool          `json:"privileged"`
	LastActivityAt time.Time     `json:"last_activity_at"`
	WarningIssued  bool          `json:"warning_issued"`
	Timeout        time.Duration `json:"timeout"`
	ExpiresAt      time.Time     `json:"expires_at"`
}
