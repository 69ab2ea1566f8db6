package domain

import "time"

// Severity grades an activity log entry.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ActivityCategory groups audit entries.
type ActivityCategory string

const (
	CategoryAuth     ActivityCategory = "auth"
	CategorySecurity ActivityCategory = "security"
	CategorySession  ActivityCategory = "session"
)

// ActivityEntry is one audit record handed to the activity sinks.
type ActivityEntry struct {
	ID          string
	Category    ActivityCategory
	PrincipalID string
	Message     string
	Success     bool
	Severity    Severity
	CreatedAt   time.Time
}

// Interaction is a UI gesture that counts as session activity.
type Interaction string

const (
	InteractionPointerDown Interaction = "pointerdown"
	InteractionKeyDown     Interaction = "keydown"
	InteractionTouchStart  Interaction = "touchstart"
	InteractionScroll      Interaction = "scroll"
)

// TrackedInteractions lists the gestures that reset the idle timer.
func TrackedInteractions() []Interaction {
	return []Interaction{
		InteractionPointerDown,
		InteractionKeyDown,
		InteractionTouchStart,
		InteractionScroll,
	}
}

// IsTracked reports whether the interaction resets the idle timer.
func (i Interaction) IsTracked() bool {
	for _, tracked := range TrackedInteractions() {
		if tracked == i {
			return true
		}
	}
	return false
}
