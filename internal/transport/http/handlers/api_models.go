package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error             string `json:"error"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
	Warning           string `json:"warning,omitempty"`
	TraceID           string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// PrincipalSummary describes the signed-in principal.
type PrincipalSummary struct {
	ID         string `json:"id"`
	Email      string `json:"email,omitempty"`
	Privileged bool   `json:"privileged"`
}

func newPrincipalSummary(p domain.Principal) PrincipalSummary {
	return PrincipalSummary{ID: p.ID, Email: p.Email, Privileged: p.IsPrivileged()}
}

// SignInRequest defines the payload for the sign-in endpoint.
type SignInRequest struct {
	Email   string `json:"email" binding:"required"`
	IDToken string `json:"id_token" binding:"required"`
}

// SignInResponse is returned after a successful sign-in.
type SignInResponse struct {
	Principal PrincipalSummary `json:"principal"`
	Session   SessionResponse  `json:"session"`
}

// TwoFactorVerifyRequest carries a one-time code.
type TwoFactorVerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

// TwoFactorEnrollResponse returns a freshly generated secret.
type TwoFactorEnrollResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
}

// PasswordResetRequest defines the payload for requesting a reset link.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

// SessionResponse describes the idle state of the current session.
type SessionResponse struct {
	UserID         string    `json:"user_id"`
	Privileged     bool      `json:"privileged"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	TimeoutSeconds int64     `json:"timeout_seconds"`
	WarningIssued  bool      `json:"warning_issued"`
}

func newSessionResponse(state domain.SessionState) SessionResponse {
	return SessionResponse{
		UserID:         state.UserID,
		Privileged:     state.Privileged,
		LastActivityAt: state.LastActivityAt,
		ExpiresAt:      state.ExpiresAt,
		TimeoutSeconds: int64(state.Timeout / time.Second),
		WarningIssued:  state.WarningIssued,
	}
}

// InteractionRequest reports a UI gesture.
type InteractionRequest struct {
	Kind string `json:"kind" binding:"required"`
}

// RateLimitStatusResponse is the admin view of a rate-limit key.
type RateLimitStatusResponse struct {
	Type              string     `json:"type"`
	Identifier        string     `json:"identifier"`
	IsBlocked         bool       `json:"is_blocked"`
	RemainingAttempts int        `json:"remaining_attempts"`
	BlockedUntil      *time.Time `json:"blocked_until,omitempty"`
}

// ActivityEntryResponse is one audit record.
type ActivityEntryResponse struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	PrincipalID string    `json:"principal_id"`
	Message     string    `json:"message"`
	Success     bool      `json:"success"`
	Severity    string    `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActivityListResponse wraps a page of audit records.
type ActivityListResponse struct {
	Entries []ActivityEntryResponse `json:"entries"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
