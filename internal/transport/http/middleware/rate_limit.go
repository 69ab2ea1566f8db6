package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
)

const (
	rateLimitProblemType  = "https://hopehand.org/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// ProblemDetails represents an RFC 9457 compatible error payload for rate limits.
type ProblemDetails struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail"`
	Instance   string         `json:"instance"`
	RetryAfter int            `json:"retry_after"`
	TraceID    string         `json:"trace_id,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// ApplyRateLimitHeaders exposes the limiter decision to clients.
func ApplyRateLimitHeaders(c *gin.Context, policy domain.RateLimitPolicy, decision domain.RateLimitDecision, now time.Time) {
	headers := c.Writer.Header()
	if policy.MaxAttempts > 0 {
		headers.Set("X-RateLimit-Limit", strconv.Itoa(policy.MaxAttempts))
	}
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(max(decision.RemainingAttempts, 0)))

	if decision.BlockedUntil != nil {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.BlockedUntil.Unix(), 10))
	}
	if !decision.Allowed {
		headers.Set("Retry-After", strconv.Itoa(retrySeconds(decision, now)))
	}
}

// AbortRateLimited rejects the request with a 429 problem document describing the block.
func AbortRateLimited(c *gin.Context, limitType domain.LimitType, policy domain.RateLimitPolicy, decision domain.RateLimitDecision, now time.Time) {
	ApplyRateLimitHeaders(c, policy, decision, now)

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	extensions := map[string]any{"limit_type": string(limitType)}
	if decision.BlockedUntil != nil {
		extensions["blocked_until"] = decision.BlockedUntil.UTC()
	}

	problem := ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     decision.Message(),
		Instance:   instance,
		RetryAfter: retrySeconds(decision, now),
		TraceID:    GetTraceID(c),
		Extensions: extensions,
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, problem)
}

func retrySeconds(decision domain.RateLimitDecision, now time.Time) int {
	seconds := int(math.Ceil(decision.RetryAfter(now).Seconds()))
	if seconds < 0 {
		return 0
	}
	return seconds
}
