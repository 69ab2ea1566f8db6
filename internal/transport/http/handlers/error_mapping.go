package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/transport/http/middleware"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// PolicyLookup resolves the policy of a limit type for response headers.
type PolicyLookup interface {
	Policy(limitType domain.LimitType) (domain.RateLimitPolicy, bool)
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

// respondLimiterError renders rate-limit rejections and counted failures. It reports whether
// err was one of them.
func respondLimiterError(c *gin.Context, err error, policies PolicyLookup, now time.Time) bool {
	var limited *usecase.RateLimitError
	if errors.As(err, &limited) {
		var policy domain.RateLimitPolicy
		if policies != nil {
			policy, _ = policies.Policy(limited.Type)
		}
		middleware.AbortRateLimited(c, limited.Type, policy, limited.Decision, now)
		return true
	}

	var attempt *usecase.AttemptError
	if errors.As(err, &attempt) {
		remaining := attempt.RemainingAttempts
		resp := NewErrorResponse(c, attempt.Error())
		resp.RemainingAttempts = &remaining
		resp.Warning = domain.RateLimitDecision{Allowed: true, RemainingAttempts: remaining}.Warning()
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.JSON(http.StatusUnauthorized, resp)
		return true
	}
	return false
}
