package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/logger"
)

// RequestIDHeader is echoed on every response.
const RequestIDHeader = "X-Request-ID"

// RequestID stores a per-request correlation id on the request context so usecases and their logs can read it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := correlationID(c.GetHeader(RequestIDHeader))
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.RequestIDKey{}, id))
		c.Next()
	}
}
