package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TraceIDHeader carries the caller-visible trace identifier.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the gin context key holding the trace identifier.
	TraceIDKey = "trace_id"
	// UserIDKey holds the signed-in user id once RequirePrincipal has run.
	UserIDKey = "user_id"
	// PrincipalKey holds the signed-in domain.Principal.
	PrincipalKey = "principal"

	maxCorrelationIDLength = 64
)

// EnrichContext assigns every request a trace identifier, honouring a well-formed one sent by the client.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := correlationID(c.GetHeader(TraceIDHeader))
		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)
		c.Next()
	}
}

// GetTraceID returns the identifier assigned by EnrichContext.
func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}

// correlationID keeps a client supplied id when it is short and printable, otherwise mints a new one.
func correlationID(candidate string) string {
	if candidate == "" || len(candidate) > maxCorrelationIDLength {
		return uuid.NewString()
	}
	for _, r := range candidate {
		if !isIDRune(r) {
			return uuid.NewString()
		}
	}
	return candidate
}

func isIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '.':
		return true
	}
	return false
}
