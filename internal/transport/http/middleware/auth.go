package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/port"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequirePrincipal rejects requests when nobody is signed in and stores the principal in the context.
func RequirePrincipal(principals port.PrincipalProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		if principals == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "not signed in"))
			return
		}
		principal, ok := principals.CurrentPrincipal()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "not signed in"))
			return
		}

		c.Set(UserIDKey, principal.ID)
		c.Set(PrincipalKey, principal)
		c.Next()
	}
}

// RequirePrivileged rejects principals outside the administrator tier. It must run after RequirePrincipal.
func RequirePrivileged() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "not signed in"))
			return
		}
		if !principal.IsPrivileged() {
			c.AbortWithStatusJSON(http.StatusForbidden, newErrorResponse(c, "administrator access required"))
			return
		}
		c.Next()
	}
}

// GetPrincipal retrieves the principal stored by RequirePrincipal.
func GetPrincipal(c *gin.Context) (domain.Principal, bool) {
	value, exists := c.Get(PrincipalKey)
	if !exists {
		return domain.Principal{}, false
	}
	principal, ok := value.(domain.Principal)
	return principal, ok
}
