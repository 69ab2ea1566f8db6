package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
)

type fixedPrincipal struct {
	principal *domain.Principal
}

func (f fixedPrincipal) CurrentPrincipal() (domain.Principal, bool) {
	if f.principal == nil {
		return domain.Principal{}, false
	}
	return *f.principal, true
}

func serveAdmin(t *testing.T, provider fixedPrincipal) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/admin", RequirePrincipal(provider), RequirePrivileged(), func(c *gin.Context) {
		if _, ok := GetPrincipal(c); !ok {
			t.Fatalf("principal missing from context")
		}
		c.Status(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", nil))
	return rr.Code
}

func TestRequirePrincipalAndPrivileged(t *testing.T) {
	if code := serveAdmin(t, fixedPrincipal{}); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without principal, got %d", code)
	}

	donor := &domain.Principal{ID: "donor-1", Tier: domain.TierRegular}
	if code := serveAdmin(t, fixedPrincipal{principal: donor}); code != http.StatusForbidden {
		t.Fatalf("expected 403 for regular tier, got %d", code)
	}

	admin := &domain.Principal{ID: "admin-1", Tier: domain.TierPrivileged}
	if code := serveAdmin(t, fixedPrincipal{principal: admin}); code != http.StatusNoContent {
		t.Fatalf("expected 204 for admin, got %d", code)
	}
}
