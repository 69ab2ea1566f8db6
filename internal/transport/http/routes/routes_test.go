package routes_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/config"
	httproutes "github.com/Marina1234-cmd/HopeHand-sub000/internal/transport/http/routes"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/usecase"
)

type failingDatabase struct{}

func (failingDatabase) Ping(context.Context) error { return errors.New("connection refused") }

type fixedPrincipal struct{}

func (fixedPrincipal) CurrentPrincipal() (domain.Principal, bool) {
	return domain.Principal{ID: "donor-1", Tier: domain.TierRegular}, true
}

func serve(r http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := zap.NewDevelopment()
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	r := httproutes.Register(httproutes.Dependencies{
		Config: cfg,
		Logger: logger,
	})

	w := serve(r, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestReadinessEndpointReportsDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	r := httproutes.Register(httproutes.Dependencies{
		Config:   cfg,
		Logger:   zap.NewNop(),
		Database: failingDatabase{},
	})

	w := serve(r, http.MethodGet, "/readyz", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test", AllowedOrigins: []string{"https://hopehand.org"}}}

	r := httproutes.Register(httproutes.Dependencies{Config: cfg, Logger: zap.NewNop()})

	w := serve(r, http.MethodOptions, "/api/v1/auth/sign-in", http.Header{"Origin": []string{"https://hopehand.org"}})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://hopehand.org" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}

func TestAdminRoutesRejectRegularPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	r := httproutes.Register(httproutes.Dependencies{
		Config:     cfg,
		Logger:     zap.NewNop(),
		Principals: fixedPrincipal{},
		Services: httproutes.ServiceSet{
			Limiter: usecase.NewRateLimiter(nil, zap.NewNop()),
		},
	})

	w := serve(r, http.MethodGet, "/api/v1/admin/rate-limits/login/donor@example.org", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", w.Code)
	}
}
