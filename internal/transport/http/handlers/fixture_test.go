package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	red "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/port"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/config"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/interaction"
	kafkainfra "github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/kafka"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/security"
	redisrepo "github.com/Marina1234-cmd/HopeHand-sub000/internal/repository/redis"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/transport/http/middleware"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/usecase"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	engine  *gin.Engine
	clock   *testClock
	tokens  *security.TokenVerifier
	totp    *security.TOTPVerifier
	session *usecase.SessionPrincipal
	guard   *usecase.SessionGuard
	limiter *usecase.RateLimiter
	feed    *interaction.Feed
}

type fixtureOptions struct {
	events   port.EventPublisher
	activity ActivityLister
	guardCfg *usecase.SessionGuardConfig
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	server := miniredis.RunT(t)
	client := red.NewClient(&red.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zaptest.NewLogger(t)
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	store := redisrepo.NewRateLimitRepository(client, redisrepo.RateLimitConfig{KeyPrefix: "test:rate-limit", TTL: 48 * time.Hour})
	limiter := usecase.NewRateLimiter(store, logger).WithClock(clock.Now)

	events := opts.events
	if events == nil {
		events = kafkainfra.NewStubPublisher(logger)
	}

	session := usecase.NewSessionPrincipal(events, logger).WithClock(clock.Now)
	feed := interaction.NewFeed(logger)

	guardCfg := usecase.DefaultSessionGuardConfig()
	if opts.guardCfg != nil {
		guardCfg = *opts.guardCfg
	}
	guard := usecase.NewSessionGuard(guardCfg, session, session, nil, feed, logger).WithClock(clock.Now)
	session.OnSignOut(func(p domain.Principal) { guard.EndSession(p.ID) })
	t.Cleanup(guard.Destroy)

	authCfg := config.AuthSettings{
		TokenSecret: "handler-test-secret",
		TokenIssuer: "hopehand-test",
		AdminRole:   "admin",
		TOTPIssuer:  "HopeHand",
	}
	tokens := security.NewTokenVerifier(authCfg).WithClock(clock.Now)
	totp := security.NewTOTPVerifier(authCfg).WithClock(clock.Now)

	auth, err := usecase.NewAuthService(usecase.AuthDependencies{
		Limiter:   limiter,
		Identity:  tokens,
		TwoFactor: totp,
		Secrets:   redisrepo.NewTwoFactorSecretRepository(client, "test:mfa"),
		Session:   session,
		Guard:     guard,
		Events:    events,
	}, logger)
	require.NoError(t, err)
	auth.WithClock(clock.Now)

	engine := gin.New()
	engine.Use(middleware.EnrichContext())
	requirePrincipal := middleware.RequirePrincipal(session)

	api := engine.Group("/api/v1")
	NewAuthHandler(auth, guard, limiter).WithClock(clock.Now).RegisterRoutes(api.Group("/auth"), requirePrincipal)

	sessionGroup := api.Group("/session")
	sessionGroup.Use(requirePrincipal)
	NewSessionHandler(guard, feed).RegisterRoutes(sessionGroup)

	adminGroup := api.Group("/admin")
	adminGroup.Use(requirePrincipal, middleware.RequirePrivileged())
	NewAdminHandler(limiter, opts.activity).RegisterRoutes(adminGroup)

	return &fixture{
		engine:  engine,
		clock:   clock,
		tokens:  tokens,
		totp:    totp,
		session: session,
		guard:   guard,
		limiter: limiter,
		feed:    feed,
	}
}

func donorPrincipal() domain.Principal {
	return domain.Principal{ID: "donor-1", Email: "donor@example.org", Tier: domain.TierRegular}
}

func adminPrincipal() domain.Principal {
	return domain.Principal{ID: "admin-1", Email: "admin@example.org", Tier: domain.TierPrivileged}
}

func (f *fixture) issue(t *testing.T, principal domain.Principal) string {
	t.Helper()
	var roles []string
	if principal.IsPrivileged() {
		roles = []string{"admin"}
	}
	token, err := f.tokens.Issue(principal, roles, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *fixture) signIn(t *testing.T, principal domain.Principal) {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/api/v1/auth/sign-in", SignInRequest{Email: principal.Email, IDToken: f.issue(t, principal)})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader).WithContext(context.Background())
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:41234"

	rr := httptest.NewRecorder()
	f.engine.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}
