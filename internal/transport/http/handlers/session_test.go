package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/usecase"
)

func TestSessionRoutesRequirePrincipal(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	for _, path := range []string{"/api/v1/session", "/api/v1/session/events"} {
		rr := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestSessionStateAndExtend(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.signIn(t, adminPrincipal())
	signedInAt := f.clock.Now()

	rr := f.do(t, http.MethodGet, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	state := decode[SessionResponse](t, rr)
	assert.True(t, state.Privileged)
	assert.Equal(t, int64((30 * time.Minute).Seconds()), state.TimeoutSeconds)
	assert.True(t, signedInAt.Equal(state.LastActivityAt))

	f.clock.Advance(10 * time.Minute)
	rr = f.do(t, http.MethodPost, "/api/v1/session/extend", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	state = decode[SessionResponse](t, rr)
	assert.True(t, f.clock.Now().Equal(state.LastActivityAt))
	assert.True(t, f.clock.Now().Add(30*time.Minute).Equal(state.ExpiresAt))
}

func TestSessionInteractionResetsIdleTimer(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.signIn(t, donorPrincipal())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	f.guard.Init(ctx)
	require.Equal(t, 1, f.feed.Count(domain.InteractionKeyDown))

	f.clock.Advance(45 * time.Minute)
	rr := f.do(t, http.MethodPost, "/api/v1/session/interactions", InteractionRequest{Kind: "keydown"})
	require.Equal(t, http.StatusAccepted, rr.Code)

	record, ok := f.guard.Snapshot(donorPrincipal().ID)
	require.True(t, ok)
	assert.True(t, f.clock.Now().Equal(record.LastActivityAt))

	rr = f.do(t, http.MethodPost, "/api/v1/session/interactions", InteractionRequest{Kind: "mousemove"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/v1/session/interactions", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSessionEventsStreamWarningAndTimeout(t *testing.T) {
	cfg := usecase.DefaultSessionGuardConfig()
	cfg.CheckInterval = 10 * time.Millisecond
	cfg.RetryDelay = time.Millisecond
	f := newFixture(t, fixtureOptions{guardCfg: &cfg})
	f.signIn(t, donorPrincipal())

	server := httptest.NewServer(f.engine)
	t.Cleanup(server.Close)

	reqCtx, cancelReq := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancelReq)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, server.URL+"/api/v1/session/events", nil)
	require.NoError(t, err)

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	events := make(chan string, 8)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if name, ok := strings.CutPrefix(line, "event:"); ok {
				events <- strings.TrimSpace(name)
			}
		}
	}()

	next := func() string {
		t.Helper()
		select {
		case name, ok := <-events:
			require.True(t, ok, "stream closed early")
			return name
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for session event")
			return ""
		}
	}

	require.Equal(t, "state", next())

	f.clock.Advance(121 * time.Minute)
	guardCtx, cancelGuard := context.WithCancel(context.Background())
	t.Cleanup(cancelGuard)
	f.guard.Init(guardCtx)

	assert.Equal(t, string(domain.SessionWarning), next())
	assert.Equal(t, string(domain.SessionTimeout), next())

	select {
	case _, ok := <-events:
		assert.False(t, ok, "stream should end after timeout")
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not close after timeout")
	}

	require.Eventually(t, func() bool {
		_, signedIn := f.session.CurrentPrincipal()
		return !signedIn
	}, 3*time.Second, 10*time.Millisecond)
}
