package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/port"
)

// SessionPrincipal holds the signed-in principal of this deployment and performs sign-out.
type SessionPrincipal struct {
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time

	mu         sync.RWMutex
	current    *domain.Principal
	signedInAt time.Time
	onSignOut  []func(domain.Principal)
}

// NewSessionPrincipal constructs an empty holder. events may be nil.
func NewSessionPrincipal(events port.EventPublisher, logger *zap.Logger) *SessionPrincipal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionPrincipal{
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *SessionPrincipal) WithClock(now func() time.Time) *SessionPrincipal {
	if now != nil {
		s.now = now
	}
	return s
}

// OnSignOut registers a hook invoked after every successful sign-out.
func (s *SessionPrincipal) OnSignOut(fn func(domain.Principal)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSignOut = append(s.onSignOut, fn)
}

// SignIn records principal as the current session owner, replacing any previous one.
func (s *SessionPrincipal) SignIn(principal domain.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := principal
	s.current = &p
	s.signedInAt = s.now()
}

// CurrentPrincipal returns the signed-in principal, if any.
func (s *SessionPrincipal) CurrentPrincipal() (domain.Principal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Principal{}, false
	}
	return *s.current, true
}

// SignedInAt returns when the current principal signed in.
func (s *SessionPrincipal) SignedInAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return time.Time{}, false
	}
	return s.signedInAt, true
}

// SignOut publishes the sign-out event and clears the principal. The principal is kept when
// publishing fails so the caller can retry. Signing out with nobody signed in is a no-op.
func (s *SessionPrincipal) SignOut(ctx context.Context, reason string) error {
	principal, ok := s.CurrentPrincipal()
	if !ok {
		return nil
	}

	if s.events != nil {
		event := domain.SessionSignedOutEvent{
			EventID:     uuid.NewString(),
			UserID:      principal.ID,
			Reason:      reason,
			SignedOutAt: s.now(),
		}
		if err := s.events.PublishSessionSignedOut(ctx, event); err != nil {
			return fmt.Errorf("publish sign-out event: %w", err)
		}
	}

	s.mu.Lock()
	if s.current == nil || s.current.ID != principal.ID {
		s.mu.Unlock()
		return nil
	}
	s.current = nil
	s.signedInAt = time.Time{}
	hooks := append([]func(domain.Principal){}, s.onSignOut...)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(principal)
	}

	s.logger.Info("principal signed out",
		zap.String("user_id", principal.ID),
		zap.String("reason", reason),
	)
	return nil
}
