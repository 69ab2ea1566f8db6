package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/port"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/telemetry"
)

// SessionGuardConfig configures idle timeouts and the side-effect retry policy.
type SessionGuardConfig struct {
	AdminTimeout   time.Duration
	RegularTimeout time.Duration
	WarningBefore  time.Duration
	CheckInterval  time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

// DefaultSessionGuardConfig returns the stock timeouts.
func DefaultSessionGuardConfig() SessionGuardConfig {
	return SessionGuardConfig{
		AdminTimeout:   30 * time.Minute,
		RegularTimeout: 120 * time.Minute,
		WarningBefore:  5 * time.Minute,
		CheckInterval:  time.Minute,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

func (c SessionGuardConfig) withDefaults() SessionGuardConfig {
	def := DefaultSessionGuardConfig()
	if c.AdminTimeout <= 0 {
		c.AdminTimeout = def.AdminTimeout
	}
	if c.RegularTimeout <= 0 {
		c.RegularTimeout = def.RegularTimeout
	}
	if c.WarningBefore < 0 {
		c.WarningBefore = def.WarningBefore
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = def.CheckInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = def.RetryDelay
	}
	return c
}

// SessionCallback receives warning and timeout notifications for one user.
type SessionCallback func(domain.SessionEvent)

type subscription struct {
	id uint64
	cb SessionCallback
}

// SessionGuard signs out idle sessions after a role-dependent timeout, warning the
// subscriber shortly before the deadline.
//
// Lifecycle: construct, Init once, Destroy once. A destroyed guard is not reusable.
type SessionGuard struct {
	cfg          SessionGuardConfig
	principals   port.PrincipalProvider
	signOut      port.SignOuter
	activity     port.ActivityLogger
	interactions port.InteractionSource
	metrics      *telemetry.SessionMetrics
	logger       *zap.Logger
	retry        RetryPolicy
	now          func() time.Time
	checking     atomic.Bool

	mu             sync.Mutex
	lastActivity   map[string]time.Time
	warningShown   map[string]bool
	subscribers    map[string]subscription
	nextSubID      uint64
	stopListeners  []func()
	initialized    bool
	destroyed      bool
	stop           chan struct{}
	checkerStopped chan struct{}
}

// NewSessionGuard constructs a guard. activity and interactions may be nil.
func NewSessionGuard(cfg SessionGuardConfig, principals port.PrincipalProvider, signOut port.SignOuter, activity port.ActivityLogger, interactions port.InteractionSource, logger *zap.Logger) *SessionGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	return &SessionGuard{
		cfg:          cfg,
		principals:   principals,
		signOut:      signOut,
		activity:     activity,
		interactions: interactions,
		logger:       logger,
		retry:        RetryPolicy{MaxAttempts: cfg.MaxRetries, Delay: cfg.RetryDelay},
		now:          func() time.Time { return time.Now().UTC() },
		lastActivity: make(map[string]time.Time),
		warningShown: make(map[string]bool),
		subscribers:  make(map[string]subscription),
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (g *SessionGuard) WithClock(now func() time.Time) *SessionGuard {
	if now != nil {
		g.now = now
	}
	return g
}

// WithMetrics attaches session event counters.
func (g *SessionGuard) WithMetrics(metrics *telemetry.SessionMetrics) *SessionGuard {
	g.metrics = metrics
	return g
}

// Init starts the periodic checker and registers interaction listeners. Calling it twice,
// or after Destroy, only logs a warning.
func (g *SessionGuard) Init(ctx context.Context) {
	g.mu.Lock()
	if g.destroyed {
		g.mu.Unlock()
		g.logger.Warn("session guard init called after destroy")
		return
	}
	if g.initialized {
		g.mu.Unlock()
		g.logger.Warn("session guard already initialized")
		return
	}
	g.initialized = true
	g.stop = make(chan struct{})
	g.checkerStopped = make(chan struct{})
	stop, stopped := g.stop, g.checkerStopped
	g.mu.Unlock()

	if g.interactions != nil {
		listeners := make([]func(), 0, len(domain.TrackedInteractions()))
		for _, kind := range domain.TrackedInteractions() {
			listeners = append(listeners, g.interactions.Listen(kind, g.UpdateActivity))
		}
		g.mu.Lock()
		g.stopListeners = listeners
		g.mu.Unlock()
	}

	go g.run(ctx, stop, stopped)

	g.logger.Info("session guard initialized",
		zap.Duration("admin_timeout", g.cfg.AdminTimeout),
		zap.Duration("regular_timeout", g.cfg.RegularTimeout),
		zap.Duration("warning_before", g.cfg.WarningBefore),
		zap.Duration("check_interval", g.cfg.CheckInterval),
	)
}

// run drives the checker. The ticker drops ticks while a slow check is still running.
func (g *SessionGuard) run(ctx context.Context, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(g.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			g.checkSessions(ctx)
		}
	}
}

// UpdateActivity resets the idle timer of the signed-in principal.
func (g *SessionGuard) UpdateActivity() {
	principal, ok := g.currentPrincipal()
	if !ok {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.destroyed {
		return
	}
	g.lastActivity[principal.ID] = g.now()
	delete(g.warningShown, principal.ID)
}

// Subscribe registers the single callback for userID, replacing any previous one.
// The returned function removes the callback only; the idle clock keeps running until sign-out.
func (g *SessionGuard) Subscribe(userID string, cb SessionCallback) func() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.destroyed {
		g.logger.Warn("subscribe called on destroyed session guard", zap.String("user_id", userID))
		return func() {}
	}

	g.nextSubID++
	id := g.nextSubID
	g.subscribers[userID] = subscription{id: id, cb: cb}

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		current, ok := g.subscribers[userID]
		if !ok || current.id != id {
			return
		}
		delete(g.subscribers, userID)
	}
}

// EndSession forgets the session record of userID after an explicit sign-out.
func (g *SessionGuard) EndSession(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.lastActivity, userID)
	delete(g.warningShown, userID)
}

// State reports the idle state of the signed-in principal.
func (g *SessionGuard) State() (domain.SessionState, bool) {
	principal, ok := g.currentPrincipal()
	if !ok {
		return domain.SessionState{}, false
	}

	now := g.now()
	timeout := g.timeoutFor(principal)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.destroyed {
		return domain.SessionState{}, false
	}
	last, seen := g.lastActivity[principal.ID]
	if !seen {
		last = now
	}

	return domain.SessionState{
		UserID:         principal.ID,
		Privileged:     principal.IsPrivileged(),
		LastActivityAt: last,
		WarningIssued:  g.warningShown[principal.ID],
		Timeout:        timeout,
		ExpiresAt:      last.Add(timeout),
	}, true
}

// Snapshot returns the tracked record for userID without modifying it.
func (g *SessionGuard) Snapshot(userID string) (domain.SessionRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.lastActivity[userID]
	if !ok {
		return domain.SessionRecord{}, false
	}
	return domain.SessionRecord{UserID: userID, LastActivityAt: last, WarningIssued: g.warningShown[userID]}, true
}

// Destroy stops the checker, removes listeners and clears all state. It does not wait for
// an in-flight check to finish.
func (g *SessionGuard) Destroy() {
	g.mu.Lock()
	if g.destroyed {
		g.mu.Unlock()
		return
	}
	g.destroyed = true
	if g.stop != nil {
		close(g.stop)
	}
	listeners := g.stopListeners
	g.stopListeners = nil
	g.lastActivity = make(map[string]time.Time)
	g.warningShown = make(map[string]bool)
	g.subscribers = make(map[string]subscription)
	g.mu.Unlock()

	for _, remove := range listeners {
		if remove != nil {
			remove()
		}
	}

	g.logger.Info("session guard destroyed")
}

// IsDestroyed reports whether Destroy has been called.
func (g *SessionGuard) IsDestroyed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.destroyed
}

// checkSessions evaluates the signed-in principal once. A call that overlaps a running
// check is skipped.
func (g *SessionGuard) checkSessions(ctx context.Context) {
	if !g.checking.CompareAndSwap(false, true) {
		g.logger.Debug("session check already running, skipping tick")
		return
	}
	defer g.checking.Store(false)

	principal, ok := g.currentPrincipal()
	if !ok {
		return
	}

	now := g.now()
	timeout := g.timeoutFor(principal)

	g.mu.Lock()
	if g.destroyed {
		g.mu.Unlock()
		return
	}
	last, seen := g.lastActivity[principal.ID]
	if !seen {
		// Start the clock on first observation so an untouched session cannot live forever.
		last = now
		g.lastActivity[principal.ID] = now
	}
	idle := now.Sub(last)

	warn := timeout-idle <= g.cfg.WarningBefore && !g.warningShown[principal.ID]
	if warn {
		g.warningShown[principal.ID] = true
	}
	expired := idle >= timeout
	sub := g.subscribers[principal.ID]
	g.mu.Unlock()

	deadline := last.Add(timeout)
	if warn {
		g.issueWarning(ctx, principal, sub.cb, now, deadline)
	}
	if expired && g.terminate(ctx, principal, sub.cb, now, deadline) {
		g.EndSession(principal.ID)
	}
}

func (g *SessionGuard) issueWarning(ctx context.Context, principal domain.Principal, cb SessionCallback, now, deadline time.Time) {
	g.notify(cb, domain.SessionEvent{Kind: domain.SessionWarning, UserID: principal.ID, At: now, Deadline: deadline})
	g.metrics.ObserveEvent(string(domain.SessionWarning))

	msg := fmt.Sprintf("session idle warning issued; expires at %s", deadline.Format(time.RFC3339))
	if err := g.logActivity(ctx, principal, msg, true, domain.SeverityWarning); err != nil {
		g.logger.Warn("failed to log session warning", zap.String("user_id", principal.ID), zap.Error(err))
	}
}

// terminate reports whether the principal was signed out. On failure the record is left
// untouched so the next tick times the session out again.
func (g *SessionGuard) terminate(ctx context.Context, principal domain.Principal, cb SessionCallback, now, deadline time.Time) bool {
	g.notify(cb, domain.SessionEvent{Kind: domain.SessionTimeout, UserID: principal.ID, At: now, Deadline: deadline})
	g.metrics.ObserveEvent(string(domain.SessionTimeout))

	err := g.retry.Do(ctx, g.logger, "sign_out", func(ctx context.Context) error {
		if g.signOut == nil {
			return nil
		}
		return g.signOut.SignOut(ctx, domain.SignOutReasonTimeout)
	})
	if err != nil {
		g.metrics.ObserveSignOutFailure()
		g.logger.Error("forced sign-out failed after retries",
			zap.String("user_id", principal.ID),
			zap.String("severity", string(domain.SeverityCritical)),
			zap.Int("attempts", g.cfg.MaxRetries),
			zap.Error(err),
		)
		if logErr := g.logActivity(ctx, principal, "forced sign-out after idle timeout failed", false, domain.SeverityCritical); logErr != nil {
			g.logger.Error("failed to log sign-out failure", zap.String("user_id", principal.ID), zap.Error(logErr))
		}
		return false
	}

	if err := g.logActivity(ctx, principal, "session terminated after idle timeout", true, domain.SeverityInfo); err != nil {
		g.logger.Error("failed to log session termination", zap.String("user_id", principal.ID), zap.Error(err))
	}
	g.logger.Info("idle session terminated", zap.String("user_id", principal.ID), zap.Time("deadline", deadline))
	return true
}

func (g *SessionGuard) logActivity(ctx context.Context, principal domain.Principal, message string, success bool, severity domain.Severity) error {
	if g.activity == nil {
		return nil
	}
	entry := domain.ActivityEntry{
		ID:          uuid.NewString(),
		Category:    domain.CategorySession,
		PrincipalID: principal.ID,
		Message:     message,
		Success:     success,
		Severity:    severity,
		CreatedAt:   g.now(),
	}
	return g.retry.Do(ctx, g.logger, "activity_log", func(ctx context.Context) error {
		return g.activity.Log(ctx, entry)
	})
}

// notify invokes a subscriber without letting a panicking callback kill the checker.
func (g *SessionGuard) notify(cb SessionCallback, event domain.SessionEvent) {
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("session subscriber panicked",
				zap.String("user_id", event.UserID),
				zap.String("kind", string(event.Kind)),
				zap.Any("panic", r),
			)
		}
	}()
	cb(event)
}

func (g *SessionGuard) timeoutFor(principal domain.Principal) time.Duration {
	if principal.IsPrivileged() {
		return g.cfg.AdminTimeout
	}
	return g.cfg.RegularTimeout
}

func (g *SessionGuard) currentPrincipal() (domain.Principal, bool) {
	if g.principals == nil {
		return domain.Principal{}, false
	}
	principal, ok := g.principals.CurrentPrincipal()
	if !ok || principal.ID == "" {
		return domain.Principal{}, false
	}
	return principal, true
}
