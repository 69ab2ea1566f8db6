package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/port"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/logger"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/telemetry"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/repository"
)

// failOpenRemaining is reported when the store cannot be reached and the attempt is let through.
const failOpenRemaining = 1

// RateLimiter bounds sensitive-action attempts per (limit type, identifier) with a sliding
// window and a timed block once the window is exhausted.
//
// Storage failures fail open by default: the attempt is allowed so that an outage of the
// record store never locks legitimate users out. A strict degradation policy rejects instead.
type RateLimiter struct {
	store       port.RateLimitStore
	policies    domain.RateLimitPolicies
	degradation domain.DegradationPolicy
	activity    port.ActivityLogger
	metrics     *telemetry.RateLimitMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewRateLimiter constructs a limiter using the built-in policy table.
func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{
		store:    store,
		policies: domain.DefaultRateLimitPolicies(),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		l.now = now
	}
	return l
}

// WithPolicies replaces the policy table.
func (l *RateLimiter) WithPolicies(policies domain.RateLimitPolicies) *RateLimiter {
	if len(policies) > 0 {
		l.policies = policies
	}
	return l
}

// WithDegradationPolicy selects the behaviour when the record store is unavailable.
func (l *RateLimiter) WithDegradationPolicy(policy domain.DegradationPolicy) *RateLimiter {
	l.degradation = policy
	return l
}

// WithActivityLogger sets the audit sink used for block events.
func (l *RateLimiter) WithActivityLogger(activity port.ActivityLogger) *RateLimiter {
	l.activity = activity
	return l
}

// WithMetrics attaches decision counters.
func (l *RateLimiter) WithMetrics(metrics *telemetry.RateLimitMetrics) *RateLimiter {
	l.metrics = metrics
	return l
}

// Policy returns the policy configured for limitType.
func (l *RateLimiter) Policy(limitType domain.LimitType) (domain.RateLimitPolicy, bool) {
	policy, ok := l.policies[limitType]
	return policy, ok
}

// CheckRateLimit records an attempt for the key and decides whether it may proceed.
// principal is optional and only used to attribute block events in the activity log.
func (l *RateLimiter) CheckRateLimit(ctx context.Context, limitType domain.LimitType, identifier, sourceIP string, principal *domain.Principal) domain.RateLimitDecision {
	ctx, span := telemetry.Tracer().Start(ctx, "RateLimiter.CheckRateLimit")
	defer span.End()
	span.SetAttributes(attribute.String("rate_limit.type", string(limitType)))

	policy, ok := l.policies[limitType]
	if !ok {
		l.logger.Error("rate limit check for unknown type", zap.String("type", string(limitType)))
		l.metrics.ObserveDecision(string(limitType), telemetry.OutcomeRejected)
		return domain.RateLimitDecision{}
	}

	key := domain.RateLimitKey{Type: limitType, Identifier: identifier}
	decision, blocked, err := l.check(ctx, key, policy, sourceIP)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limit store unavailable")
		return l.degrade(limitType, identifier, err)
	}

	switch {
	case decision.Allowed:
		l.metrics.ObserveDecision(string(limitType), telemetry.OutcomeAllowed)
	case blocked:
		l.metrics.ObserveDecision(string(limitType), telemetry.OutcomeBlocked)
		l.logBlock(ctx, key, policy, principal, decision)
	default:
		l.metrics.ObserveDecision(string(limitType), telemetry.OutcomeRejected)
	}
	span.SetAttributes(
		attribute.Bool("rate_limit.allowed", decision.Allowed),
		attribute.Int("rate_limit.remaining", decision.RemainingAttempts),
	)

	return decision
}

// check runs the read-modify-write for one attempt. blocked is true when this call
// started a new block.
func (l *RateLimiter) check(ctx context.Context, key domain.RateLimitKey, policy domain.RateLimitPolicy, sourceIP string) (domain.RateLimitDecision, bool, error) {
	now := l.now()

	record, fresh, err := l.load(ctx, key)
	if err != nil {
		return domain.RateLimitDecision{}, false, err
	}

	if record.BlockedAt(now) {
		until := *record.BlockedUntil
		return domain.RateLimitDecision{Allowed: false, RemainingAttempts: 0, BlockedUntil: &until}, false, nil
	}

	var update domain.RateLimitUpdate
	if record.BlockedUntil != nil {
		update.ClearBlock = true
	}

	recent := record.AttemptsAfter(now.Add(-policy.Window))
	if len(recent) >= policy.MaxAttempts {
		until := now.Add(policy.BlockDuration)
		update.ClearBlock = false
		update.BlockedUntil = &until
		if err := l.persist(ctx, key, record, fresh, update); err != nil {
			return domain.RateLimitDecision{}, false, err
		}
		return domain.RateLimitDecision{Allowed: false, RemainingAttempts: 0, BlockedUntil: &until}, true, nil
	}

	update.Attempts = append(recent, domain.Attempt{Timestamp: now, IP: sourceIP})
	update.ReplaceAttempts = true
	if err := l.persist(ctx, key, record, fresh, update); err != nil {
		return domain.RateLimitDecision{}, false, err
	}

	return domain.RateLimitDecision{
		Allowed:           true,
		RemainingAttempts: policy.MaxAttempts - len(update.Attempts),
	}, false, nil
}

// ResetRateLimit clears attempts and any block for the key. Store errors are logged, never returned.
func (l *RateLimiter) ResetRateLimit(ctx context.Context, limitType domain.LimitType, identifier string) {
	if _, ok := l.policies[limitType]; !ok {
		l.logger.Error("rate limit reset for unknown type", zap.String("type", string(limitType)))
		return
	}

	now := l.now()
	key := domain.RateLimitKey{Type: limitType, Identifier: identifier}
	record := domain.RateLimitRecord{Attempts: []domain.Attempt{}, LastResetAt: &now}
	if err := l.store.Set(ctx, key, record); err != nil {
		l.logger.Warn("rate limit reset failed",
			zap.String("type", string(limitType)),
			zap.String("identifier", logger.MaskIdentifier(identifier)),
			zap.Error(err),
		)
		return
	}
	l.metrics.ObserveReset(string(limitType))
}

// GetRateLimitStatus projects the current ledger state without recording an attempt.
func (l *RateLimiter) GetRateLimitStatus(ctx context.Context, limitType domain.LimitType, identifier string) domain.RateLimitStatus {
	policy, ok := l.policies[limitType]
	if !ok {
		l.logger.Error("rate limit status for unknown type", zap.String("type", string(limitType)))
		return domain.RateLimitStatus{}
	}

	key := domain.RateLimitKey{Type: limitType, Identifier: identifier}
	record, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.RateLimitStatus{RemainingAttempts: policy.MaxAttempts}
		}
		l.logger.Warn("rate limit status lookup failed",
			zap.String("type", string(limitType)),
			zap.String("identifier", logger.MaskIdentifier(identifier)),
			zap.Error(err),
		)
		return domain.RateLimitStatus{RemainingAttempts: failOpenRemaining}
	}
	if record == nil {
		return domain.RateLimitStatus{RemainingAttempts: policy.MaxAttempts}
	}

	now := l.now()
	if record.BlockedAt(now) {
		until := *record.BlockedUntil
		return domain.RateLimitStatus{IsBlocked: true, RemainingAttempts: 0, BlockedUntil: &until}
	}

	remaining := policy.MaxAttempts - len(record.AttemptsAfter(now.Add(-policy.Window)))
	if remaining < 0 {
		remaining = 0
	}
	return domain.RateLimitStatus{RemainingAttempts: remaining}
}

// degrade decides an attempt the store could not record.
func (l *RateLimiter) degrade(limitType domain.LimitType, identifier string, err error) domain.RateLimitDecision {
	reason := domain.DegradationReasonStoreUnavailable
	if errors.Is(err, repository.ErrCorruptRecord) {
		reason = domain.DegradationReasonCorruptRecord
	}

	if !l.degradation.AllowsFallback(reason) {
		l.logger.Error("rate limit check failed, rejecting attempt",
			zap.String("type", string(limitType)),
			zap.String("identifier", logger.MaskIdentifier(identifier)),
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
		l.metrics.ObserveDecision(string(limitType), telemetry.OutcomeFailClosed)
		return domain.RateLimitDecision{}
	}

	l.logger.Warn("rate limit check failed, allowing attempt",
		zap.String("type", string(limitType)),
		zap.String("identifier", logger.MaskIdentifier(identifier)),
		zap.String("reason", string(reason)),
		zap.Error(err),
	)
	l.metrics.ObserveDecision(string(limitType), telemetry.OutcomeFailOpen)
	return domain.RateLimitDecision{Allowed: true, RemainingAttempts: failOpenRemaining}
}

func (l *RateLimiter) load(ctx context.Context, key domain.RateLimitKey) (domain.RateLimitRecord, bool, error) {
	record, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.RateLimitRecord{Attempts: []domain.Attempt{}}, true, nil
		}
		return domain.RateLimitRecord{}, false, fmt.Errorf("load rate limit record: %w", err)
	}
	if record == nil {
		return domain.RateLimitRecord{Attempts: []domain.Attempt{}}, true, nil
	}
	return *record, false, nil
}

func (l *RateLimiter) persist(ctx context.Context, key domain.RateLimitKey, record domain.RateLimitRecord, fresh bool, update domain.RateLimitUpdate) error {
	if fresh {
		update.Apply(&record)
		if err := l.store.Set(ctx, key, record); err != nil {
			return fmt.Errorf("create rate limit record: %w", err)
		}
		return nil
	}
	if err := l.store.Update(ctx, key, update); err != nil {
		return fmt.Errorf("update rate limit record: %w", err)
	}
	return nil
}

func (l *RateLimiter) logBlock(ctx context.Context, key domain.RateLimitKey, policy domain.RateLimitPolicy, principal *domain.Principal, decision domain.RateLimitDecision) {
	l.logger.Warn("rate limit exceeded, blocking key",
		zap.String("type", string(key.Type)),
		zap.String("identifier", logger.MaskIdentifier(key.Identifier)),
		zap.Int("max_attempts", policy.MaxAttempts),
		zap.Duration("block_duration", policy.BlockDuration),
	)

	if principal == nil || l.activity == nil {
		return
	}

	entry := domain.ActivityEntry{
		ID:          uuid.NewString(),
		Category:    domain.CategorySecurity,
		PrincipalID: principal.ID,
		Message:     fmt.Sprintf("rate limit exceeded for %s; blocked until %s", key.Type, decision.BlockedUntil.UTC().Format(time.RFC3339)),
		Success:     false,
		Severity:    domain.SeverityWarning,
		CreatedAt:   l.now(),
	}
	if err := l.activity.Log(ctx, entry); err != nil {
		l.logger.Warn("failed to record rate limit block", zap.String("type", string(key.Type)), zap.Error(err))
	}
}
