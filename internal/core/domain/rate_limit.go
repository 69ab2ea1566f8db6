package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LimitType names a class of sensitive action protected by the rate limiter.
type LimitType string

const (
	LimitLogin         LimitType = "login"
	LimitTwoFactor     LimitType = "twoFactor"
	LimitPasswordReset LimitType = "passwordReset"
)

// LowAttemptsThreshold is the remaining-attempt count below which callers warn the user.
const LowAttemptsThreshold = 3

// ErrUnknownLimitType is returned when a limit type has no configured policy.
var ErrUnknownLimitType = errors.New("unknown rate limit type")

// ParseLimitType resolves the API spelling of a limit type.
func ParseLimitType(raw string) (LimitType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "login":
		return LimitLogin, nil
	case "twofactor", "two_factor", "two-factor":
		return LimitTwoFactor, nil
	case "passwordreset", "password_reset", "password-reset":
		return LimitPasswordReset, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLimitType, raw)
	}
}

// RateLimitPolicy bounds attempts for one limit type.
type RateLimitPolicy struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

// RateLimitPolicies maps limit types to their policy.
type RateLimitPolicies map[LimitType]RateLimitPolicy

// DefaultRateLimitPolicies returns the built-in policy table.
func DefaultRateLimitPolicies() RateLimitPolicies {
	return RateLimitPolicies{
		LimitLogin:         {MaxAttempts: 5, Window: 15 * time.Minute, BlockDuration: 30 * time.Minute},
		LimitTwoFactor:     {MaxAttempts: 3, Window: 5 * time.Minute, BlockDuration: 15 * time.Minute},
		LimitPasswordReset: {MaxAttempts: 3, Window: 60 * time.Minute, BlockDuration: 24 * time.Hour},
	}
}

// RateLimitKey identifies one independent attempt ledger.
type RateLimitKey struct {
	Type       LimitType
	Identifier string
}

func (k RateLimitKey) String() string {
	return fmt.Sprintf("%s:%s", k.Type, k.Identifier)
}

// Attempt is a single recorded try of a sensitive action.
type Attempt struct {
	Timestamp time.Time
	IP        string
}

// RateLimitRecord is the durable ledger for a RateLimitKey.
type RateLimitRecord struct {
	Attempts     []Attempt
	BlockedUntil *time.Time
	LastResetAt  *time.Time
}

// BlockedAt reports whether the record blocks attempts at the supplied instant.
func (r RateLimitRecord) BlockedAt(now time.Time) bool {
	return r.BlockedUntil != nil && now.Before(*r.BlockedUntil)
}

// AttemptsAfter returns the attempts strictly newer than cutoff, preserving order.
func (r RateLimitRecord) AttemptsAfter(cutoff time.Time) []Attempt {
	recent := make([]Attempt, 0, len(r.Attempts))
	for _, attempt := range r.Attempts {
		if attempt.Timestamp.After(cutoff) {
			recent = append(recent, attempt)
		}
	}
	return recent
}

// RateLimitUpdate is a partial modification of a RateLimitRecord.
type RateLimitUpdate struct {
	Attempts        []Attempt
	ReplaceAttempts bool
	BlockedUntil    *time.Time
	ClearBlock      bool
	LastResetAt     *time.Time
}

// Apply merges the update into the record.
func (u RateLimitUpdate) Apply(r *RateLimitRecord) {
	if r == nil {
		return
	}
	if u.ReplaceAttempts {
		r.Attempts = append([]Attempt(nil), u.Attempts...)
	}
	if u.ClearBlock {
		r.BlockedUntil = nil
	}
	if u.BlockedUntil != nil {
		until := *u.BlockedUntil
		r.BlockedUntil = &until
	}
	if u.LastResetAt != nil {
		at := *u.LastResetAt
		r.LastResetAt = &at
	}
}

// RateLimitDecision is the outcome of recording an attempt.
type RateLimitDecision struct {
	Allowed           bool
	RemainingAttempts int
	BlockedUntil      *time.Time
}

// RetryAfter returns how long the caller must wait before trying again.
func (d RateLimitDecision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || d.BlockedUntil == nil {
		return 0
	}
	wait := d.BlockedUntil.Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// Message renders the user-facing explanation for a rejected attempt.
func (d RateLimitDecision) Message() string {
	if d.Allowed {
		return ""
	}
	if d.BlockedUntil == nil {
		return "Too many attempts. Please try again later."
	}
	return fmt.Sprintf("Too many attempts. Try again after %s.", d.BlockedUntil.UTC().Format(time.Kitchen))
}

// Warning renders a low-remaining-attempts notice, or an empty string when none applies.
func (d RateLimitDecision) Warning() string {
	if !d.Allowed || d.RemainingAttempts >= LowAttemptsThreshold {
		return ""
	}
	if d.RemainingAttempts == 1 {
		return "1 attempt remaining"
	}
	return fmt.Sprintf("%d attempts remaining", d.RemainingAttempts)
}

// RateLimitStatus is a read-only projection of a ledger.
type RateLimitStatus struct {
	IsBlocked         bool
	RemainingAttempts int
	BlockedUntil      *time.Time
}
