package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hopehand"

// Rate-limit decision outcomes.
const (
	OutcomeAllowed    = "allowed"
	OutcomeBlocked    = "blocked"
	OutcomeRejected   = "rejected"
	OutcomeFailOpen   = "fail_open"
	OutcomeFailClosed = "fail_closed"
)

// RateLimitMetrics counts limiter decisions per limit type and outcome.
type RateLimitMetrics struct {
	Decisions *prometheus.CounterVec
	Resets    *prometheus.CounterVec
}

// NewRateLimitMetrics registers the limiter collectors with reg (default registerer when nil).
func NewRateLimitMetrics(reg prometheus.Registerer) (*RateLimitMetrics, error) {
	decisions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rate_limit",
		Name:      "decisions_total",
		Help:      "Rate limit decisions partitioned by limit type and outcome.",
	}, []string{"type", "outcome"}))
	if err != nil {
		return nil, err
	}

	resets, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rate_limit",
		Name:      "resets_total",
		Help:      "Explicit rate limit resets partitioned by limit type.",
	}, []string{"type"}))
	if err != nil {
		return nil, err
	}

	return &RateLimitMetrics{Decisions: decisions, Resets: resets}, nil
}

// ObserveDecision increments the decision counter. Safe on a nil receiver.
func (m *RateLimitMetrics) ObserveDecision(limitType, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(limitType, outcome).Inc()
}

// ObserveReset increments the reset counter. Safe on a nil receiver.
func (m *RateLimitMetrics) ObserveReset(limitType string) {
	if m == nil {
		return
	}
	m.Resets.WithLabelValues(limitType).Inc()
}

// SessionMetrics counts idle-session transitions.
type SessionMetrics struct {
	Events          *prometheus.CounterVec
	SignOutFailures prometheus.Counter
}

// NewSessionMetrics registers the session collectors with reg (default registerer when nil).
func NewSessionMetrics(reg prometheus.Registerer) (*SessionMetrics, error) {
	events, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "events_total",
		Help:      "Idle session events partitioned by kind.",
	}, []string{"kind"}))
	if err != nil {
		return nil, err
	}

	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "sign_out_failures_total",
		Help:      "Forced sign-outs that failed after exhausting retries.",
	})
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(failures); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register sign-out failures collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(prometheus.Counter)
		if !ok {
			return nil, fmt.Errorf("existing sign-out failures collector has unexpected type %T", already.ExistingCollector)
		}
		failures = existing
	}

	return &SessionMetrics{Events: events, SignOutFailures: failures}, nil
}

// ObserveEvent increments the event counter. Safe on a nil receiver.
func (m *SessionMetrics) ObserveEvent(kind string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(kind).Inc()
}

// ObserveSignOutFailure increments the failure counter. Safe on a nil receiver.
func (m *SessionMetrics) ObserveSignOutFailure() {
	if m == nil {
		return
	}
	m.SignOutFailures.Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(vec); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return vec, nil
}
