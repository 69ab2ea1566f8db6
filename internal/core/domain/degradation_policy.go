package domain

import "strings"

// DegradationPolicyMode enumerates how the rate limiter behaves when its record store is unreachable.
type DegradationPolicyMode string

const (
	// DegradationPolicyModeLenient lets the attempt through when the store cannot be read or written.
	DegradationPolicyModeLenient DegradationPolicyMode = "lenient"
	// DegradationPolicyModeStrict rejects the attempt whenever the ledger cannot be confirmed.
	DegradationPolicyModeStrict DegradationPolicyMode = "strict"
)

// DegradationReason captures why a fallback decision is being evaluated.
type DegradationReason string

const (
	// DegradationReasonStoreUnavailable denotes the record store failed or timed out.
	DegradationReasonStoreUnavailable DegradationReason = "store_unavailable"
	// DegradationReasonCorruptRecord denotes a stored ledger could not be decoded.
	DegradationReasonCorruptRecord DegradationReason = "corrupt_record"
)

// DegradationPolicy centralises how the limiter responds when ledger data is unavailable.
type DegradationPolicy struct {
	mode DegradationPolicyMode
}

// NewDegradationPolicy constructs a policy with the provided mode, defaulting to lenient when unspecified.
func NewDegradationPolicy(mode DegradationPolicyMode) DegradationPolicy {
	if mode != DegradationPolicyModeStrict {
		mode = DegradationPolicyModeLenient
	}
	return DegradationPolicy{mode: mode}
}

// ParseDegradationPolicyMode normalises textual input into a supported policy mode.
func ParseDegradationPolicyMode(value string) DegradationPolicyMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(DegradationPolicyModeStrict):
		return DegradationPolicyModeStrict
	default:
		return DegradationPolicyModeLenient
	}
}

// Mode returns the underlying policy mode.
func (p DegradationPolicy) Mode() DegradationPolicyMode {
	if p.mode == "" {
		return DegradationPolicyModeLenient
	}
	return p.mode
}

// IsStrict indicates whether the policy rejects degraded states.
func (p DegradationPolicy) IsStrict() bool {
	return p.mode == DegradationPolicyModeStrict
}

// AllowsFallback determines if the policy lets an attempt proceed for the supplied reason.
func (p DegradationPolicy) AllowsFallback(DegradationReason) bool {
	return !p.IsStrict()
}
