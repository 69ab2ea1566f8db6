package config

import "github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"

// Policies converts the configured limits into the rate limiter's policy table.
// Incomplete entries fall back to the built-in defaults.
func (s RateLimitSettings) Policies() domain.RateLimitPolicies {
	policies := domain.DefaultRateLimitPolicies()
	overrides := map[domain.LimitType]RateLimitPolicySettings{
		domain.LimitLogin:         s.Login,
		domain.LimitTwoFactor:     s.TwoFactor,
		domain.LimitPasswordReset: s.PasswordReset,
	}
	for limitType, override := range overrides {
		if override.MaxAttempts <= 0 || override.Window <= 0 || override.BlockDuration <= 0 {
			continue
		}
		policies[limitType] = domain.RateLimitPolicy{
			MaxAttempts:   override.MaxAttempts,
			Window:        override.Window,
			BlockDuration: override.BlockDuration,
		}
	}
	return policies
}

// DegradationPolicy returns how the limiter behaves when its store is unavailable.
func (s RateLimitSettings) DegradationPolicy() domain.DegradationPolicy {
	return domain.NewDegradationPolicy(domain.ParseDegradationPolicyMode(s.Degradation))
}
