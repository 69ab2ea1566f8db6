package domain

import "strings"

// Tier classifies a principal for session-timeout selection.
type Tier string

const (
	TierRegular    Tier = "regular"
	TierPrivileged Tier = "privileged"
)

// Principal is the authenticated identity an operation is performed for.
type Principal struct {
	ID    string
	Email string
	Tier  Tier
}

// IsPrivileged reports whether the principal belongs to the administrator tier.
func (p Principal) IsPrivileged() bool {
	return p.Tier == TierPrivileged
}

// NormalizeIdentifier canonicalises identifiers such as emails before they are used as keys.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
