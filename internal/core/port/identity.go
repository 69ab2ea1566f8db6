package port

import "github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"

// IdentityVerifier validates ID tokens issued by the external identity provider.
type IdentityVerifier interface {
	Verify(rawToken string) (domain.Principal, error)
}

// TwoFactorVerifier enrolls and validates one-time codes.
type TwoFactorVerifier interface {
	Generate(accountName string) (secret, url string, err error)
	Validate(code, secret string) (bool, error)
}
