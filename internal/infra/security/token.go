package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/config"
)

var (
	// ErrInvalidToken indicates the ID token is malformed, unsigned or issued by someone else.
	ErrInvalidToken = errors.New("invalid id token")
	// ErrExpiredToken indicates the ID token has expired.
	ErrExpiredToken = errors.New("id token expired")
	// ErrVerifierNotConfigured indicates no verification secret is configured.
	ErrVerifierNotConfigured = errors.New("id token verifier not configured")
)

// IDTokenClaims is the claim set carried by identity-provider tokens.
type IDTokenClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 ID tokens and maps them to principals.
type TokenVerifier struct {
	secret    []byte
	issuer    string
	adminRole string
	leeway    time.Duration
	now       func() time.Time
}

// NewTokenVerifier constructs a verifier from auth settings.
func NewTokenVerifier(cfg config.AuthSettings) *TokenVerifier {
	return &TokenVerifier{
		secret:    []byte(cfg.TokenSecret),
		issuer:    strings.TrimSpace(cfg.TokenIssuer),
		adminRole: strings.TrimSpace(cfg.AdminRole),
		leeway:    cfg.ClockSkew,
		now:       time.Now,
	}
}

// WithClock overrides the verification clock.
func (v *TokenVerifier) WithClock(now func() time.Time) *TokenVerifier {
	if now != nil {
		v.now = now
	}
	return v
}

// Verify parses raw and returns the principal it identifies.
func (v *TokenVerifier) Verify(raw string) (domain.Principal, error) {
	if len(v.secret) == 0 {
		return domain.Principal{}, ErrVerifierNotConfigured
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &IDTokenClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Principal{}, ErrExpiredToken
		}
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	tier := domain.TierRegular
	for _, role := range claims.Roles {
		if v.adminRole != "" && strings.EqualFold(role, v.adminRole) {
			tier = domain.TierPrivileged
			break
		}
	}

	return domain.Principal{
		ID:    claims.Subject,
		Email: domain.NormalizeIdentifier(claims.Email),
		Tier:  tier,
	}, nil
}

// Issue signs a token for principal. Used by local tooling and tests in place of the
// external identity provider.
func (v *TokenVerifier) Issue(principal domain.Principal, roles []string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrVerifierNotConfigured
	}
	now := v.now()
	claims := IDTokenClaims{
		Email: principal.Email,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign id token: %w", err)
	}
	return signed, nil
}
