package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/config"
)

const totpPeriod = 30

// ErrMissingSecret is returned when secret is empty.
var ErrMissingSecret = errors.New("totp secret is required")

// TOTPVerifier enrolls and validates RFC 6238 time-based one-time codes.
type TOTPVerifier struct {
	issuer string
	skew   uint
	now    func() time.Time
}

// NewTOTPVerifier constructs a verifier from auth settings.
func NewTOTPVerifier(cfg config.AuthSettings) *TOTPVerifier {
	issuer := strings.TrimSpace(cfg.TOTPIssuer)
	if issuer == "" {
		issuer = "HopeHand"
	}
	return &TOTPVerifier{issuer: issuer, skew: cfg.TOTPSkewSteps, now: time.Now}
}

// WithClock overrides the validation clock.
func (v *TOTPVerifier) WithClock(now func() time.Time) *TOTPVerifier {
	if now != nil {
		v.now = now
	}
	return v
}

// Generate creates a new secret for accountName and returns it with its otpauth:// URL.
func (v *TOTPVerifier) Generate(accountName string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      v.issuer,
		AccountName: accountName,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate totp secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// Validate reports whether code is valid for secret at the current time.
func (v *TOTPVerifier) Validate(code, secret string) (bool, error) {
	if secret == "" {
		return false, ErrMissingSecret
	}
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, v.now().UTC(), v.opts())
	if err != nil {
		if errors.Is(err, otp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		return false, fmt.Errorf("validate totp code: %w", err)
	}
	return ok, nil
}

// Code returns the code valid for secret at the current time.
func (v *TOTPVerifier) Code(secret string) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	code, err := totp.GenerateCodeCustom(secret, v.now().UTC(), v.opts())
	if err != nil {
		return "", fmt.Errorf("generate totp code: %w", err)
	}
	return code, nil
}

func (v *TOTPVerifier) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      v.skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}
