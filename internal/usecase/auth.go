package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/port"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/logger"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/repository"
)

// PasswordResetMessage is returned for every accepted reset request, whether or not the
// account exists.
const PasswordResetMessage = "If an account exists for that email, a reset link has been sent."

var (
	// ErrRateLimited indicates the attempt was rejected by the rate limiter.
	ErrRateLimited = errors.New("too many attempts")
	// ErrInvalidCredentials indicates the ID token did not verify for the submitted email.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput indicates a required field is missing.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotSignedIn indicates the operation requires a signed-in principal.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrInvalidTwoFactorCode indicates the one-time code was rejected.
	ErrInvalidTwoFactorCode = errors.New("invalid two-factor code")
	// ErrTwoFactorNotEnrolled indicates the principal has no two-factor secret.
	ErrTwoFactorNotEnrolled = errors.New("two-factor authentication not enrolled")
	// ErrResetUnavailable indicates the reset request could not be handed off.
	ErrResetUnavailable = errors.New("password reset unavailable")
)

// RateLimitError carries the limiter decision that rejected an attempt.
type RateLimitError struct {
	Type     domain.LimitType
	Decision domain.RateLimitDecision
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %s", ErrRateLimited, e.Type)
}

// Is matches ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// AttemptError is returned when an attempt was counted but failed verification.
type AttemptError struct {
	Err               error
	RemainingAttempts int
}

func (e *AttemptError) Error() string { return e.Err.Error() }

func (e *AttemptError) Unwrap() error { return e.Err }

// SignInInput captures a sign-in attempt.
type SignInInput struct {
	Email     string
	IDToken   string
	IPAddress string
}

// SignInResult describes a successful sign-in.
type SignInResult struct {
	Principal domain.Principal
}

// TwoFactorEnrollment is returned when a principal enrolls a new TOTP secret.
type TwoFactorEnrollment struct {
	Secret string
	URL    string
}

// AuthService coordinates the sign-in, two-factor, password-reset and sign-out flows
// guarded by the rate limiter.
type AuthService struct {
	limiter   *RateLimiter
	identity  port.IdentityVerifier
	twoFactor port.TwoFactorVerifier
	secrets   port.TwoFactorSecretStore
	session   *SessionPrincipal
	guard     *SessionGuard
	events    port.EventPublisher
	activity  port.ActivityLogger
	logger    *zap.Logger
	now       func() time.Time
}

// AuthDependencies groups the collaborators of AuthService.
type AuthDependencies struct {
	Limiter   *RateLimiter
	Identity  port.IdentityVerifier
	TwoFactor port.TwoFactorVerifier
	Secrets   port.TwoFactorSecretStore
	Session   *SessionPrincipal
	Guard     *SessionGuard
	Events    port.EventPublisher
	Activity  port.ActivityLogger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(deps AuthDependencies, logger *zap.Logger) (*AuthService, error) {
	if deps.Limiter == nil {
		return nil, errors.New("auth service requires a rate limiter")
	}
	if deps.Session == nil {
		return nil, errors.New("auth service requires a session principal")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		limiter:   deps.Limiter,
		identity:  deps.Identity,
		twoFactor: deps.TwoFactor,
		secrets:   deps.Secrets,
		session:   deps.Session,
		guard:     deps.Guard,
		events:    deps.Events,
		activity:  deps.Activity,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the internal clock for deterministic tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// SignIn verifies an ID token for the submitted email under the login limiter.
func (s *AuthService) SignIn(ctx context.Context, input SignInInput) (SignInResult, error) {
	email := domain.NormalizeIdentifier(input.Email)
	if email == "" || strings.TrimSpace(input.IDToken) == "" {
		return SignInResult{}, ErrInvalidInput
	}

	decision := s.limiter.CheckRateLimit(ctx, domain.LimitLogin, email, input.IPAddress, nil)
	if !decision.Allowed {
		return SignInResult{}, &RateLimitError{Type: domain.LimitLogin, Decision: decision}
	}

	if s.identity == nil {
		return SignInResult{}, &AttemptError{Err: ErrInvalidCredentials, RemainingAttempts: decision.RemainingAttempts}
	}
	principal, err := s.identity.Verify(input.IDToken)
	if err == nil && principal.Email != "" && principal.Email != email {
		err = errors.New("token email mismatch")
	}
	if err != nil {
		logger.WithContext(ctx, s.logger).Info("sign-in rejected",
			zap.String("email", logger.MaskEmail(email)),
			zap.String("ip", logger.MaskIP(input.IPAddress)),
			zap.Int("remaining_attempts", decision.RemainingAttempts),
			zap.Error(err),
		)
		return SignInResult{}, &AttemptError{Err: ErrInvalidCredentials, RemainingAttempts: decision.RemainingAttempts}
	}
	if principal.Email == "" {
		principal.Email = email
	}

	s.limiter.ResetRateLimit(ctx, domain.LimitLogin, email)
	s.session.SignIn(principal)
	if s.guard != nil {
		s.guard.UpdateActivity()
	}
	s.record(ctx, principal, domain.CategoryAuth, "signed in", true, domain.SeverityInfo)

	return SignInResult{Principal: principal}, nil
}

// VerifyTwoFactor checks a one-time code for the signed-in principal under the twoFactor limiter.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, code, ipAddress string) error {
	principal, ok := s.session.CurrentPrincipal()
	if !ok {
		return ErrNotSignedIn
	}
	if strings.TrimSpace(code) == "" {
		return ErrInvalidInput
	}

	decision := s.limiter.CheckRateLimit(ctx, domain.LimitTwoFactor, principal.ID, ipAddress, &principal)
	if !decision.Allowed {
		return &RateLimitError{Type: domain.LimitTwoFactor, Decision: decision}
	}

	if s.secrets == nil || s.twoFactor == nil {
		return ErrTwoFactorNotEnrolled
	}
	secret, err := s.secrets.GetSecret(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTwoFactorNotEnrolled
		}
		return fmt.Errorf("load two-factor secret: %w", err)
	}

	valid, err := s.twoFactor.Validate(code, secret)
	if err != nil {
		return fmt.Errorf("validate two-factor code: %w", err)
	}
	if !valid {
		s.record(ctx, principal, domain.CategorySecurity, "two-factor code rejected", false, domain.SeverityInfo)
		return &AttemptError{Err: ErrInvalidTwoFactorCode, RemainingAttempts: decision.RemainingAttempts}
	}

	s.limiter.ResetRateLimit(ctx, domain.LimitTwoFactor, principal.ID)
	if s.guard != nil {
		s.guard.UpdateActivity()
	}
	s.record(ctx, principal, domain.CategorySecurity, "two-factor code verified", true, domain.SeverityInfo)
	return nil
}

// EnrollTwoFactor creates and stores a new TOTP secret for the signed-in principal.
func (s *AuthService) EnrollTwoFactor(ctx context.Context) (TwoFactorEnrollment, error) {
	principal, ok := s.session.CurrentPrincipal()
	if !ok {
		return TwoFactorEnrollment{}, ErrNotSignedIn
	}
	if s.secrets == nil || s.twoFactor == nil {
		return TwoFactorEnrollment{}, ErrTwoFactorNotEnrolled
	}

	account := principal.Email
	if account == "" {
		account = principal.ID
	}
	secret, url, err := s.twoFactor.Generate(account)
	if err != nil {
		return TwoFactorEnrollment{}, err
	}
	if err := s.secrets.StoreSecret(ctx, principal.ID, secret); err != nil {
		return TwoFactorEnrollment{}, fmt.Errorf("store two-factor secret: %w", err)
	}

	s.record(ctx, principal, domain.CategorySecurity, "two-factor enrolled", true, domain.SeverityInfo)
	return TwoFactorEnrollment{Secret: secret, URL: url}, nil
}

// RequestPasswordReset publishes a reset request under the passwordReset limiter. The returned
// message does not reveal whether the account exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, ipAddress string) (string, error) {
	email = domain.NormalizeIdentifier(email)
	if email == "" {
		return "", ErrInvalidInput
	}

	decision := s.limiter.CheckRateLimit(ctx, domain.LimitPasswordReset, email, ipAddress, nil)
	if !decision.Allowed {
		return "", &RateLimitError{Type: domain.LimitPasswordReset, Decision: decision}
	}

	if s.events != nil {
		event := domain.PasswordResetRequestedEvent{
			EventID:     uuid.NewString(),
			RequestID:   logger.RequestIDFromContext(ctx),
			Email:       email,
			IPAddress:   ipAddress,
			RequestedAt: s.now(),
		}
		if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
			logger.WithContext(ctx, s.logger).Error("failed to publish password reset request",
				zap.String("email", logger.MaskEmail(email)),
				zap.Error(err),
			)
			return "", fmt.Errorf("%w: %v", ErrResetUnavailable, err)
		}
	}

	logger.WithContext(ctx, s.logger).Info("password reset requested",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("ip", logger.MaskIP(ipAddress)),
	)
	return PasswordResetMessage, nil
}

// SignOut ends the current session at the principal's request.
func (s *AuthService) SignOut(ctx context.Context) error {
	principal, ok := s.session.CurrentPrincipal()
	if !ok {
		return ErrNotSignedIn
	}
	if err := s.session.SignOut(ctx, domain.SignOutReasonUser); err != nil {
		return err
	}
	s.record(ctx, principal, domain.CategoryAuth, "signed out", true, domain.SeverityInfo)
	return nil
}

func (s *AuthService) record(ctx context.Context, principal domain.Principal, category domain.ActivityCategory, message string, success bool, severity domain.Severity) {
	if s.activity == nil {
		return
	}
	entry := domain.ActivityEntry{
		ID:          uuid.NewString(),
		Category:    category,
		PrincipalID: principal.ID,
		Message:     message,
		Success:     success,
		Severity:    severity,
		CreatedAt:   s.now(),
	}
	if err := s.activity.Log(ctx, entry); err != nil {
		logger.WithContext(ctx, s.logger).Warn("failed to record activity",
			zap.String("user_id", principal.ID),
			zap.String("category", string(category)),
			zap.Error(err),
		)
	}
}
