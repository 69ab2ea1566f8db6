package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/usecase"
)

// AuthHandler exposes the rate-limited authentication flows.
type AuthHandler struct {
	auth     *usecase.AuthService
	guard    *usecase.SessionGuard
	policies PolicyLookup
	now      func() time.Time
}

// NewAuthHandler constructs an AuthHandler. guard may be nil.
func NewAuthHandler(auth *usecase.AuthService, guard *usecase.SessionGuard, policies PolicyLookup) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		guard:    guard,
		policies: policies,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock used for Retry-After computation.
func (h *AuthHandler) WithClock(now func() time.Time) *AuthHandler {
	if now != nil {
		h.now = now
	}
	return h
}

// RegisterRoutes wires the public and authenticated auth routes.
func (h *AuthHandler) RegisterRoutes(public *gin.RouterGroup, authenticated ...gin.HandlerFunc) {
	public.POST("/sign-in", h.SignIn)
	public.POST("/password-reset", h.RequestPasswordReset)

	private := public.Group("")
	private.Use(authenticated...)
	private.POST("/sign-out", h.SignOut)
	private.POST("/two-factor/enroll", h.EnrollTwoFactor)
	private.POST("/two-factor/verify", h.VerifyTwoFactor)
}

// SignIn verifies an ID token under the login limiter.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email and id_token are required"))
		return
	}

	result, err := h.auth.SignIn(c.Request.Context(), usecase.SignInInput{
		Email:     req.Email,
		IDToken:   req.IDToken,
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		if respondLimiterError(c, err, h.policies, h.now()) {
			return
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "email and id_token are required"},
		}, http.StatusInternalServerError, "sign-in failed")
		return
	}

	resp := SignInResponse{Principal: newPrincipalSummary(result.Principal)}
	if h.guard != nil {
		if state, ok := h.guard.State(); ok {
			resp.Session = newSessionResponse(state)
		}
	}
	c.JSON(http.StatusOK, resp)
}

// RequestPasswordReset accepts a reset request under the passwordReset limiter.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email is required"))
		return
	}

	message, err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email, c.ClientIP())
	if err != nil {
		if respondLimiterError(c, err, h.policies, h.now()) {
			return
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "email is required"},
			{Err: usecase.ErrResetUnavailable, Status: http.StatusServiceUnavailable, Message: "password reset is temporarily unavailable"},
		}, http.StatusInternalServerError, "password reset failed")
		return
	}

	c.JSON(http.StatusAccepted, MessageResponse{Message: message})
}

// SignOut ends the current session.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.auth.SignOut(c.Request.Context()); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrNotSignedIn, Status: http.StatusUnauthorized, Message: "not signed in"},
		}, http.StatusServiceUnavailable, "sign-out failed")
		return
	}
	c.Status(http.StatusNoContent)
}

// EnrollTwoFactor generates a TOTP secret for the signed-in principal.
func (h *AuthHandler) EnrollTwoFactor(c *gin.Context) {
	enrollment, err := h.auth.EnrollTwoFactor(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrNotSignedIn, Status: http.StatusUnauthorized, Message: "not signed in"},
			{Err: usecase.ErrTwoFactorNotEnrolled, Status: http.StatusServiceUnavailable, Message: "two-factor authentication unavailable"},
		}, http.StatusInternalServerError, "two-factor enrollment failed")
		return
	}
	c.JSON(http.StatusCreated, TwoFactorEnrollResponse{Secret: enrollment.Secret, URL: enrollment.URL})
}

// VerifyTwoFactor checks a one-time code under the twoFactor limiter.
func (h *AuthHandler) VerifyTwoFactor(c *gin.Context) {
	var req TwoFactorVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "code is required"))
		return
	}

	if err := h.auth.VerifyTwoFactor(c.Request.Context(), req.Code, c.ClientIP()); err != nil {
		if respondLimiterError(c, err, h.policies, h.now()) {
			return
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrNotSignedIn, Status: http.StatusUnauthorized, Message: "not signed in"},
			{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "code is required"},
			{Err: usecase.ErrTwoFactorNotEnrolled, Status: http.StatusConflict, Message: "two-factor authentication not enrolled"},
		}, http.StatusInternalServerError, "two-factor verification failed")
		return
	}
	c.Status(http.StatusNoContent)
}
