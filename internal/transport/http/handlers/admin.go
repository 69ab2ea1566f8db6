package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/repository/postgres"
)

// RateLimitAdmin inspects and clears rate-limit ledgers.
type RateLimitAdmin interface {
	GetRateLimitStatus(ctx context.Context, limitType domain.LimitType, identifier string) domain.RateLimitStatus
	ResetRateLimit(ctx context.Context, limitType domain.LimitType, identifier string)
}

// ActivityLister reads recent audit entries.
type ActivityLister interface {
	ListRecent(ctx context.Context, filter postgres.ActivityFilter) ([]domain.ActivityEntry, error)
}

// AdminHandler exposes operator endpoints. activity may be nil when no database is configured.
type AdminHandler struct {
	limits   RateLimitAdmin
	activity ActivityLister
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(limits RateLimitAdmin, activity ActivityLister) *AdminHandler {
	return &AdminHandler{limits: limits, activity: activity}
}

// RegisterRoutes wires the admin routes. The group must already require a privileged principal.
func (h *AdminHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/rate-limits/:type/:identifier", h.GetRateLimit)
	group.DELETE("/rate-limits/:type/:identifier", h.ResetRateLimit)
	group.GET("/activity", h.ListActivity)
}

// GetRateLimit returns the ledger status for a key.
func (h *AdminHandler) GetRateLimit(c *gin.Context) {
	limitType, identifier, ok := h.bindKey(c)
	if !ok {
		return
	}

	status := h.limits.GetRateLimitStatus(c.Request.Context(), limitType, identifier)
	c.JSON(http.StatusOK, RateLimitStatusResponse{
		Type:              string(limitType),
		Identifier:        identifier,
		IsBlocked:         status.IsBlocked,
		RemainingAttempts: status.RemainingAttempts,
		BlockedUntil:      status.BlockedUntil,
	})
}

// ResetRateLimit clears attempts and any block for a key.
func (h *AdminHandler) ResetRateLimit(c *gin.Context) {
	limitType, identifier, ok := h.bindKey(c)
	if !ok {
		return
	}

	h.limits.ResetRateLimit(c.Request.Context(), limitType, identifier)
	c.Status(http.StatusNoContent)
}

// ListActivity returns recent audit entries, optionally filtered by principal and severity.
func (h *AdminHandler) ListActivity(c *gin.Context) {
	if h.activity == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "activity log storage is not configured"))
		return
	}

	filter := postgres.ActivityFilter{
		PrincipalID: c.Query("principal_id"),
		Severity:    domain.Severity(c.Query("severity")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	entries, err := h.activity.ListRecent(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list activity"))
		return
	}

	resp := ActivityListResponse{Entries: make([]ActivityEntryResponse, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, ActivityEntryResponse{
			ID:          entry.ID,
			Category:    string(entry.Category),
			PrincipalID: entry.PrincipalID,
			Message:     entry.Message,
			Success:     entry.Success,
			Severity:    string(entry.Severity),
			CreatedAt:   entry.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) bindKey(c *gin.Context) (domain.LimitType, string, bool) {
	limitType, err := domain.ParseLimitType(c.Param("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown rate limit type"))
		return "", "", false
	}
	identifier := domain.NormalizeIdentifier(c.Param("identifier"))
	if identifier == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "identifier is required"))
		return "", "", false
	}
	return limitType, identifier, true
}
