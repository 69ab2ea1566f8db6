package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/interaction"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/transport/http/middleware"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/usecase"
)

const sessionEventBuffer = 4

// InteractionDispatcher relays client-reported gestures to interested listeners.
type InteractionDispatcher interface {
	Dispatch(kind domain.Interaction) (int, error)
}

// SessionHandler exposes the idle-session state of the signed-in principal.
type SessionHandler struct {
	guard        *usecase.SessionGuard
	interactions InteractionDispatcher
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(guard *usecase.SessionGuard, interactions InteractionDispatcher) *SessionHandler {
	return &SessionHandler{guard: guard, interactions: interactions}
}

// RegisterRoutes wires the session routes. The group must already require a principal.
func (h *SessionHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", h.State)
	group.POST("/extend", h.Extend)
	group.POST("/interactions", h.Interaction)
	group.GET("/events", h.Events)
}

// State returns the idle state of the current session.
func (h *SessionHandler) State(c *gin.Context) {
	state, ok := h.guard.State()
	if !ok {
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "no active session"))
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(state))
}

// Extend marks the session active, clearing any pending warning.
func (h *SessionHandler) Extend(c *gin.Context) {
	h.guard.UpdateActivity()
	h.State(c)
}

// Interaction accepts a tracked UI gesture reported by the client.
func (h *SessionHandler) Interaction(c *gin.Context) {
	var req InteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "kind is required"))
		return
	}

	if h.interactions == nil {
		h.guard.UpdateActivity()
		c.Status(http.StatusAccepted)
		return
	}

	if _, err := h.interactions.Dispatch(domain.Interaction(req.Kind)); err != nil {
		if errors.Is(err, interaction.ErrUntracked) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "interaction kind is not tracked"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to record interaction"))
		return
	}
	c.Status(http.StatusAccepted)
}

// Events streams warning and timeout notifications as server-sent events until the
// session times out or the client disconnects. The first event carries the current state.
func (h *SessionHandler) Events(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "not signed in"))
		return
	}

	events := make(chan domain.SessionEvent, sessionEventBuffer)
	unsubscribe := h.guard.Subscribe(principal.ID, func(event domain.SessionEvent) {
		select {
		case events <- event:
		default:
		}
	})
	defer unsubscribe()

	state, ok := h.guard.State()
	if !ok {
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "no active session"))
		return
	}
	c.SSEvent("state", newSessionResponse(state))
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event := <-events:
			c.SSEvent(string(event.Kind), event)
			return event.Kind != domain.SessionTimeout
		}
	})
}
