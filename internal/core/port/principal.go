package port

import (
	"context"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
)

// PrincipalProvider exposes the currently signed-in principal.
type PrincipalProvider interface {
	CurrentPrincipal() (domain.Principal, bool)
}

// SignOuter forcibly ends the current authenticated session.
type SignOuter interface {
	SignOut(ctx context.Context, reason string) error
}

// InteractionSource delivers UI interactions to registered listeners.
// The returned function removes the listener.
type InteractionSource interface {
	Listen(kind domain.Interaction, fn func()) func()
}
