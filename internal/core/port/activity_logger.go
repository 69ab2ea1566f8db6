package port

import (
	"context"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
)

// ActivityLogger is the audit sink for security-relevant activity.
type ActivityLogger interface {
	Log(ctx context.Context, entry domain.ActivityEntry) error
}
