package port

import (
	"context"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
)

// RateLimitStore is the durable key-value store holding one record per (limit type, identifier).
// Get returns repository.ErrNotFound when no record exists.
type RateLimitStore interface {
	Get(ctx context.Context, key domain.RateLimitKey) (*domain.RateLimitRecord, error)
	Set(ctx context.Context, key domain.RateLimitKey, record domain.RateLimitRecord) error
	Update(ctx context.Context, key domain.RateLimitKey, update domain.RateLimitUpdate) error
}
