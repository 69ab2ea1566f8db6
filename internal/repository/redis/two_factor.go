package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/repository"
)

const defaultTwoFactorPrefix = "two-factor"

// TwoFactorSecretRepository keeps TOTP secrets keyed by user id.
type TwoFactorSecretRepository struct {
	client *redis.Client
	prefix string
}

// NewTwoFactorSecretRepository constructs a repository with the provided key prefix.
func NewTwoFactorSecretRepository(client *redis.Client, keyPrefix string) *TwoFactorSecretRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultTwoFactorPrefix
	}
	return &TwoFactorSecretRepository{client: client, prefix: prefix}
}

// StoreSecret persists secret for userID without expiry.
func (r *TwoFactorSecretRepository) StoreSecret(ctx context.Context, userID, secret string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" || secret == "" {
		return errors.New("user id and secret are required")
	}
	if err := r.client.Set(ctx, r.key(userID), secret, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// GetSecret returns the stored secret or repository.ErrNotFound.
func (r *TwoFactorSecretRepository) GetSecret(ctx context.Context, userID string) (string, error) {
	secret, err := r.client.Get(ctx, r.key(strings.TrimSpace(userID))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return secret, nil
}

func (r *TwoFactorSecretRepository) key(userID string) string {
	return r.prefix + ":" + userID
}
