package port

import "context"

// TwoFactorSecretStore keeps per-user TOTP secrets.
type TwoFactorSecretStore interface {
	StoreSecret(ctx context.Context, userID, secret string) error
	GetSecret(ctx context.Context, userID string) (string, error)
}
