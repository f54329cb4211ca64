package ports

import "context"

// CredentialStore persists tokens and the wallet selection across client
// restarts. Getters return empty strings, not errors, for absent values.
type CredentialStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SetTokens(ctx context.Context, access, refresh string) error
	SetAccessToken(ctx context.Context, access string) error
	ClearTokens(ctx context.Context) error

	LastWallet(ctx context.Context) (string, error)
	SetLastWallet(ctx context.Context, walletID string) error
	ClearLastWallet(ctx context.Context) error
}
