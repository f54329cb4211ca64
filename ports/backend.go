package ports

import (
	"context"

	"github.com/sabbai/adapulse/core"
)

// Backend is the dashboard API. Implementations attach the configured
// access token as a bearer header on authenticated calls.
type Backend interface {
	// SetAccessToken swaps the bearer token used for authenticated calls;
	// an empty string clears it
	SetAccessToken(token string)

	Challenge(ctx context.Context, address string) (core.Challenge, error)
	Login(ctx context.Context, req core.LoginRequest) (core.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (core.User, error)
	AddWallet(ctx context.Context, req core.LoginRequest) (core.AddWalletResult, error)

	Blocks(ctx context.Context, limit int) ([]core.Block, error)
	LatestBlock(ctx context.Context) (core.Block, error)
	Transactions(ctx context.Context, limit int) ([]core.Transaction, error)
	UserTransactions(ctx context.Context, addresses []string, limit int) (core.UserTransactions, error)
	UserBalance(ctx context.Context, addresses []string) (core.UserBalance, error)
	UserWallets(ctx context.Context) (core.UserWallets, error)
}
