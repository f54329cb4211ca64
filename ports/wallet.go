package ports

import (
	"context"

	"github.com/sabbai/adapulse/core"
)

// WalletAPI is the capability surface a CIP-30 wallet exposes once enabled.
// Address-returning calls may answer bech32 or raw hex depending on the
// vendor; callers are expected to normalize.
type WalletAPI interface {
	NetworkID(ctx context.Context) (int, error)
	ChangeAddress(ctx context.Context) (string, error)
	RewardAddresses(ctx context.Context) ([]string, error)
	UsedAddresses(ctx context.Context) ([]string, error)
	UnusedAddresses(ctx context.Context) ([]string, error)
	Balance(ctx context.Context) (string, error)
	SignData(ctx context.Context, address, payloadHex string) (core.SignedPayload, error)
}

// WalletProvider is an installed wallet that can be enabled into a WalletAPI
// session. Enable blocks on the wallet's own approval flow and may stay
// pending until the user acts.
type WalletProvider interface {
	Enable(ctx context.Context) (WalletAPI, error)
	IsEnabled(ctx context.Context) (bool, error)
}

// Signer exposes the connected wallet's message-signing capability to the
// session layer without leaking the full wallet surface
type Signer interface {
	// Address returns the connected wallet's address, or
	// core.ErrNoWalletConnected
	Address() (string, error)

	// SignMessage signs a UTF-8 message and returns the wallet's payload
	// verbatim; normalization is the caller's job
	SignMessage(ctx context.Context, message string) (core.SignedPayload, error)
}
