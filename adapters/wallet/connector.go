package wallet

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/sabbai/adapulse/core"
	"github.com/sabbai/adapulse/ports"
)

// Network ids per CIP-30
const (
	NetworkTestnet = 0
	NetworkMainnet = 1
)

var lovelacePerAda = decimal.NewFromInt(1_000_000)

// Connector owns the connected-wallet handle. It enables providers from a
// Registry, guards the expected network, resolves a bech32 address and
// implements ports.Signer for the session layer.
type Connector struct {
	registry        *Registry
	store           ports.CredentialStore
	expectedNetwork int
	logger          *slog.Logger

	mu     sync.RWMutex
	handle *core.ConnectedWallet
	api    ports.WalletAPI
}

var _ ports.Signer = (*Connector)(nil)

// NewConnector creates a connector that accepts wallets on expectedNetwork
func NewConnector(registry *Registry, store ports.CredentialStore, expectedNetwork int, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		registry:        registry,
		store:           store,
		expectedNetwork: expectedNetwork,
		logger:          logger,
	}
}

// Connect enables the wallet with the given id and makes it the connected
// wallet. The previous handle, if any, is replaced.
func (c *Connector) Connect(ctx context.Context, walletID string) (*core.ConnectedWallet, error) {
	provider, err := c.registry.Provider(walletID)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", walletID, err)
	}

	api, err := provider.Enable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enable wallet %s: %w", walletID, err)
	}

	networkID, err := api.NetworkID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read network id: %w", err)
	}
	if networkID != c.expectedNetwork {
		return nil, fmt.Errorf("wallet %s reports network %d: %w", walletID, networkID, core.ErrWrongNetwork)
	}

	address, err := resolveAddress(ctx, api)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve wallet address: %w", err)
	}

	info, known := KnownWallets[walletID]
	handle := &core.ConnectedWallet{
		ID:        walletID,
		Name:      walletID,
		Address:   address,
		NetworkID: networkID,
	}
	if known {
		handle.Name = info.Name
		handle.Icon = info.Icon
	}

	c.mu.Lock()
	c.handle = handle
	c.api = api
	c.mu.Unlock()

	if err := c.store.SetLastWallet(ctx, walletID); err != nil {
		c.logger.Warn("failed to remember wallet selection", "wallet", walletID, "err", err)
	}
	c.logger.Info("wallet connected", "wallet", walletID, "address", address)
	return handle, nil
}

// Reconnect re-enables the previously connected wallet, if one was
// remembered. A failed attempt clears the remembered selection.
func (c *Connector) Reconnect(ctx context.Context) (*core.ConnectedWallet, error) {
	walletID, err := c.store.LastWallet(ctx)
	if err != nil {
		return nil, err
	}
	if walletID == "" {
		return nil, core.ErrNoWalletConnected
	}

	handle, err := c.Connect(ctx, walletID)
	if err != nil {
		c.logger.Warn("wallet auto-reconnect failed", "wallet", walletID, "err", err)
		if clearErr := c.store.ClearLastWallet(ctx); clearErr != nil {
			c.logger.Warn("failed to clear wallet selection", "err", clearErr)
		}
		return nil, err
	}
	return handle, nil
}

// Disconnect drops the wallet handle and forgets the selection
func (c *Connector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.handle = nil
	c.api = nil
	c.mu.Unlock()
	return c.store.ClearLastWallet(ctx)
}

// Connected returns the current wallet handle
func (c *Connector) Connected() (*core.ConnectedWallet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.handle == nil {
		return nil, false
	}
	handle := *c.handle
	return &handle, true
}

func (c *Connector) session() (*core.ConnectedWallet, ports.WalletAPI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.handle == nil || c.api == nil {
		return nil, nil, core.ErrNoWalletConnected
	}
	return c.handle, c.api, nil
}

// Address implements ports.Signer
func (c *Connector) Address() (string, error) {
	handle, _, err := c.session()
	if err != nil {
		return "", err
	}
	return handle.Address, nil
}

// SignMessage hex-encodes the UTF-8 message and hands it to the wallet's
// signData. The result is returned verbatim; normalization is the caller's
// job. Wallet rejections are surfaced, never retried.
func (c *Connector) SignMessage(ctx context.Context, message string) (core.SignedPayload, error) {
	handle, api, err := c.session()
	if err != nil {
		return core.SignedPayload{}, err
	}

	payload := hex.EncodeToString([]byte(message))
	signed, err := api.SignData(ctx, handle.Address, payload)
	if err != nil {
		return core.SignedPayload{}, fmt.Errorf("failed to sign message: %w", err)
	}
	return signed, nil
}

// Balance returns the wallet balance in ADA. CIP-30 reports a hex-encoded
// lovelace amount.
func (c *Connector) Balance(ctx context.Context) (decimal.Decimal, error) {
	_, api, err := c.session()
	if err != nil {
		return decimal.Zero, err
	}

	raw, err := api.Balance(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}

	cleaned := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	lovelace, err := strconv.ParseUint(cleaned, 16, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable balance %q: %w", raw, err)
	}
	return decimal.NewFromUint64(lovelace).Div(lovelacePerAda), nil
}
