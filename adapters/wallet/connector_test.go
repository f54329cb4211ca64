package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabbai/adapulse/adapters/store"
	"github.com/sabbai/adapulse/core"
	"github.com/sabbai/adapulse/ports"
)

type fakeWalletAPI struct {
	networkID    int
	changeAddr   string
	rewardAddrs  []string
	usedAddrs    []string
	unusedAddrs  []string
	balance      string
	signErr      error
	lastSignAddr string
	lastSignHex  string
	signature    core.SignedPayload
}

var _ ports.WalletAPI = (*fakeWalletAPI)(nil)

func (f *fakeWalletAPI) NetworkID(ctx context.Context) (int, error) { return f.networkID, nil }

func (f *fakeWalletAPI) ChangeAddress(ctx context.Context) (string, error) {
	return f.changeAddr, nil
}

func (f *fakeWalletAPI) RewardAddresses(ctx context.Context) ([]string, error) {
	return f.rewardAddrs, nil
}

func (f *fakeWalletAPI) UsedAddresses(ctx context.Context) ([]string, error) {
	return f.usedAddrs, nil
}

func (f *fakeWalletAPI) UnusedAddresses(ctx context.Context) ([]string, error) {
	return f.unusedAddrs, nil
}

func (f *fakeWalletAPI) Balance(ctx context.Context) (string, error) { return f.balance, nil }

func (f *fakeWalletAPI) SignData(ctx context.Context, address, payloadHex string) (core.SignedPayload, error) {
	if f.signErr != nil {
		return core.SignedPayload{}, f.signErr
	}
	f.lastSignAddr = address
	f.lastSignHex = payloadHex
	return f.signature, nil
}

type fakeProvider struct {
	api       *fakeWalletAPI
	enableErr error
}

var _ ports.WalletProvider = (*fakeProvider)(nil)

func (f *fakeProvider) Enable(ctx context.Context) (ports.WalletAPI, error) {
	if f.enableErr != nil {
		return nil, f.enableErr
	}
	return f.api, nil
}

func (f *fakeProvider) IsEnabled(ctx context.Context) (bool, error) { return true, nil }

func testConnector(t *testing.T, api *fakeWalletAPI) (*Connector, ports.CredentialStore) {
	t.Helper()
	registry := NewRegistry()
	registry.Register("lace", &fakeProvider{api: api})
	credStore := store.NewMemoryStore()
	return NewConnector(registry, credStore, NetworkTestnet, nil), credStore
}

func TestConnectHappyPath(t *testing.T) {
	api := &fakeWalletAPI{networkID: NetworkTestnet, changeAddr: "addr_test1qz123"}
	connector, credStore := testConnector(t, api)

	handle, err := connector.Connect(context.Background(), "lace")
	require.NoError(t, err)
	assert.Equal(t, "lace", handle.ID)
	assert.Equal(t, "Lace wallet", handle.Name)
	assert.Equal(t, "addr_test1qz123", handle.Address)

	remembered, err := credStore.LastWallet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "lace", remembered)
}

func TestConnectUnknownWallet(t *testing.T) {
	connector, _ := testConnector(t, &fakeWalletAPI{networkID: NetworkTestnet})

	_, err := connector.Connect(context.Background(), "nami")
	assert.ErrorIs(t, err, core.ErrWalletNotFound)
}

func TestConnectWrongNetwork(t *testing.T) {
	api := &fakeWalletAPI{networkID: NetworkMainnet, changeAddr: "addr1qx123"}
	connector, _ := testConnector(t, api)

	_, err := connector.Connect(context.Background(), "lace")
	assert.ErrorIs(t, err, core.ErrWrongNetwork)
	_, connected := connector.Connected()
	assert.False(t, connected)
}

func TestConnectResolvesHexUsedAddress(t *testing.T) {
	api := &fakeWalletAPI{
		networkID: NetworkTestnet,
		usedAddrs: []string{testnetHexAddr},
	}
	connector, _ := testConnector(t, api)

	handle, err := connector.Connect(context.Background(), "lace")
	require.NoError(t, err)
	assert.Contains(t, handle.Address, "addr_test1")
}

func TestConnectNoAddresses(t *testing.T) {
	api := &fakeWalletAPI{networkID: NetworkTestnet}
	connector, _ := testConnector(t, api)

	_, err := connector.Connect(context.Background(), "lace")
	assert.ErrorIs(t, err, core.ErrNoAddresses)
}

func TestSignMessageHexEncodesPayload(t *testing.T) {
	api := &fakeWalletAPI{
		networkID:  NetworkTestnet,
		changeAddr: "addr_test1qz123",
		signature:  core.SignedPayload{Signature: "8458", Key: "a401"},
	}
	connector, _ := testConnector(t, api)

	_, err := connector.Connect(context.Background(), "lace")
	require.NoError(t, err)

	signed, err := connector.SignMessage(context.Background(), "Sign this: nonce")
	require.NoError(t, err)
	assert.Equal(t, "8458", signed.Signature)
	assert.Equal(t, "addr_test1qz123", api.lastSignAddr)
	assert.Equal(t, hex.EncodeToString([]byte("Sign this: nonce")), api.lastSignHex)
}

func TestSignMessageWithoutWallet(t *testing.T) {
	connector, _ := testConnector(t, &fakeWalletAPI{})

	_, err := connector.SignMessage(context.Background(), "msg")
	assert.ErrorIs(t, err, core.ErrNoWalletConnected)
}

func TestSignRejectionSurfaced(t *testing.T) {
	api := &fakeWalletAPI{
		networkID:  NetworkTestnet,
		changeAddr: "addr_test1qz123",
		signErr:    errors.New("user declined to sign"),
	}
	connector, _ := testConnector(t, api)

	_, err := connector.Connect(context.Background(), "lace")
	require.NoError(t, err)

	_, err = connector.SignMessage(context.Background(), "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user declined")
}

func TestReconnectUsesRememberedWallet(t *testing.T) {
	api := &fakeWalletAPI{networkID: NetworkTestnet, changeAddr: "addr_test1qz123"}
	connector, credStore := testConnector(t, api)

	require.NoError(t, credStore.SetLastWallet(context.Background(), "lace"))

	handle, err := connector.Reconnect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "lace", handle.ID)
}

func TestReconnectFailureClearsSelection(t *testing.T) {
	registry := NewRegistry()
	registry.Register("lace", &fakeProvider{enableErr: errors.New("wallet locked")})
	credStore := store.NewMemoryStore()
	connector := NewConnector(registry, credStore, NetworkTestnet, nil)

	require.NoError(t, credStore.SetLastWallet(context.Background(), "lace"))

	_, err := connector.Reconnect(context.Background())
	require.Error(t, err)

	remembered, err := credStore.LastWallet(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remembered)
}

func TestReconnectWithNothingRemembered(t *testing.T) {
	connector, _ := testConnector(t, &fakeWalletAPI{})

	_, err := connector.Reconnect(context.Background())
	assert.ErrorIs(t, err, core.ErrNoWalletConnected)
}

func TestDisconnect(t *testing.T) {
	api := &fakeWalletAPI{networkID: NetworkTestnet, changeAddr: "addr_test1qz123"}
	connector, credStore := testConnector(t, api)

	_, err := connector.Connect(context.Background(), "lace")
	require.NoError(t, err)

	require.NoError(t, connector.Disconnect(context.Background()))
	_, connected := connector.Connected()
	assert.False(t, connected)

	remembered, err := credStore.LastWallet(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remembered)
}

func TestBalanceConvertsLovelace(t *testing.T) {
	// 0x1dcd6500 = 500_000_000 lovelace = 500 ADA
	api := &fakeWalletAPI{
		networkID:  NetworkTestnet,
		changeAddr: "addr_test1qz123",
		balance:    "1dcd6500",
	}
	connector, _ := testConnector(t, api)

	_, err := connector.Connect(context.Background(), "lace")
	require.NoError(t, err)

	balance, err := connector.Balance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(500)), "got %s", balance)
}

func TestRegistryAvailable(t *testing.T) {
	registry := NewRegistry()
	registry.Register("lace", &fakeProvider{})
	registry.Register("custom", &fakeProvider{})

	wallets := registry.Available()
	byID := make(map[string]core.WalletInfo, len(wallets))
	for _, w := range wallets {
		byID[w.ID] = w
	}

	assert.True(t, byID["lace"].Installed)
	assert.False(t, byID["eternl"].Installed)
	// Registered but unknown providers still show up
	assert.True(t, byID["custom"].Installed)
	assert.Equal(t, "custom", byID["custom"].Name)
}
