// Package wallet connects to CIP-30 wallets, resolves their addresses and
// exposes their signing capability to the session layer.
package wallet

import (
	"sort"
	"sync"

	"github.com/sabbai/adapulse/core"
	"github.com/sabbai/adapulse/ports"
)

// KnownWallets is the static directory of wallet providers the dashboard
// recognizes, keyed by provider id
var KnownWallets = map[string]core.WalletInfo{
	"lace": {
		ID:      "lace",
		Name:    "Lace wallet",
		Icon:    "https://lace.io/favicon-32x32.png",
		Website: "https://lace.io",
	},
	"eternl": {
		ID:      "eternl",
		Name:    "Eternl",
		Icon:    "https://eternl.io/favicon.ico",
		Website: "https://eternl.io",
	},
	"yoroi": {
		ID:      "yoroi",
		Name:    "Yoroi",
		Icon:    "https://yoroi-wallet.com/assets/logo.png",
		Website: "https://yoroi-wallet.com",
	},
	"typhoncip30": {
		ID:      "typhoncip30",
		Name:    "Typhon",
		Icon:    "https://typhonwallet.io/assets/typhon.svg",
		Website: "https://typhonwallet.io",
	},
}

// Registry tracks which wallet providers are actually reachable in this
// runtime
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ports.WalletProvider
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]ports.WalletProvider)}
}

// Register makes a wallet provider available under the given id
func (r *Registry) Register(id string, provider ports.WalletProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[id] = provider
}

// Provider returns the registered provider for id
func (r *Registry) Provider(id string) (ports.WalletProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.providers[id]
	if !ok {
		return nil, core.ErrWalletNotFound
	}
	return provider, nil
}

// Available lists the known wallets, marking the ones with a registered
// provider as installed
func (r *Registry) Available() []core.WalletInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wallets := make([]core.WalletInfo, 0, len(KnownWallets))
	for id, info := range KnownWallets {
		_, info.Installed = r.providers[id]
		wallets = append(wallets, info)
	}
	// Registered providers outside the static directory still show up
	for id := range r.providers {
		if _, known := KnownWallets[id]; !known {
			wallets = append(wallets, core.WalletInfo{ID: id, Name: id, Installed: true})
		}
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].ID < wallets[j].ID })
	return wallets
}
