package store

import (
	"context"
	"sync"

	"github.com/sabbai/adapulse/ports"
)

// MemoryStore is an in-memory implementation of the CredentialStore
// interface. Nothing survives a restart; it exists for tests and for
// deployments that must not persist tokens.
type MemoryStore struct {
	mu         sync.RWMutex
	access     string
	refresh    string
	lastWallet string
}

// NewMemoryStore creates a new in-memory credential store
func NewMemoryStore() ports.CredentialStore {
	return &MemoryStore{}
}

// AccessToken returns the stored access token, empty if absent
func (s *MemoryStore) AccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, nil
}

// RefreshToken returns the stored refresh token, empty if absent
func (s *MemoryStore) RefreshToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh, nil
}

// SetTokens stores both tokens atomically
func (s *MemoryStore) SetTokens(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
	return nil
}

// SetAccessToken replaces only the access token
func (s *MemoryStore) SetAccessToken(ctx context.Context, access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	return nil
}

// ClearTokens removes both tokens
func (s *MemoryStore) ClearTokens(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	return nil
}

// LastWallet returns the identifier of the previously connected wallet
func (s *MemoryStore) LastWallet(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastWallet, nil
}

// SetLastWallet remembers the connected wallet for auto-reconnect
func (s *MemoryStore) SetLastWallet(ctx context.Context, walletID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastWallet = walletID
	return nil
}

// ClearLastWallet forgets the wallet selection
func (s *MemoryStore) ClearLastWallet(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastWallet = ""
	return nil
}
