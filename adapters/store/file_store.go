package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sabbai/adapulse/ports"
)

// credentials is the on-disk layout. Field names match what the browser
// frontend keeps in local storage.
type credentials struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	LastWallet   string `json:"last_connected_wallet,omitempty"`
}

// FileStore persists credentials as a JSON file, the headless equivalent of
// the browser's local storage. The file is created with 0600 permissions.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed credential store at path
func NewFileStore(path string) ports.CredentialStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() (credentials, error) {
	var creds credentials
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return creds, nil
		}
		return creds, fmt.Errorf("failed to read credentials file: %w", err)
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		// A corrupt file is treated as empty; the next save rewrites it
		return credentials{}, nil
	}
	return creds, nil
}

func (s *FileStore) save(creds credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credentials dir: %w", err)
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

func (s *FileStore) update(fn func(*credentials)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, err := s.load()
	if err != nil {
		return err
	}
	fn(&creds)
	return s.save(creds)
}

// AccessToken returns the stored access token, empty if absent
func (s *FileStore) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, err := s.load()
	return creds.AccessToken, err
}

// RefreshToken returns the stored refresh token, empty if absent
func (s *FileStore) RefreshToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, err := s.load()
	return creds.RefreshToken, err
}

// SetTokens stores both tokens atomically
func (s *FileStore) SetTokens(ctx context.Context, access, refresh string) error {
	return s.update(func(c *credentials) {
		c.AccessToken = access
		c.RefreshToken = refresh
	})
}

// SetAccessToken replaces only the access token
func (s *FileStore) SetAccessToken(ctx context.Context, access string) error {
	return s.update(func(c *credentials) {
		c.AccessToken = access
	})
}

// ClearTokens removes both tokens
func (s *FileStore) ClearTokens(ctx context.Context) error {
	return s.update(func(c *credentials) {
		c.AccessToken = ""
		c.RefreshToken = ""
	})
}

// LastWallet returns the identifier of the previously connected wallet
func (s *FileStore) LastWallet(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, err := s.load()
	return creds.LastWallet, err
}

// SetLastWallet remembers the connected wallet for auto-reconnect
func (s *FileStore) SetLastWallet(ctx context.Context, walletID string) error {
	return s.update(func(c *credentials) {
		c.LastWallet = walletID
	})
}

// ClearLastWallet forgets the wallet selection
func (s *FileStore) ClearLastWallet(ctx context.Context) error {
	return s.update(func(c *credentials) {
		c.LastWallet = ""
	})
}
