package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sabbai/adapulse/ports"
)

// RedisStore is a Redis implementation of the CredentialStore interface,
// for kiosk-style deployments where several dashboard processes share one
// authenticated session.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis credential store
func NewRedisStore(client *redis.Client) ports.CredentialStore {
	return &RedisStore{
		client: client,
		prefix: "adapulse:credentials:",
	}
}

func (s *RedisStore) get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) set(ctx context.Context, key, val string) error {
	if err := s.client.Set(ctx, s.prefix+key, val, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) del(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// AccessToken returns the stored access token, empty if absent
func (s *RedisStore) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, "access_token")
}

// RefreshToken returns the stored refresh token, empty if absent
func (s *RedisStore) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, "refresh_token")
}

// SetTokens stores both tokens
func (s *RedisStore) SetTokens(ctx context.Context, access, refresh string) error {
	if err := s.set(ctx, "access_token", access); err != nil {
		return err
	}
	return s.set(ctx, "refresh_token", refresh)
}

// SetAccessToken replaces only the access token
func (s *RedisStore) SetAccessToken(ctx context.Context, access string) error {
	return s.set(ctx, "access_token", access)
}

// ClearTokens removes both tokens
func (s *RedisStore) ClearTokens(ctx context.Context) error {
	return s.del(ctx, "access_token", "refresh_token")
}

// LastWallet returns the identifier of the previously connected wallet
func (s *RedisStore) LastWallet(ctx context.Context) (string, error) {
	return s.get(ctx, "last_connected_wallet")
}

// SetLastWallet remembers the connected wallet for auto-reconnect
func (s *RedisStore) SetLastWallet(ctx context.Context, walletID string) error {
	return s.set(ctx, "last_connected_wallet", walletID)
}

// ClearLastWallet forgets the wallet selection
func (s *RedisStore) ClearLastWallet(ctx context.Context) error {
	return s.del(ctx, "last_connected_wallet")
}
