// Package service owns the authentication state machine: challenge
// retrieval, wallet signing handoff, token storage, restoration, refresh
// and logout.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sabbai/adapulse/core"
	"github.com/sabbai/adapulse/normalize"
	"github.com/sabbai/adapulse/ports"
)

// State is the session machine state
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// SessionService drives the session state machine. Session-affecting
// failures always land in a well-defined terminal state: unauthenticated
// with tokens cleared, never a partial session.
type SessionService struct {
	backend ports.Backend
	signer  ports.Signer
	store   ports.CredentialStore
	events  ports.EventPublisher
	logger  *slog.Logger

	mu    sync.Mutex
	state State
	user  *core.User
}

// NewSessionService creates a new session service. events may be nil.
func NewSessionService(
	backend ports.Backend,
	signer ports.Signer,
	store ports.CredentialStore,
	events ports.EventPublisher,
	logger *slog.Logger,
) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		backend: backend,
		signer:  signer,
		store:   store,
		events:  events,
		logger:  logger,
	}
}

// State returns the current machine state
func (s *SessionService) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentUser returns the authenticated user, if any
func (s *SessionService) CurrentUser() (*core.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil, false
	}
	user := *s.user
	return &user, true
}

// IsAuthenticated reports whether a session is established
func (s *SessionService) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateAuthenticated && s.user != nil
}

// Restore attempts to resume a previous session at startup: validate the
// stored access token against /me, and if that fails try a single refresh
// before giving up and clearing everything.
func (s *SessionService) Restore(ctx context.Context) error {
	access, err := s.store.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stored token: %w", err)
	}

	if access != "" {
		s.backend.SetAccessToken(access)
		// Skip the doomed round trip when the token is visibly expired
		if tokenUsable(access) {
			if user, err := s.backend.CurrentUser(ctx); err == nil {
				s.setAuthenticated(&user)
				s.logger.Info("session restored", "address", user.Address)
				return nil
			} else {
				s.logger.Warn("failed to restore session", "err", err)
			}
		}
	}

	// One refresh attempt, then re-validate
	if err := s.Refresh(ctx); err != nil {
		s.clearSession(ctx)
		return err
	}
	user, err := s.backend.CurrentUser(ctx)
	if err != nil {
		s.clearSession(ctx)
		return fmt.Errorf("failed to validate refreshed session: %w", err)
	}
	s.setAuthenticated(&user)
	s.logger.Info("session refreshed", "address", user.Address)
	return nil
}

// Login runs the challenge/sign/submit flow against the connected wallet.
// A second login while one is running is rejected; the backend challenge is
// single-use and per-address, so interleaving would break both attempts.
func (s *SessionService) Login(ctx context.Context) (*core.User, error) {
	address, err := s.signer.Address()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state == StateAuthenticating {
		s.mu.Unlock()
		return nil, core.ErrLoginInProgress
	}
	s.state = StateAuthenticating
	s.mu.Unlock()

	user, err := s.login(ctx, address)
	if err != nil {
		// No partial session state is retained
		s.clearSession(ctx)
		s.logger.Warn("login failed", "address", address, "err", err)
		return nil, err
	}

	s.setAuthenticated(user)
	s.logger.Info("login succeeded", "address", user.Address)
	if s.events != nil {
		if err := s.events.PublishLogin(ctx, user.Address); err != nil {
			s.logger.Warn("failed to publish login event", "err", err)
		}
	}
	return user, nil
}

func (s *SessionService) login(ctx context.Context, address string) (*core.User, error) {
	challenge, err := s.backend.Challenge(ctx, address)
	if err != nil {
		return nil, err
	}

	signed, err := s.signer.SignMessage(ctx, challenge.Message)
	if err != nil {
		return nil, err
	}

	// Only the public key is normalized; the signature goes to the login
	// endpoint in its full COSE form, which is what the backend verifies
	publicKey, err := normalize.PublicKey(signed.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize public key: %w", err)
	}

	result, err := s.backend.Login(ctx, core.LoginRequest{
		Address:   address,
		Message:   challenge.Message,
		Signature: signed.Signature,
		PublicKey: publicKey,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.SetTokens(ctx, result.AccessToken, result.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to store tokens: %w", err)
	}
	s.backend.SetAccessToken(result.AccessToken)
	return &result.User, nil
}

// Refresh exchanges the stored refresh token for a new access token. A
// missing refresh token fails immediately without a network call; a failed
// exchange forces a full local logout.
func (s *SessionService) Refresh(ctx context.Context) error {
	refresh, err := s.store.RefreshToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to load refresh token: %w", err)
	}
	if refresh == "" {
		return core.ErrNoRefreshToken
	}

	s.mu.Lock()
	wasAuthenticated := s.state == StateAuthenticated
	if wasAuthenticated {
		s.state = StateRefreshing
	}
	s.mu.Unlock()

	access, err := s.backend.Refresh(ctx, refresh)
	if err != nil {
		s.clearSession(ctx)
		return fmt.Errorf("refresh failed: %w", err)
	}

	if err := s.store.SetAccessToken(ctx, access); err != nil {
		s.clearSession(ctx)
		return fmt.Errorf("failed to store refreshed token: %w", err)
	}
	s.backend.SetAccessToken(access)

	s.mu.Lock()
	if wasAuthenticated {
		s.state = StateAuthenticated
	}
	s.mu.Unlock()
	return nil
}

// Logout invalidates the session server-side on a best-effort basis; local
// clearing happens regardless. Safe to call repeatedly.
func (s *SessionService) Logout(ctx context.Context) error {
	s.mu.Lock()
	var address string
	if s.user != nil {
		address = s.user.Address
	}
	s.mu.Unlock()

	if err := s.backend.Logout(ctx); err != nil {
		s.logger.Warn("server-side logout failed", "err", err)
	}
	s.clearSession(ctx)

	if s.events != nil && address != "" {
		if err := s.events.PublishLogout(ctx, address); err != nil {
			s.logger.Warn("failed to publish logout event", "err", err)
		}
	}
	return nil
}

// AddWallet links the currently connected wallet to the authenticated user
// via its own challenge/sign round. Unlike login, both the public key and
// the signature are normalized; the add-wallet endpoint wants raw bytes.
func (s *SessionService) AddWallet(ctx context.Context) (core.AddWalletResult, error) {
	if !s.IsAuthenticated() {
		return core.AddWalletResult{}, core.ErrNotAuthenticated
	}
	address, err := s.signer.Address()
	if err != nil {
		return core.AddWalletResult{}, err
	}

	challenge, err := s.backend.Challenge(ctx, address)
	if err != nil {
		return core.AddWalletResult{}, err
	}
	signed, err := s.signer.SignMessage(ctx, challenge.Message)
	if err != nil {
		return core.AddWalletResult{}, err
	}

	publicKey, err := normalize.PublicKey(signed.Key)
	if err != nil {
		return core.AddWalletResult{}, fmt.Errorf("failed to normalize public key: %w", err)
	}
	signature, err := normalize.Signature(signed.Signature)
	if err != nil {
		return core.AddWalletResult{}, fmt.Errorf("failed to normalize signature: %w", err)
	}

	result, err := s.backend.AddWallet(ctx, core.LoginRequest{
		Address:   address,
		Message:   challenge.Message,
		Signature: signature,
		PublicKey: publicKey,
	})
	if err != nil {
		return core.AddWalletResult{}, err
	}

	// Keep the cached user's linked addresses current
	s.mu.Lock()
	if s.user != nil {
		s.user.WalletAddresses = appendUnique(s.user.WalletAddresses, result.Address)
	}
	s.mu.Unlock()
	return result, nil
}

func (s *SessionService) setAuthenticated(user *core.User) {
	s.mu.Lock()
	s.state = StateAuthenticated
	s.user = user
	s.mu.Unlock()
}

// clearSession is the single terminal-failure path: tokens gone, bearer
// cleared, user nil, state unauthenticated
func (s *SessionService) clearSession(ctx context.Context) {
	if err := s.store.ClearTokens(ctx); err != nil {
		s.logger.Warn("failed to clear stored tokens", "err", err)
	}
	s.backend.SetAccessToken("")

	s.mu.Lock()
	s.state = StateUnauthenticated
	s.user = nil
	s.mu.Unlock()
}

// tokenUsable checks the token's exp claim without verifying the
// signature; verification is the server's job. Opaque tokens pass and get
// judged by the server instead.
func tokenUsable(token string) bool {
	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return true
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.After(time.Now())
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}
