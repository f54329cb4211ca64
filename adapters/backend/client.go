// Package backend implements ports.Backend against the dashboard HTTP API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sabbai/adapulse/core"
	"github.com/sabbai/adapulse/ports"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response from the backend, carrying the error
// string the server put in the body
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks JSON over HTTP to the dashboard backend. It keeps the access
// token for bearer auth and a cookie jar for cross-cutting session needs.
type Client struct {
	baseURL string
	http    *http.Client

	mu          sync.RWMutex
	accessToken string
}

var _ ports.Backend = (*Client)(nil)

// NewClient creates a backend client for the given base URL
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
		},
	}
}

// SetAccessToken swaps the bearer token; an empty string clears it
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// request performs one JSON round trip. A nil body sends no payload, a nil
// out discards the response body.
func (c *Client) request(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError pulls the server's error string out of the body, falling back
// to the HTTP status when the body is not usable
func decodeError(resp *http.Response) error {
	apiErr := &APIError{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
	}
	return apiErr
}

// Challenge fetches a nonce-bearing message for the address to sign
func (c *Client) Challenge(ctx context.Context, address string) (core.Challenge, error) {
	var out core.Challenge
	path := "/api/auth/challenge?address=" + url.QueryEscape(address)
	if err := c.request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return core.Challenge{}, fmt.Errorf("failed to fetch challenge: %w", err)
	}
	return out, nil
}

// Login submits the signed challenge and returns the issued tokens and user
func (c *Client) Login(ctx context.Context, req core.LoginRequest) (core.AuthResult, error) {
	var out core.AuthResult
	if err := c.request(ctx, http.MethodPost, "/api/auth/login", req, &out); err != nil {
		return core.AuthResult{}, err
	}
	return out, nil
}

// Refresh exchanges the refresh token for a new access token
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.request(ctx, http.MethodPost, "/api/auth/refresh", body, &out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// Logout invalidates the session server-side
func (c *Client) Logout(ctx context.Context) error {
	return c.request(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// CurrentUser fetches the authenticated identity
func (c *Client) CurrentUser(ctx context.Context) (core.User, error) {
	var out core.User
	if err := c.request(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return core.User{}, err
	}
	return out, nil
}

// AddWallet links an additional wallet address to the current user
func (c *Client) AddWallet(ctx context.Context, req core.LoginRequest) (core.AddWalletResult, error) {
	var out core.AddWalletResult
	if err := c.request(ctx, http.MethodPost, "/api/auth/add-wallet", req, &out); err != nil {
		return core.AddWalletResult{}, err
	}
	return out, nil
}

// Blocks fetches the most recent blocks
func (c *Client) Blocks(ctx context.Context, limit int) ([]core.Block, error) {
	var out struct {
		Blocks []core.Block `json:"blocks"`
	}
	path := "/api/blocks?limit=" + strconv.Itoa(limit)
	if err := c.request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Blocks, nil
}

// LatestBlock fetches the tip of the chain as the backend sees it
func (c *Client) LatestBlock(ctx context.Context) (core.Block, error) {
	var out core.Block
	if err := c.request(ctx, http.MethodGet, "/api/blocks/latest", nil, &out); err != nil {
		return core.Block{}, err
	}
	return out, nil
}

// Transactions fetches the most recent transactions
func (c *Client) Transactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	var out struct {
		Transactions []core.Transaction `json:"transactions"`
	}
	path := "/api/transactions?limit=" + strconv.Itoa(limit)
	if err := c.request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// UserTransactions fetches transactions filtered to the user's addresses
func (c *Client) UserTransactions(ctx context.Context, addresses []string, limit int) (core.UserTransactions, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if len(addresses) > 0 {
		params.Set("addresses", strings.Join(addresses, ","))
	}
	var out core.UserTransactions
	if err := c.request(ctx, http.MethodGet, "/api/user/transactions?"+params.Encode(), nil, &out); err != nil {
		return core.UserTransactions{}, err
	}
	return out, nil
}

// UserBalance fetches per-address balances for the user's wallets
func (c *Client) UserBalance(ctx context.Context, addresses []string) (core.UserBalance, error) {
	path := "/api/user/balance"
	if len(addresses) > 0 {
		params := url.Values{}
		params.Set("addresses", strings.Join(addresses, ","))
		path += "?" + params.Encode()
	}
	var out core.UserBalance
	if err := c.request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return core.UserBalance{}, err
	}
	return out, nil
}

// UserWallets fetches the wallet addresses linked to the user
func (c *Client) UserWallets(ctx context.Context) (core.UserWallets, error) {
	var out core.UserWallets
	if err := c.request(ctx, http.MethodGet, "/api/user/wallets", nil, &out); err != nil {
		return core.UserWallets{}, err
	}
	return out, nil
}
