package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sabbai/adapulse/core"
	"github.com/sabbai/adapulse/ports"
)

// HTTPBridge talks to a local wallet bridge daemon that proxies the CIP-30
// API of a browser wallet. Each capability call is one JSON round trip:
//
//	POST <base>/ {"method": "getChangeAddress", "params": []}
//
// The daemon answers {"result": ...} or {"error": "..."}.
type HTTPBridge struct {
	baseURL string
	http    *http.Client
}

var (
	_ ports.WalletAPI      = (*HTTPBridge)(nil)
	_ ports.WalletProvider = (*HTTPBridge)(nil)
)

// NewHTTPBridge creates a bridge client for the given base URL. Signing
// waits on a human decision in the wallet UI, so no client-side timeout is
// applied; cancellation comes from the caller's context.
func NewHTTPBridge(baseURL string) *HTTPBridge {
	return &HTTPBridge{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 0},
	}
}

func (b *HTTPBridge) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(map[string]any{
		"method": method,
		"params": params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode bridge call: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build bridge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("bridge call %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read bridge response: %w", err)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("unparseable bridge response: %w", err)
	}
	if envelope.Error != "" {
		return fmt.Errorf("bridge call %s: %s", method, envelope.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("failed to decode bridge result: %w", err)
	}
	return nil
}

// Enable asks the bridge to run the wallet's approval flow
func (b *HTTPBridge) Enable(ctx context.Context) (ports.WalletAPI, error) {
	if err := b.call(ctx, "enable", nil, nil); err != nil {
		return nil, err
	}
	return b, nil
}

// IsEnabled reports whether the wallet already granted access
func (b *HTTPBridge) IsEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	if err := b.call(ctx, "isEnabled", nil, &enabled); err != nil {
		return false, err
	}
	return enabled, nil
}

// NetworkID returns the wallet's network id
func (b *HTTPBridge) NetworkID(ctx context.Context) (int, error) {
	var id int
	if err := b.call(ctx, "getNetworkId", nil, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// ChangeAddress returns the wallet's change address
func (b *HTTPBridge) ChangeAddress(ctx context.Context) (string, error) {
	var addr string
	if err := b.call(ctx, "getChangeAddress", nil, &addr); err != nil {
		return "", err
	}
	return addr, nil
}

// RewardAddresses returns the wallet's reward addresses
func (b *HTTPBridge) RewardAddresses(ctx context.Context) ([]string, error) {
	var addrs []string
	if err := b.call(ctx, "getRewardAddresses", nil, &addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}

// UsedAddresses returns the wallet's used addresses
func (b *HTTPBridge) UsedAddresses(ctx context.Context) ([]string, error) {
	var addrs []string
	if err := b.call(ctx, "getUsedAddresses", nil, &addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}

// UnusedAddresses returns the wallet's unused addresses
func (b *HTTPBridge) UnusedAddresses(ctx context.Context) ([]string, error) {
	var addrs []string
	if err := b.call(ctx, "getUnusedAddresses", nil, &addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}

// Balance returns the hex-encoded lovelace balance
func (b *HTTPBridge) Balance(ctx context.Context) (string, error) {
	var balance string
	if err := b.call(ctx, "getBalance", nil, &balance); err != nil {
		return "", err
	}
	return balance, nil
}

// SignData runs the wallet's CIP-8 signData flow. This blocks until the
// user approves or rejects in the wallet UI.
func (b *HTTPBridge) SignData(ctx context.Context, address, payloadHex string) (core.SignedPayload, error) {
	var signed core.SignedPayload
	if err := b.call(ctx, "signData", []any{address, payloadHex}, &signed); err != nil {
		return core.SignedPayload{}, err
	}
	return signed, nil
}
