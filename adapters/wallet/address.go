package wallet

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/sabbai/adapulse/core"
	"github.com/sabbai/adapulse/ports"
)

// isBech32Address reports whether the wallet already answered with a
// human-readable address
func isBech32Address(addr string) bool {
	return strings.HasPrefix(addr, "addr") || strings.HasPrefix(addr, "stake")
}

// HexToBech32Address converts a raw hex-encoded Cardano address to bech32.
// The low nibble of the header byte carries the network: 0 for testnet.
func HexToBech32Address(hexAddr string) (string, error) {
	cleaned := strings.TrimPrefix(strings.TrimSpace(hexAddr), "0x")
	raw, err := hex.DecodeString(cleaned)
	if err != nil {
		return "", fmt.Errorf("invalid hex address: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty address payload")
	}

	hrp := "addr"
	if raw[0]&0x10 == 0 {
		hrp = "addr_test"
	}

	converted, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to regroup address bits: %w", err)
	}
	encoded, err := bech32.Encode(hrp, converted)
	if err != nil {
		return "", fmt.Errorf("failed to encode address: %w", err)
	}
	return encoded, nil
}

// resolveAddress finds a usable address for the enabled wallet. Change and
// reward addresses usually come back bech32 already; used/unused addresses
// are hex and need conversion.
func resolveAddress(ctx context.Context, api ports.WalletAPI) (string, error) {
	if addr, err := api.ChangeAddress(ctx); err == nil && isBech32Address(addr) {
		return addr, nil
	}

	if rewards, err := api.RewardAddresses(ctx); err == nil && len(rewards) > 0 {
		if isBech32Address(rewards[0]) {
			return rewards[0], nil
		}
	}

	used, err := api.UsedAddresses(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list used addresses: %w", err)
	}
	if len(used) > 0 {
		return HexToBech32Address(used[0])
	}

	unused, err := api.UnusedAddresses(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list unused addresses: %w", err)
	}
	if len(unused) > 0 {
		return HexToBech32Address(unused[0])
	}

	return "", core.ErrNoAddresses
}
