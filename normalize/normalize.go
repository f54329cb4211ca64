// Package normalize extracts fixed-length raw key and signature bytes from
// the CBOR-wrapped hex payloads returned by CIP-30 wallets.
//
// Wallets answer signData with a COSE_Sign1 structure for the signature and
// a COSE_Key map for the key. The backend only wants the raw Ed25519 bytes
// for the key, so we locate the embedded byte string and slice it out.
package normalize

import (
	"encoding/hex"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/sabbai/adapulse/core"
)

// CBOR byte-string headers: 0x58 <one-byte length> <data>
const (
	markerKey = "5820" // 32 bytes follow
	markerSig = "5840" // 64 bytes follow
)

// PublicKey extracts the raw 32-byte Ed25519 public key (64 hex chars)
func PublicKey(raw string) (string, error) {
	return Extract(raw, 32)
}

// Signature extracts the raw 64-byte Ed25519 signature (128 hex chars)
func Signature(raw string) (string, error) {
	return Extract(raw, 64)
}

// Extract returns exactly byteLen bytes of lowercase hex from a payload that
// may be wrapped in a CBOR envelope. It fails with *core.ExtractionError
// rather than return a short or padded result.
func Extract(raw string, byteLen int) (string, error) {
	h := strings.ToLower(strings.TrimSpace(raw))
	h = strings.TrimPrefix(h, "0x")
	want := byteLen * 2

	// Strict path: the whole payload is a single CBOR byte string of the
	// expected length. cbor.Unmarshal rejects trailing garbage, so this
	// only fires on clean envelopes.
	if b, err := hex.DecodeString(h); err == nil {
		var inner []byte
		if err := cbor.Unmarshal(b, &inner); err == nil && len(inner) == byteLen {
			return hex.EncodeToString(inner), nil
		}
	}

	// Marker scan: find the byte-string header that announces exactly the
	// length we expect and slice the run of hex digits that follows it.
	// Covers COSE_Key maps and COSE_Sign1 arrays without a full decode.
	var marker string
	switch byteLen {
	case 32:
		marker = markerKey
	case 64:
		marker = markerSig
	}
	if marker != "" {
		if idx := strings.Index(h, marker); idx != -1 {
			start := idx + len(marker)
			if len(h) >= start+want {
				return h[start : start+want], nil
			}
		}
	}

	// Already the right length: pass through unchanged
	if len(h) == want {
		return h, nil
	}

	// Longer with no marker: structured envelope bytes precede the raw
	// payload, so the trailing slice is the payload
	if len(h) > want {
		return h[len(h)-want:], nil
	}

	return "", &core.ExtractionError{WantBytes: byteLen, GotBytes: len(h) / 2}
}
