package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabbai/adapulse/core"
)

const (
	rawKey = "6a3c1f0b9d2e4a5b8c7d6e5f4a3b2c1d0e9f8a7b6c5d4e3f2a1b0c9d8e7f6a5b"
	rawSig = rawKey + rawKey
)

func TestPublicKeyPlainEnvelope(t *testing.T) {
	out, err := PublicKey("5820" + rawKey)
	require.NoError(t, err)
	assert.Equal(t, rawKey, out)
	assert.Len(t, out, 64)
}

func TestSignaturePlainEnvelope(t *testing.T) {
	out, err := Signature("5840" + rawSig)
	require.NoError(t, err)
	assert.Equal(t, rawSig, out)
	assert.Len(t, out, 128)
}

func TestPublicKeyCoseKeyMap(t *testing.T) {
	// COSE_Key map: {1: 1, 3: -8, -1: 6, -2: <key bytes>}
	cose := "a4010103272006215820" + rawKey
	out, err := PublicKey(cose)
	require.NoError(t, err)
	assert.Equal(t, rawKey, out)
}

func TestSignatureCoseSign1(t *testing.T) {
	// COSE_Sign1 array with protected headers and an empty payload slot,
	// signature byte string last
	cose := "845829a201276761646472657373581d60f0a4" + "40" + "5840" + rawSig
	out, err := Signature(cose)
	require.NoError(t, err)
	assert.Equal(t, rawSig, out)
}

func TestExtractExactLengthPassthrough(t *testing.T) {
	out, err := Extract(rawKey, 32)
	require.NoError(t, err)
	assert.Equal(t, rawKey, out)
}

func TestExtractTrailingSliceWithoutMarker(t *testing.T) {
	// Envelope bytes precede the payload but carry no recognizable marker
	out, err := Extract("ffee"+rawKey, 32)
	require.NoError(t, err)
	assert.Equal(t, rawKey, out)
}

func TestExtractStripsPrefixAndWhitespace(t *testing.T) {
	out, err := Extract("  0x5820"+strings.ToUpper(rawKey)+"\n", 32)
	require.NoError(t, err)
	assert.Equal(t, rawKey, out)
}

func TestExtractShortPayloadFails(t *testing.T) {
	_, err := Extract(rawKey[:20], 32)
	require.Error(t, err)

	var extractErr *core.ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, 32, extractErr.WantBytes)
	assert.Equal(t, 10, extractErr.GotBytes)
}

func TestExtractTruncatedEnvelopeFails(t *testing.T) {
	// Marker present but not enough hex after it, and the payload is too
	// short for any fallback
	_, err := Extract("5820"+rawKey[:30], 32)
	require.Error(t, err)

	var extractErr *core.ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, 32, extractErr.WantBytes)
}

func TestExtractNeverReturnsWrongLength(t *testing.T) {
	inputs := []string{
		"5820" + rawKey,
		"a4010103272006215820" + rawKey,
		rawKey,
		"deadbeef" + rawKey,
	}
	for _, in := range inputs {
		out, err := Extract(in, 32)
		require.NoError(t, err)
		assert.Len(t, out, 64)
	}
}
