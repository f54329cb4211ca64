package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabbai/adapulse/core"
)

func TestChallengeEncodesAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/challenge", r.URL.Path)
		assert.Equal(t, "addr_test1abc", r.URL.Query().Get("address"))
		json.NewEncoder(w).Encode(core.Challenge{
			Message: "Sign this: nonce",
			Address: "addr_test1abc",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	challenge, err := client.Challenge(context.Background(), "addr_test1abc")
	require.NoError(t, err)
	assert.Equal(t, "Sign this: nonce", challenge.Message)
}

func TestLoginParsesMisspelledRefreshField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/login", r.URL.Path)

		var req core.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "addr_test1abc", req.Address)
		assert.NotEmpty(t, req.PublicKey)

		// The backend really does spell it this way
		w.Write([]byte(`{
			"access_token": "access-1",
			"referesh_token": "refresh-1",
			"token_type": "bearer",
			"expires_in": 900,
			"user": {"address": "addr_test1abc"}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.Login(context.Background(), core.LoginRequest{
		Address:   "addr_test1abc",
		Message:   "Sign this: nonce",
		Signature: "845846...",
		PublicKey: "aabb",
	})
	require.NoError(t, err)
	assert.Equal(t, "access-1", result.AccessToken)
	assert.Equal(t, "refresh-1", result.RefreshToken)
	assert.Equal(t, "addr_test1abc", result.User.Address)
}

func TestBearerHeaderAttached(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(core.User{Address: "addr_test1abc"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetAccessToken("access-1")

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "addr_test1abc", user.Address)
}

func TestNoBearerHeaderWhenCleared(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(core.User{})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetAccessToken("access-1")
	client.SetAccessToken("")

	_, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
}

func TestErrorBodySurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid signature"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Login(context.Background(), core.LoginRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid signature", apiErr.Message)
}

func TestErrorWithoutBodyFallsBackToStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.LatestBlock(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, apiErr.Message, "502")
}

func TestRefreshSendsStoredToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/refresh", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-1", body["refresh_token"])
		w.Write([]byte(`{"access_token": "access-2"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	access, err := client.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "access-2", access)
}

func TestBlocksQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/blocks", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"blocks": [{"hash": "h1", "number": 1}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	blocks, err := client.Blocks(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "h1", blocks[0].Hash)
}

func TestUserTransactionsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/user/transactions", r.URL.Path)
		assert.Equal(t, "addr1,addr2", r.URL.Query().Get("addresses"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"transactions": [{"hash": "t1"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.UserTransactions(context.Background(), []string{"addr1", "addr2"}, 10)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
}
