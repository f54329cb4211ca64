package core

// WalletInfo describes a known wallet provider
type WalletInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	Website   string `json:"website,omitempty"`
	Installed bool   `json:"installed"`
}

// ConnectedWallet is the handle for an enabled wallet session
type ConnectedWallet struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	Address   string `json:"address"`
	NetworkID int    `json:"network_id"`
}

// Challenge is a server-issued nonce-bearing message the user signs to
// prove ownership of an address
type Challenge struct {
	Message string `json:"message"`
	Address string `json:"address"`
}

// SignedPayload is the wallet's CIP-8 signing result. Signature and Key are
// hex strings as returned by the wallet, usually CBOR envelope-wrapped
type SignedPayload struct {
	Signature string `json:"signature"`
	Key       string `json:"key"`
}

// User is the authenticated identity returned by the backend
type User struct {
	Address         string   `json:"address"`
	WalletAddresses []string `json:"wallet_addresses"`
	CreatedAt       int64    `json:"created_at"`
}

// LoginRequest is the body for the login and add-wallet endpoints
type LoginRequest struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
	PublicKey string `json:"public_key"`
}

// AuthResult is the backend's login response.
// The refresh token field is misspelled on the wire; the backend sends it
// that way and we have to match it.
type AuthResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"referesh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         User   `json:"user"`
}

// AddWalletResult is the backend's add-wallet response
type AddWalletResult struct {
	Message string `json:"message"`
	Address string `json:"address"`
}

// Block is one block as delivered by the backend or the stream
type Block struct {
	Hash      string `json:"hash"`
	Number    uint64 `json:"number"`
	Slot      uint64 `json:"slot"`
	Epoch     uint64 `json:"epoch"`
	Timestamp uint64 `json:"timestamp"`
	TxCount   uint32 `json:"tx_count"`
	Size      uint64 `json:"size"`
}

// Transaction is one transaction as delivered by the backend or the stream
type Transaction struct {
	Hash        string `json:"hash"`
	BlockNumber uint64 `json:"block_number"`
	Timestamp   uint64 `json:"timestamp"`
	Fee         uint64 `json:"fee"`
	InputCount  uint32 `json:"input_count"`
	OutputCount uint32 `json:"output_count"`
	TotalOutput uint64 `json:"total_output"`
}

// StreamMessageUpdate is the only inbound frame type the streaming channel
// currently carries
const StreamMessageUpdate = "update"

// StreamMessage is one push from the streaming channel
type StreamMessage struct {
	Type         string        `json:"type"`
	Blocks       []Block       `json:"blocks,omitempty"`
	Transactions []Transaction `json:"transactions,omitempty"`
}

// AddressBalance is the per-address entry of the user balance response
type AddressBalance struct {
	Address    string `json:"address"`
	AdaBalance string `json:"ada_balance"`
}

// UserBalance is the backend's user balance response
type UserBalance struct {
	Balances map[string]AddressBalance `json:"balances"`
}

// UserTransactions is the backend's filtered transaction listing
type UserTransactions struct {
	Transactions  []Transaction `json:"transactions"`
	Count         int           `json:"count"`
	UserAddresses []string      `json:"user_addresses"`
}

// UserWallets is the backend's linked-wallet listing
type UserWallets struct {
	Wallets []string `json:"wallets"`
}
