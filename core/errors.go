package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoWalletConnected is returned when an operation requires a connected wallet
	ErrNoWalletConnected = errors.New("no wallet connected")

	// ErrWalletNotFound is returned when the requested wallet provider is not registered
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWrongNetwork is returned when the wallet is connected to the wrong network
	ErrWrongNetwork = errors.New("wallet is on the wrong network")

	// ErrNoAddresses is returned when the wallet exposes no usable address
	ErrNoAddresses = errors.New("no addresses found in wallet")

	// ErrNoRefreshToken is returned when a refresh is requested without a stored refresh token
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrLoginInProgress is returned when a login is requested while another is running
	ErrLoginInProgress = errors.New("login already in progress")

	// ErrNotAuthenticated is returned when an operation requires an authenticated session
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrStreamClosed is returned when the streaming manager has been shut down
	ErrStreamClosed = errors.New("stream connection closed")

	// ErrStreamNotConnected is returned when sending while the stream is down
	ErrStreamNotConnected = errors.New("stream connection not open")
)

// ExtractionError reports a signature or key payload the normalizer could
// not reduce to the expected raw length. It is always a hard failure; the
// normalizer never pads or truncates to cover for it.
type ExtractionError struct {
	WantBytes int
	GotBytes  int
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf(
		"cannot extract %d bytes from payload (got %d bytes)",
		e.WantBytes, e.GotBytes,
	)
}
