// Package wallet defines the capability interface shared by every Bitcoin wallet
// provider, the session snapshot providers report into, and the parameters the
// controller injects into provider factories.
package wallet

import (
	"context"
	"strings"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// Type identifies a wallet implementation.
type Type string

// Supported wallet types.
const (
	Xverse Type = "xverse"
	OKX    Type = "okx"
	Unisat Type = "unisat"
	Bitget Type = "bitget"
	Ledger Type = "ledger"
)

// PersistKey is the store key holding the last connected, persistable wallet type.
const PersistKey = "bitcoinWallet"

// AllTypes returns every wallet type in canonical order.
func AllTypes() []Type {
	return []Type{Xverse, OKX, Unisat, Bitget, Ledger}
}

// ParseType parses a wallet name, case-insensitively.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", linkerr.WithDetails(linkerr.ErrUnknownWallet, map[string]string{"wallet": s})
	}
	return t, nil
}

// String returns the wallet type name.
func (t Type) String() string {
	return string(t)
}

// IsValid reports whether t is a known wallet type.
func (t Type) IsValid() bool {
	switch t {
	case Xverse, OKX, Unisat, Bitget, Ledger:
		return true
	default:
		return false
	}
}

// Persistable reports whether the wallet may be silently reconnected later.
// Ledger device handles cannot be reacquired without a user gesture.
func (t Type) Persistable() bool {
	return t.IsValid() && t != Ledger
}

// Info is the snapshot of the current wallet session. Empty strings stand for
// "no value".
type Info struct {
	IsConnected bool   `json:"is_connected"`
	Address     string `json:"address,omitempty"`
	PublicKey   string `json:"public_key,omitempty"`
	WalletType  Type   `json:"wallet_type,omitempty"`
}

// DefaultInfo returns the disconnected snapshot.
func DefaultInfo() Info {
	return Info{}
}

// Valid reports whether the snapshot satisfies the connected-implies-complete invariant.
func (i Info) Valid() bool {
	if !i.IsConnected {
		return true
	}
	return i.Address != "" && i.PublicKey != "" && i.WalletType != ""
}

// Connected builds the snapshot for a successful handshake.
func Connected(t Type, address, publicKey string) Info {
	return Info{
		IsConnected: true,
		Address:     address,
		PublicKey:   publicKey,
		WalletType:  t,
	}
}

// Wallet is the uniform capability set every provider implements.
type Wallet interface {
	// Name is the display name.
	Name() string
	// Logo is a URL or asset path for the wallet icon.
	Logo() string
	// Type identifies the implementation.
	Type() Type
	// IsInstalled is a synchronous probe for the underlying extension or device API.
	IsInstalled() bool
	// Connect performs the handshake and reports the result into the shared state.
	// It is a no-op while any connect is already in flight.
	Connect(ctx context.Context) error
	// Disconnect removes listeners, forgets the persisted wallet and resets the state.
	Disconnect(ctx context.Context) error
	// SendBitcoin submits a transfer and returns the transaction id.
	SendBitcoin(ctx context.Context, req SendRequest) (string, error)
}

// Subscription is the handle returned when registering a wallet event listener.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

// Unsubscribe calls f.
func (f SubscriptionFunc) Unsubscribe() {
	if f != nil {
		f()
	}
}
