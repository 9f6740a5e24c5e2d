package connector

import (
	"context"

	"github.com/mrz1836/btclink/internal/wallet"
)

// BalanceFetcher returns the confirmed balance of an address in satoshis.
// Satisfied by *explorer.Client.
type BalanceFetcher interface {
	ConfirmedBalance(ctx context.Context, address string) (int64, error)
}

// Store is the persisted key-value store holding the last wallet type.
// Satisfied by every store.Store backend.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// Factory builds one provider from the shared params.
type Factory func(params wallet.Params) wallet.Wallet
