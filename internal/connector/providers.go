package connector

import (
	"github.com/mrz1836/btclink/internal/bridge"
	"github.com/mrz1836/btclink/internal/wallet"
	"github.com/mrz1836/btclink/internal/wallet/ledger"
	"github.com/mrz1836/btclink/internal/wallet/okx"
	"github.com/mrz1836/btclink/internal/wallet/unisat"
	"github.com/mrz1836/btclink/internal/wallet/xverse"
)

// DefaultFactories returns the five built-in providers in canonical order:
// the browser wallets over conn, then Ledger over opener (nil uses USB HID).
func DefaultFactories(conn bridge.Conn, opener ledger.DeviceOpener, ledgerOpts ...ledger.Option) []Factory {
	return []Factory{
		func(p wallet.Params) wallet.Wallet { return xverse.New(p, xverse.NewBridgeAPI(conn)) },
		func(p wallet.Params) wallet.Wallet { return okx.New(p, okx.NewBridgeAPI(conn)) },
		func(p wallet.Params) wallet.Wallet { return unisat.New(p, unisat.NewBridgeAPI(conn)) },
		func(p wallet.Params) wallet.Wallet { return unisat.NewBitget(p, unisat.NewBitgetBridgeAPI(conn)) },
		func(p wallet.Params) wallet.Wallet { return ledger.New(p, opener, ledgerOpts...) },
	}
}
