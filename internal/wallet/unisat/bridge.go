package unisat

import (
	"context"
	"encoding/json"

	"github.com/mrz1836/btclink/internal/bridge"
	"github.com/mrz1836/btclink/internal/wallet"
)

// Relay paths of the injected APIs.
const (
	Global       = "unisat_wallet"
	BitgetGlobal = "bitkeep.unisat"
)

type bridgeAPI struct {
	conn   bridge.Conn
	global string
}

// NewBridgeAPI adapts a browser relay to the Unisat API.
func NewBridgeAPI(conn bridge.Conn) API {
	return &bridgeAPI{conn: conn, global: Global}
}

// NewBitgetBridgeAPI adapts a browser relay to Bitget's Unisat-compatible API.
func NewBitgetBridgeAPI(conn bridge.Conn) API {
	return &bridgeAPI{conn: conn, global: BitgetGlobal}
}

func (b *bridgeAPI) method(name string) string {
	return b.global + "." + name
}

func (b *bridgeAPI) Installed() bool {
	return b.conn.Installed(b.global)
}

func (b *bridgeAPI) GetNetwork(ctx context.Context) (string, error) {
	var network string
	err := b.conn.Call(ctx, b.method("getNetwork"), nil, &network)
	return network, err
}

func (b *bridgeAPI) SwitchNetwork(ctx context.Context, network string) error {
	return b.conn.Call(ctx, b.method("switchNetwork"), []any{network}, nil)
}

func (b *bridgeAPI) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	err := b.conn.Call(ctx, b.method("requestAccounts"), nil, &accounts)
	return accounts, err
}

func (b *bridgeAPI) GetPublicKey(ctx context.Context) (string, error) {
	var pub string
	err := b.conn.Call(ctx, b.method("getPublicKey"), nil, &pub)
	return pub, err
}

func (b *bridgeAPI) SendBitcoin(ctx context.Context, to, amount string, opts *wallet.SendOptions) (string, error) {
	params := []any{to, amount}
	if opts != nil && opts.FeeRate > 0 {
		params = append(params, map[string]any{"feeRate": opts.FeeRate})
	}

	var txid string
	err := b.conn.Call(ctx, b.method("sendBitcoin"), params, &txid)
	return txid, err
}

func (b *bridgeAPI) On(event string, fn func(data json.RawMessage)) wallet.Subscription {
	return b.conn.Subscribe(b.method(event), fn)
}
