package okx

import (
	"context"

	"github.com/mrz1836/btclink/internal/bridge"
	"github.com/mrz1836/btclink/internal/wallet"
)

// Global is the relay path of the OKX bitcoin provider.
const Global = "okxwallet.bitcoin"

type bridgeAPI struct {
	conn bridge.Conn
}

// NewBridgeAPI adapts a browser relay to API.
func NewBridgeAPI(conn bridge.Conn) API {
	return &bridgeAPI{conn: conn}
}

func (b *bridgeAPI) Installed() bool {
	return b.conn.Installed(Global)
}

func (b *bridgeAPI) Connect(ctx context.Context) (*Account, error) {
	var acct *Account
	if err := b.conn.Call(ctx, Global+".connect", nil, &acct); err != nil {
		return nil, err
	}
	return acct, nil
}

func (b *bridgeAPI) Disconnect(ctx context.Context) error {
	return b.conn.Call(ctx, Global+".disconnect", nil, nil)
}

func (b *bridgeAPI) SendBitcoin(ctx context.Context, to string, amount int64, opts *wallet.SendOptions) (string, error) {
	params := []any{to, amount}
	if opts != nil && opts.FeeRate > 0 {
		params = append(params, map[string]any{"feeRate": opts.FeeRate})
	}

	var txid string
	if err := b.conn.Call(ctx, Global+".sendBitcoin", params, &txid); err != nil {
		return "", err
	}
	return txid, nil
}
