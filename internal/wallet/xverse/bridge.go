package xverse

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mrz1836/btclink/internal/bridge"
	"github.com/mrz1836/btclink/internal/wallet"
)

// Global is the relay path of the Xverse provider object.
const Global = "XverseProviders.BitcoinProvider"

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

// Request calls provider.request(method, params). A rejected promise is
// folded into the response error so callers see one failure shape.
func (b *bridgeAPI) Request(ctx context.Context, method string, params any) (*Response, error) {
	args := []any{method}
	if params != nil {
		args = append(args, params)
	}

	var resp Response
	err := b.conn.Call(ctx, Global+".request", args, &resp)

	var rpcErr *bridge.RPCError
	if errors.As(err, &rpcErr) {
		return &Response{Error: &ResponseError{Code: rpcErr.Code, Message: rpcErr.Message}}, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (b *bridgeAPI) AddListener(event string, fn func(data json.RawMessage)) wallet.Subscription {
	return b.conn.Subscribe(Global+"."+event, fn)
}
