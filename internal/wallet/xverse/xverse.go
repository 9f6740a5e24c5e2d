// Package xverse connects the Xverse browser extension through its
// request/response provider API.
package xverse

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mrz1836/btclink/internal/wallet"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// Display metadata.
const (
	Name       = "Xverse"
	Logo       = "https://www.xverse.app/favicon.ico"
	InstallURL = "https://www.xverse.app/download"
)

// Provider methods and events.
const (
	MethodRequestPermissions  = "wallet_requestPermissions"
	MethodRenouncePermissions = "wallet_renouncePermissions"
	MethodGetAddresses        = "getAddresses"
	MethodSendTransfer        = "sendTransfer"

	EventAccountChange       = "accountChange"
	EventAccountDisconnected = "accountDisconnected"

	// PurposePayment selects the payment address.
	PurposePayment = "payment"
)

// eventTimeout bounds the address lookup triggered by an account change.
const eventTimeout = 30 * time.Second

// ResponseError is the error member of a provider response.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is the provider's reply to a request. Exactly one of Result and
// Error is set.
type Response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ResponseError  `json:"error,omitempty"`
}

// Address is one entry of a getAddresses result.
type Address struct {
	Address     string `json:"address"`
	PublicKey   string `json:"publicKey"`
	Purpose     string `json:"purpose"`
	AddressType string `json:"addressType,omitempty"`
}

// API is the slice of the Xverse BitcoinProvider the wallet uses.
type API interface {
	Installed() bool
	Request(ctx context.Context, method string, params any) (*Response, error)
	AddListener(event string, fn func(data json.RawMessage)) wallet.Subscription
}

type provider struct {
	params    wallet.Params
	api       API
	listeners wallet.Listeners
}

// New creates the Xverse wallet.
func New(params wallet.Params, api API) wallet.Wallet {
	return &provider{params: params.WithDefaults(), api: api}
}

func (p *provider) Name() string      { return Name }
func (p *provider) Logo() string      { return Logo }
func (p *provider) Type() wallet.Type { return wallet.Xverse }
func (p *provider) IsInstalled() bool { return p.api.Installed() }

// Connect asks for permissions, then for the payment address. Unlike the
// other extensions, a failed handshake is returned to the caller.
func (p *provider) Connect(ctx context.Context) error {
	if !p.params.BeginConnect(ctx, p, InstallURL) {
		return nil
	}

	addr, err := p.handshake(ctx)
	if err != nil {
		p.params.State.Abort(true)
		p.params.Logger.Error("xverse connect: %v", err)
		return err
	}

	if err := p.params.State.Complete(wallet.Connected(wallet.Xverse, addr.Address, addr.PublicKey)); err != nil {
		p.params.State.Reset()
		return err
	}
	p.listen()
	return nil
}

func (p *provider) handshake(ctx context.Context) (*Address, error) {
	resp, err := p.api.Request(ctx, MethodRequestPermissions, nil)
	if err != nil {
		return nil, wallet.WrapError(wallet.Xverse, err)
	}
	if resp.Error != nil {
		return nil, wallet.ProviderError(wallet.Xverse, resp.Error.Code, resp.Error.Message)
	}

	return p.paymentAddress(ctx)
}

// paymentAddress requests the payment purpose address.
func (p *provider) paymentAddress(ctx context.Context) (*Address, error) {
	resp, err := p.api.Request(ctx, MethodGetAddresses, map[string]any{
		"purposes": []string{PurposePayment},
	})
	if err != nil {
		return nil, wallet.WrapError(wallet.Xverse, err)
	}
	if resp.Error != nil {
		return nil, wallet.ProviderError(wallet.Xverse, resp.Error.Code, resp.Error.Message)
	}

	var result struct {
		Addresses []Address `json:"addresses"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, linkerr.WithCause(linkerr.ErrProviderError, err)
	}
	for i := range result.Addresses {
		if result.Addresses[i].Purpose == PurposePayment && result.Addresses[i].Address != "" {
			return &result.Addresses[i], nil
		}
	}
	return nil, linkerr.WithDetails(linkerr.ErrNoAddress, map[string]string{"wallet": wallet.Xverse.String()})
}

func (p *provider) listen() {
	gen := p.listeners.Begin()

	p.listeners.Add(gen, p.api.AddListener(EventAccountChange, func(json.RawMessage) {
		p.onAccountChange(gen)
	}))
	p.listeners.Add(gen, p.api.AddListener(EventAccountDisconnected, func(json.RawMessage) {
		if !p.listeners.Current(gen) {
			return
		}
		p.params.Logger.Debug("xverse account disconnected")
		p.teardown()
	}))
}

func (p *provider) onAccountChange(gen uint64) {
	if !p.listeners.Current(gen) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	addr, err := p.paymentAddress(ctx)
	if !p.listeners.Current(gen) {
		return
	}
	if err != nil {
		p.params.Logger.Error("xverse account change: %v", err)
		p.params.State.Reset()
		return
	}
	if err := p.params.State.SetInfo(wallet.Connected(wallet.Xverse, addr.Address, addr.PublicKey)); err != nil {
		p.params.State.Reset()
	}
}

// Disconnect renounces permissions when the extension is reachable, then
// drops listeners and the session.
func (p *provider) Disconnect(ctx context.Context) error {
	if p.api.Installed() {
		resp, err := p.api.Request(ctx, MethodRenouncePermissions, nil)
		switch {
		case err != nil:
			p.params.Logger.Error("xverse renounce permissions: %v", err)
		case resp.Error != nil:
			p.params.Logger.Error("xverse renounce permissions: %s", resp.Error.Message)
		}
	}
	p.teardown()
	return nil
}

func (p *provider) teardown() {
	p.listeners.Clear()
	p.params.Forget()
	p.params.State.Reset()
}

// SendBitcoin issues a sendTransfer request for a single recipient.
func (p *provider) SendBitcoin(ctx context.Context, req wallet.SendRequest) (string, error) {
	if !p.api.Installed() {
		return "", linkerr.WithDetails(linkerr.ErrWalletNotInstalled, map[string]string{"wallet": Name})
	}

	resp, err := p.api.Request(ctx, MethodSendTransfer, map[string]any{
		"recipients": []map[string]any{{"address": req.Recipient, "amount": req.Amount}},
	})
	if err != nil {
		return "", wallet.WrapError(wallet.Xverse, err)
	}

	var result struct {
		TxID string `json:"txid"`
	}
	var decodeErr error
	if len(resp.Result) > 0 {
		decodeErr = json.Unmarshal(resp.Result, &result)
	}
	if result.TxID != "" {
		return result.TxID, nil
	}
	if resp.Error != nil {
		return "", wallet.ProviderError(wallet.Xverse, resp.Error.Code, resp.Error.Message)
	}
	if decodeErr != nil {
		p.params.Logger.Error("xverse sendTransfer result: %v", decodeErr)
		return "", wallet.ProviderError(wallet.Xverse, 0, "no transaction id in response: "+decodeErr.Error())
	}
	return "", wallet.ProviderError(wallet.Xverse, 0, "no transaction id in response")
}
