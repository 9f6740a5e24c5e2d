// Package okx connects the OKX browser extension's bitcoin provider.
package okx

import (
	"context"

	"github.com/mrz1836/btclink/internal/wallet"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// Display metadata.
const (
	Name       = "OKX Wallet"
	Logo       = "https://static.okx.com/cdn/assets/imgs/247/58E63FEA47A2B7D7.png"
	InstallURL = "https://www.okx.com/web3"
)

// Account is the result of bitcoin.connect().
type Account struct {
	Address             string `json:"address"`
	PublicKey           string `json:"publicKey"`
	CompressedPublicKey string `json:"compressedPublicKey"`
}

// API is the slice of window.okxwallet.bitcoin the wallet uses.
type API interface {
	Installed() bool
	// Connect returns a nil account when the extension resolves to null.
	Connect(ctx context.Context) (*Account, error)
	Disconnect(ctx context.Context) error
	// SendBitcoin takes the amount as a number of satoshis.
	SendBitcoin(ctx context.Context, to string, amount int64, opts *wallet.SendOptions) (string, error)
}

type provider struct {
	params wallet.Params
	api    API
}

// New creates the OKX wallet.
func New(params wallet.Params, api API) wallet.Wallet {
	return &provider{params: params.WithDefaults(), api: api}
}

func (p *provider) Name() string      { return Name }
func (p *provider) Logo() string      { return Logo }
func (p *provider) Type() wallet.Type { return wallet.OKX }
func (p *provider) IsInstalled() bool { return p.api.Installed() }

// Connect calls bitcoin.connect(). The extension sometimes resolves the first
// call to null; in that case it is disconnected and asked once more.
// Failures are logged and leave only the connecting flag cleared.
func (p *provider) Connect(ctx context.Context) error {
	if !p.params.BeginConnect(ctx, p, InstallURL) {
		return nil
	}

	acct, err := p.api.Connect(ctx)
	if err == nil && acct == nil {
		p.params.Logger.Debug("okx connect resolved null, retrying once")
		if derr := p.api.Disconnect(ctx); derr != nil {
			p.params.Logger.Error("okx disconnect before retry: %v", derr)
		}
		acct, err = p.api.Connect(ctx)
	}

	switch {
	case err != nil:
		p.params.Logger.Error("okx connect: %v", wallet.WrapError(wallet.OKX, err))
		p.params.State.Abort(false)
		return nil
	case acct == nil:
		p.params.Logger.Error("okx connect: %v", linkerr.ErrNoAddress)
		p.params.State.Abort(false)
		return nil
	}

	info := wallet.Connected(wallet.OKX, acct.Address, acct.CompressedPublicKey)
	if err := p.params.State.Complete(info); err != nil {
		p.params.Logger.Error("okx connect: %v", err)
	}
	return nil
}

// Disconnect drops the session. It never fails.
func (p *provider) Disconnect(ctx context.Context) error {
	if p.api.Installed() {
		if err := p.api.Disconnect(ctx); err != nil {
			p.params.Logger.Error("okx disconnect: %v", err)
		}
	}
	p.params.Forget()
	p.params.State.Reset()
	return nil
}

// SendBitcoin calls bitcoin.sendBitcoin(to, satoshis, options).
func (p *provider) SendBitcoin(ctx context.Context, req wallet.SendRequest) (string, error) {
	if !p.api.Installed() {
		return "", linkerr.WithDetails(linkerr.ErrWalletNotInstalled, map[string]string{"wallet": Name})
	}

	txid, err := p.api.SendBitcoin(ctx, req.Recipient, req.Amount, req.Options)
	if err != nil {
		return "", wallet.WrapError(wallet.OKX, err)
	}
	return txid, nil
}
