// Package unisat connects the Unisat browser extension and Bitget, which
// injects a Unisat-compatible API.
package unisat

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/btclink/internal/wallet"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// Mainnet is the only network btclink operates on.
const Mainnet = "livenet"

// Events emitted by the extension.
const (
	EventAccountsChanged = "accountsChanged"
	EventDisconnect      = "disconnect"
)

const eventTimeout = 30 * time.Second

// Profile is the display metadata of a Unisat-compatible wallet.
type Profile struct {
	Type       wallet.Type
	Name       string
	Logo       string
	InstallURL string
}

// Known profiles.
var (
	UnisatProfile = Profile{
		Type:       wallet.Unisat,
		Name:       "Unisat Wallet",
		Logo:       "https://unisat.io/img/logo.svg",
		InstallURL: "https://unisat.io/download",
	}
	BitgetProfile = Profile{
		Type:       wallet.Bitget,
		Name:       "Bitget Wallet",
		Logo:       "https://web3.bitget.com/favicon.ico",
		InstallURL: "https://web3.bitget.com/en/wallet-download",
	}
)

// API is the Unisat provider surface.
type API interface {
	Installed() bool
	GetNetwork(ctx context.Context) (string, error)
	SwitchNetwork(ctx context.Context, network string) error
	RequestAccounts(ctx context.Context) ([]string, error)
	GetPublicKey(ctx context.Context) (string, error)
	// SendBitcoin takes the amount as a decimal string of satoshis.
	SendBitcoin(ctx context.Context, to, amount string, opts *wallet.SendOptions) (string, error)
	On(event string, fn func(data json.RawMessage)) wallet.Subscription
}

type provider struct {
	profile   Profile
	params    wallet.Params
	api       API
	listeners wallet.Listeners
}

// New creates the Unisat wallet.
func New(params wallet.Params, api API) wallet.Wallet {
	return NewWithProfile(UnisatProfile, params, api)
}

// NewBitget creates the Bitget wallet over its Unisat-compatible API.
func NewBitget(params wallet.Params, api API) wallet.Wallet {
	return NewWithProfile(BitgetProfile, params, api)
}

// NewWithProfile creates a Unisat-compatible wallet described by profile.
func NewWithProfile(profile Profile, params wallet.Params, api API) wallet.Wallet {
	return &provider{profile: profile, params: params.WithDefaults(), api: api}
}

func (p *provider) Name() string      { return p.profile.Name }
func (p *provider) Logo() string      { return p.profile.Logo }
func (p *provider) Type() wallet.Type { return p.profile.Type }
func (p *provider) IsInstalled() bool { return p.api.Installed() }

// Connect moves the extension to mainnet if needed, then reads the account
// and public key. Failures are logged and reset the session.
func (p *provider) Connect(ctx context.Context) error {
	if !p.params.BeginConnect(ctx, p, p.profile.InstallURL) {
		return nil
	}

	info, err := p.handshake(ctx)
	if err != nil {
		p.params.Logger.Error("%s connect: %v", p.profile.Type, wallet.WrapError(p.profile.Type, err))
		p.params.State.Abort(true)
		return nil
	}

	if err := p.params.State.Complete(info); err != nil {
		p.params.Logger.Error("%s connect: %v", p.profile.Type, err)
		p.params.State.Reset()
		return nil
	}
	p.listen()
	return nil
}

func (p *provider) handshake(ctx context.Context) (wallet.Info, error) {
	network, err := p.api.GetNetwork(ctx)
	if err != nil {
		return wallet.Info{}, err
	}
	if network != Mainnet {
		p.params.Logger.Debug("%s on %q, switching to %s", p.profile.Type, network, Mainnet)
		if err := p.api.SwitchNetwork(ctx, Mainnet); err != nil {
			return wallet.Info{}, err
		}
	}

	var (
		accounts  []string
		publicKey string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = p.api.RequestAccounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		publicKey, err = p.api.GetPublicKey(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return wallet.Info{}, err
	}

	if len(accounts) == 0 {
		return wallet.Info{}, linkerr.WithDetails(linkerr.ErrNoAddress, map[string]string{"wallet": p.profile.Type.String()})
	}
	return wallet.Connected(p.profile.Type, accounts[0], publicKey), nil
}

func (p *provider) listen() {
	gen := p.listeners.Begin()

	p.listeners.Add(gen, p.api.On(EventAccountsChanged, func(data json.RawMessage) {
		p.onAccountsChanged(gen, data)
	}))
	p.listeners.Add(gen, p.api.On(EventDisconnect, func(json.RawMessage) {
		if !p.listeners.Current(gen) {
			return
		}
		p.params.Logger.Debug("%s disconnected by extension", p.profile.Type)
		p.teardown()
	}))
}

func (p *provider) onAccountsChanged(gen uint64, data json.RawMessage) {
	if !p.listeners.Current(gen) {
		return
	}

	var accounts []string
	if err := json.Unmarshal(data, &accounts); err != nil {
		p.params.Logger.Error("%s accountsChanged payload: %v", p.profile.Type, err)
		return
	}
	if len(accounts) == 0 {
		p.teardown()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	publicKey, err := p.api.GetPublicKey(ctx)
	if !p.listeners.Current(gen) {
		return
	}
	if err != nil {
		p.params.Logger.Error("%s public key after account change: %v", p.profile.Type, err)
		p.params.State.Reset()
		return
	}
	if err := p.params.State.SetInfo(wallet.Connected(p.profile.Type, accounts[0], publicKey)); err != nil {
		p.params.State.Reset()
	}
}

// Disconnect drops listeners and the session. The extension has no
// disconnect call of its own.
func (p *provider) Disconnect(context.Context) error {
	p.teardown()
	return nil
}

func (p *provider) teardown() {
	p.listeners.Clear()
	p.params.Forget()
	p.params.State.Reset()
}

// SendBitcoin calls sendBitcoin(to, "<satoshis>", options).
func (p *provider) SendBitcoin(ctx context.Context, req wallet.SendRequest) (string, error) {
	if !p.api.Installed() {
		return "", linkerr.WithDetails(linkerr.ErrWalletNotInstalled, map[string]string{"wallet": p.profile.Name})
	}

	txid, err := p.api.SendBitcoin(ctx, req.Recipient, strconv.FormatInt(req.Amount, 10), req.Options)
	if err != nil {
		return "", wallet.WrapError(p.profile.Type, err)
	}
	return txid, nil
}
