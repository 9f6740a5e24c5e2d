// Package ledger connects Ledger hardware wallets running the Bitcoin app
// over USB HID.
package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"

	"github.com/mrz1836/btclink/internal/wallet"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// Display metadata.
const (
	Name = "Ledger"
	Logo = "https://www.ledger.com/favicon.ico"
)

// Account is the derived account the provider is connected to.
type Account struct {
	Path      accounts.DerivationPath
	Format    Format
	Address   string
	PublicKey []byte // compressed
}

// Sender signs and broadcasts a transfer from account using the open device.
// btclink ships no Sender; hosts with a PSBT pipeline inject one.
type Sender interface {
	SendBitcoin(ctx context.Context, dev Transport, from Account, to, amount string, opts *wallet.SendOptions) (string, error)
}

// Option configures the Ledger wallet.
type Option func(*provider)

// WithPath overrides the derivation path.
func WithPath(path string) Option {
	return func(p *provider) { p.path = path }
}

// WithExchangeTimeout overrides the per-exchange timeout.
func WithExchangeTimeout(d time.Duration) Option {
	return func(p *provider) { p.timeout = d }
}

// WithSender enables SendBitcoin.
func WithSender(s Sender) Option {
	return func(p *provider) { p.sender = s }
}

type provider struct {
	params  wallet.Params
	opener  DeviceOpener
	path    string
	timeout time.Duration
	sender  Sender

	mu      sync.Mutex
	dev     Transport
	account *Account
}

// New creates the Ledger wallet. A nil opener uses HIDOpener.
func New(params wallet.Params, opener DeviceOpener, opts ...Option) wallet.Wallet {
	if opener == nil {
		opener = HIDOpener{}
	}
	p := &provider{
		params:  params.WithDefaults(),
		opener:  opener,
		path:    DefaultPath,
		timeout: ExchangeTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *provider) Name() string      { return Name }
func (p *provider) Logo() string      { return Logo }
func (p *provider) Type() wallet.Type { return wallet.Ledger }

// IsInstalled is always false: device presence cannot be probed without a
// user gesture, so Ledger is never listed first nor reconnected silently.
func (p *provider) IsInstalled() bool { return false }

// Connect opens the device, resets it and derives the configured path.
// Failures are logged and only clear the connecting flag.
func (p *provider) Connect(ctx context.Context) error {
	if t, busy := p.params.State.Connecting(); busy {
		p.params.Logger.Debug("connect ledger ignored: %s connect in flight", t)
		return nil
	}
	if !p.params.State.BeginConnect(wallet.Ledger) {
		return nil
	}

	dev, account, err := p.open(ctx)
	if err != nil {
		p.params.Logger.Error("ledger connect: %v", err)
		p.params.State.Abort(false)
		return nil
	}

	info := wallet.Connected(wallet.Ledger, account.Address, hex.EncodeToString(account.PublicKey))
	if err := p.params.State.Complete(info); err != nil {
		p.params.Logger.Error("ledger connect: %v", err)
		_ = dev.Close()
		return nil
	}

	p.mu.Lock()
	old := p.dev
	p.dev, p.account = dev, account
	p.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

func (p *provider) open(ctx context.Context) (Transport, *Account, error) {
	raw, err := p.opener.Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	dev := WithTimeout(raw, p.timeout)

	info, err := ReadAppInfo(ctx, dev)
	if err != nil {
		_ = dev.Close()
		return nil, nil, err
	}
	p.params.Logger.Debug("ledger app %s %s", info.Name, info.Version)

	account, err := DeriveAccount(ctx, dev, p.path)
	if err != nil {
		_ = dev.Close()
		return nil, nil, err
	}
	return dev, account, nil
}

// ReadAppInfo sends the dashboard reset command and returns the open app.
func ReadAppInfo(ctx context.Context, dev Transport) (AppInfo, error) {
	reply, err := dev.Exchange(ctx, resetAPDU)
	if err != nil {
		return AppInfo{}, err
	}
	return parseAppInfo(reply)
}

// DeriveAccount asks the Bitcoin app for the key at path and checks that the
// reported address matches the key.
func DeriveAccount(ctx context.Context, dev Transport, path string) (*Account, error) {
	dp, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	format := AddressFormat(path)

	reply, err := dev.Exchange(ctx, getWalletPublicKeyAPDU(dp, format))
	if err != nil {
		return nil, err
	}
	wpk, err := parseWalletPublicKey(reply)
	if err != nil {
		return nil, err
	}

	compressed, err := CompressPublicKey(wpk.PublicKey)
	if err != nil {
		return nil, err
	}
	if err := verifyAddress(compressed, format, wpk.Address); err != nil {
		return nil, err
	}

	return &Account{Path: dp, Format: format, Address: wpk.Address, PublicKey: compressed}, nil
}

// Disconnect closes the device and resets the session. It never fails.
func (p *provider) Disconnect(context.Context) error {
	p.mu.Lock()
	dev := p.dev
	p.dev, p.account = nil, nil
	p.mu.Unlock()

	if dev != nil {
		if err := dev.Close(); err != nil {
			p.params.Logger.Error("ledger close: %v", err)
		}
	}
	p.params.Forget()
	p.params.State.Reset()
	return nil
}

// SendBitcoin hands the transfer to the injected Sender.
func (p *provider) SendBitcoin(ctx context.Context, req wallet.SendRequest) (string, error) {
	if p.sender == nil {
		return "", linkerr.WithDetails(linkerr.ErrNotSupported, map[string]string{
			"wallet":    Name,
			"operation": "send",
		})
	}

	p.mu.Lock()
	dev, account := p.dev, p.account
	p.mu.Unlock()
	if dev == nil || account == nil {
		return "", linkerr.WithDetails(linkerr.ErrNotConnected, map[string]string{"wallet": Name})
	}

	txid, err := p.sender.SendBitcoin(ctx, dev, *account, req.Recipient, strconv.FormatInt(req.Amount, 10), req.Options)
	if err != nil {
		return "", fmt.Errorf("ledger send: %w", err)
	}
	return txid, nil
}
