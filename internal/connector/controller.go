// Package connector owns the Bitcoin wallet session: the provider list, the
// shared connection state, the persisted last-wallet key, silent reconnect and
// the balance poller.
package connector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mrz1836/btclink/internal/metrics"
	"github.com/mrz1836/btclink/internal/store"
	"github.com/mrz1836/btclink/internal/wallet"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// DefaultPollInterval is how often the balance of the connected address is refreshed.
const DefaultPollInterval = 20 * time.Second

// Config holds the dependencies of a Controller.
type Config struct {
	// Factories build the providers, in display order. See DefaultFactories.
	Factories []Factory
	// Store persists the last connected wallet type. Defaults to an in-memory store.
	Store Store
	// Balance fetches confirmed balances. Nil disables balance polling.
	Balance BalanceFetcher
	// ShouldReconnect decides at Start whether to silently reconnect the
	// persisted wallet. Nil never reconnects.
	ShouldReconnect func() bool
	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
	// Opener opens wallet install pages.
	Opener wallet.Opener
	Logger wallet.Logger
	// Metrics defaults to metrics.Global.
	Metrics *metrics.Metrics
}

// Controller is the single source of truth for which wallet is connected.
type Controller struct {
	cfg     Config
	state   *wallet.State
	params  wallet.Params
	log     wallet.Logger
	metrics *metrics.Metrics

	mu        sync.RWMutex
	started   bool
	wallets   []wallet.Wallet
	byType    map[wallet.Type]wallet.Wallet
	ctx       context.Context //nolint:containedctx // lifetime of background goroutines
	cancel    context.CancelFunc
	unobserve func()

	balance atomic.Int64

	pollMu     sync.Mutex
	pollAddr   string
	pollCancel context.CancelFunc

	wg sync.WaitGroup
}

// New creates a controller. Call Start before use.
func New(cfg Config) *Controller {
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Global
	}

	state := wallet.NewState()
	params := wallet.Params{
		State:  state,
		Store:  cfg.Store,
		Opener: cfg.Opener,
		Logger: cfg.Logger,
	}.WithDefaults()

	return &Controller{
		cfg:     cfg,
		state:   state,
		params:  params,
		log:     params.Logger,
		metrics: cfg.Metrics,
		byType:  make(map[wallet.Type]wallet.Wallet),
	}
}

// Start builds the providers, launches the silent reconnect when
// ShouldReconnect holds and publishes the installed-first wallet list.
// It never blocks on a wallet. Calling Start twice is a no-op.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(ctx)

	built := make([]wallet.Wallet, 0, len(c.cfg.Factories))
	for _, f := range c.cfg.Factories {
		w := &managed{Wallet: f(c.params), c: c}
		if _, dup := c.byType[w.Type()]; dup {
			c.log.Error("duplicate provider %s ignored", w.Type())
			continue
		}
		c.byType[w.Type()] = w
		built = append(built, w)
	}
	c.wallets = SortInstalledFirst(built)
	c.unobserve = c.state.OnChange(c.onChange)
	reconnect := c.cfg.ShouldReconnect != nil && c.cfg.ShouldReconnect()
	bg := c.ctx
	c.mu.Unlock()

	if reconnect {
		c.wg.Go(func() { c.reconnect(bg) })
	}
}

// Close stops the poller and any background reconnect and waits for them.
func (c *Controller) Close() error {
	c.mu.Lock()
	cancel, unobserve := c.cancel, c.unobserve
	c.unobserve = nil
	c.mu.Unlock()

	if unobserve != nil {
		unobserve()
	}
	if cancel != nil {
		cancel()
	}
	c.stopPolling()
	c.wg.Wait()
	return nil
}

// WalletInfo returns the current session snapshot.
func (c *Controller) WalletInfo() wallet.Info {
	return c.state.Info()
}

// Phase returns the current connection phase.
func (c *Controller) Phase() wallet.Phase {
	return c.state.Phase()
}

// AvailableWallets returns the providers, installed ones first.
func (c *Controller) AvailableWallets() []wallet.Wallet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]wallet.Wallet(nil), c.wallets...)
}

// RefreshWallets re-probes installation and republishes the wallet list.
// Useful once a browser relay has attached after Start.
func (c *Controller) RefreshWallets() []wallet.Wallet {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wallets = SortInstalledFirst(c.wallets)
	return append([]wallet.Wallet(nil), c.wallets...)
}

// ConnectingWallet returns the wallet whose connect is in flight, if any.
func (c *Controller) ConnectingWallet() (wallet.Type, bool) {
	return c.state.Connecting()
}

// SetConnectingWallet overrides the in-flight marker; nil clears it.
func (c *Controller) SetConnectingWallet(t *wallet.Type) {
	c.state.SetConnecting(t)
}

// OnChange registers fn for session snapshot changes.
func (c *Controller) OnChange(fn wallet.ChangeFunc) func() {
	return c.state.OnChange(fn)
}

// Wallet returns the provider of type t.
func (c *Controller) Wallet(t wallet.Type) (wallet.Wallet, error) {
	c.mu.RLock()
	w, ok := c.byType[t]
	c.mu.RUnlock()
	if !ok {
		return nil, linkerr.WithDetails(linkerr.ErrUnknownWallet, map[string]string{"wallet": string(t)})
	}
	return w, nil
}

// Connect runs the connect handshake of the provider of type t. Most providers
// report failure only through the session snapshot; inspect WalletInfo after.
func (c *Controller) Connect(ctx context.Context, t wallet.Type) error {
	w, err := c.Wallet(t)
	if err != nil {
		return err
	}

	err = w.Connect(ctx)
	outcome := err
	if info := c.state.Info(); outcome == nil && (!info.IsConnected || info.WalletType != t) {
		outcome = linkerr.ErrNotConnected
	}
	c.metrics.RecordConnect(outcome)
	return err
}

// Disconnect tears down the active wallet. With no active session it falls
// back to the persisted wallet so its key and listeners are cleared.
func (c *Controller) Disconnect(ctx context.Context) error {
	t := c.state.Info().WalletType
	if t == "" {
		persisted, ok, err := c.cfg.Store.Get(wallet.PersistKey)
		if err != nil {
			return err
		}
		if !ok {
			return linkerr.ErrNotConnected
		}
		t = wallet.Type(persisted)
	}

	w, err := c.Wallet(t)
	if err != nil {
		c.params.Forget()
		return err
	}
	c.metrics.RecordDisconnect()
	return w.Disconnect(ctx)
}

// SendBitcoin validates req and routes it to the connected wallet.
func (c *Controller) SendBitcoin(ctx context.Context, req wallet.SendRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	info := c.state.Info()
	if !info.IsConnected {
		return "", linkerr.ErrNotConnected
	}
	w, err := c.Wallet(info.WalletType)
	if err != nil {
		return "", err
	}

	txid, err := w.SendBitcoin(ctx, req)
	c.metrics.RecordSend(err)
	return txid, err
}

// onChange persists the wallet type and drives the balance poller.
func (c *Controller) onChange(old, updated wallet.Info) {
	if updated.WalletType != old.WalletType && updated.WalletType.Persistable() {
		if err := c.cfg.Store.Set(wallet.PersistKey, string(updated.WalletType)); err != nil {
			c.log.Error("persist %s: %v", wallet.PersistKey, err)
		}
	}
	if updated.Address != old.Address {
		c.watchAddress(updated.Address)
	}
}

// managed wraps a provider so Disconnect also zeroes the balance.
type managed struct {
	wallet.Wallet
	c *Controller
}

func (m *managed) Disconnect(ctx context.Context) error {
	err := m.Wallet.Disconnect(ctx)
	m.c.setBalance(0)
	return err
}

// SortInstalledFirst returns ws with installed wallets first, keeping the
// relative order inside each group. IsInstalled is probed once per wallet.
func SortInstalledFirst(ws []wallet.Wallet) []wallet.Wallet {
	installed := make([]wallet.Wallet, 0, len(ws))
	var missing []wallet.Wallet
	for _, w := range ws {
		if w.IsInstalled() {
			installed = append(installed, w)
		} else {
			missing = append(missing, w)
		}
	}
	return append(installed, missing...)
}
