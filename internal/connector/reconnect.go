package connector

import (
	"context"

	"github.com/mrz1836/btclink/internal/wallet"
)

// reconnect silently connects the persisted wallet. It never surfaces an
// error: on failure the persisted key and the connecting flag are cleared.
// A wallet that is not installed yet keeps its key so a later Reconnect can
// pick it up once the browser relay attaches.
func (c *Controller) reconnect(ctx context.Context) {
	persisted, ok, err := c.cfg.Store.Get(wallet.PersistKey)
	if err != nil {
		c.log.Error("read %s: %v", wallet.PersistKey, err)
		return
	}
	if !ok || persisted == "" {
		return
	}

	t, err := wallet.ParseType(persisted)
	if err != nil || !t.Persistable() {
		c.log.Debug("reconnect: unusable persisted wallet %q", persisted)
		c.abandonReconnect()
		return
	}
	w, err := c.Wallet(t)
	if err != nil {
		c.abandonReconnect()
		return
	}

	// an absent extension would open its install page; stay silent instead
	if !w.IsInstalled() {
		c.log.Debug("reconnect: %s not installed, keeping %s", t, wallet.PersistKey)
		return
	}

	c.log.Debug("reconnect: %s", t)
	err = w.Connect(ctx)
	info := c.state.Info()
	if err != nil || !info.IsConnected || info.WalletType != t {
		c.log.Debug("reconnect %s failed: %v", t, err)
		c.abandonReconnect()
		return
	}
	c.metrics.RecordConnect(nil)
}

// Reconnect retries the silent reconnect, for example after RefreshWallets
// once a relay attached late. It does nothing while a session is active or
// connecting, or when ShouldReconnect does not hold.
func (c *Controller) Reconnect(ctx context.Context) {
	if c.state.Info().IsConnected {
		return
	}
	if _, busy := c.state.Connecting(); busy {
		return
	}
	if c.cfg.ShouldReconnect == nil || !c.cfg.ShouldReconnect() {
		return
	}
	c.reconnect(ctx)
}

func (c *Controller) abandonReconnect() {
	if err := c.cfg.Store.Remove(wallet.PersistKey); err != nil {
		c.log.Error("remove %s: %v", wallet.PersistKey, err)
	}
	c.state.SetConnecting(nil)
}
