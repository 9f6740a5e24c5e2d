package connector

import (
	"context"
	"time"
)

// Balance returns the last confirmed balance in satoshis.
func (c *Controller) Balance() int64 {
	return c.balance.Load()
}

// GetBalance refreshes the balance of the connected address now. Without an
// address it does nothing; on failure the balance is left unchanged.
func (c *Controller) GetBalance(ctx context.Context) error {
	addr := c.state.Info().Address
	if addr == "" || c.cfg.Balance == nil {
		return nil
	}

	sats, err := c.cfg.Balance.ConfirmedBalance(ctx, addr)
	if err != nil {
		c.log.Debug("balance %s: %v", addr, err)
		return err
	}
	if c.state.Info().Address == addr {
		c.setBalance(sats)
	}
	return nil
}

func (c *Controller) setBalance(sats int64) {
	c.balance.Store(sats)
	c.metrics.SetBalance(sats)
}

// watchAddress moves the poller to addr; an empty address stops it.
func (c *Controller) watchAddress(addr string) {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	c.pollAddr = addr

	c.mu.RLock()
	parent := c.ctx
	c.mu.RUnlock()
	if addr == "" || parent == nil || parent.Err() != nil || c.cfg.Balance == nil {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	c.pollCancel = cancel
	c.wg.Go(func() { c.poll(ctx, addr) })
}

func (c *Controller) stopPolling() {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	c.pollAddr = ""
}

// poll fetches immediately, then every PollInterval until ctx ends.
func (c *Controller) poll(ctx context.Context, addr string) {
	c.log.Debug("balance polling %s every %s", addr, c.cfg.PollInterval)
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		c.pollOnce(ctx, addr)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// pollOnce never retries: a failed tick waits for the next one.
func (c *Controller) pollOnce(ctx context.Context, addr string) {
	sats, err := c.cfg.Balance.ConfirmedBalance(ctx, addr)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Debug("balance %s: %v", addr, err)
		}
		return
	}

	// a cancelled poller must not overwrite the balance of a newer session
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	if ctx.Err() == nil && c.pollAddr == addr {
		c.setBalance(sats)
	}
}
