package explorer

import (
	"context"
	"strings"
	"time"

	"github.com/mrz1836/btclink/internal/metrics"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// Balance is the haskoin-store address balance record. Amounts are satoshis.
type Balance struct {
	Address     string `json:"address"`
	Confirmed   int64  `json:"confirmed"`
	Unconfirmed int64  `json:"unconfirmed"`
	UTXO        int64  `json:"utxo"`
	Txs         int64  `json:"txs"`
	Received    int64  `json:"received"`
}

// GetBalance retrieves the balance record for address.
func (c *Client) GetBalance(ctx context.Context, address string) (*Balance, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, linkerr.ErrInvalidAddress
	}

	start := time.Now()
	var bal Balance
	err := c.get(ctx, addressPath(address), &bal)
	metrics.Global.RecordBalanceFetch(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if bal.Address == "" {
		bal.Address = address
	}
	return &bal, nil
}

// ConfirmedBalance returns the confirmed balance of address in satoshis.
func (c *Client) ConfirmedBalance(ctx context.Context, address string) (int64, error) {
	bal, err := c.GetBalance(ctx, address)
	if err != nil {
		return 0, err
	}
	return bal.Confirmed, nil
}

// ConfirmedBalanceWithRetry is ConfirmedBalance retried on rate limits and
// transient network failures.
func (c *Client) ConfirmedBalanceWithRetry(ctx context.Context, address string, cfg RetryConfig) (int64, error) {
	return RetryWithConfig(ctx, cfg, func() (int64, error) {
		return c.ConfirmedBalance(ctx, address)
	})
}
