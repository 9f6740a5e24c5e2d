package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/btclink/internal/explorer"
	"github.com/mrz1836/btclink/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Look up the balance of a Bitcoin address",
	Long: `Query the configured block explorer for an address balance. Rate limits and
transient network errors are retried with backoff.`,
	Example: `  btclink balance bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4
  btclink balance 1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runBalance,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.GroupID = groupWallet
}

// balanceResult is the printed balance.
type balanceResult struct {
	Address          string `json:"address"`
	ConfirmedSats    int64  `json:"confirmed_sats"`
	UnconfirmedSats  int64  `json:"unconfirmed_sats"`
	Confirmed        string `json:"confirmed_btc"`
	Unconfirmed      string `json:"unconfirmed_btc"`
	TransactionCount int64  `json:"tx_count"`
}

func runBalance(cmd *cobra.Command, args []string) error {
	ctx, cancel := contextWithTimeout(cmd, cfg.Explorer.Timeout*time.Duration(explorer.DefaultRetryConfig().MaxAttempts))
	defer cancel()

	client := newExplorer()
	bal, err := explorer.Retry(ctx, func() (*explorer.Balance, error) {
		return client.GetBalance(ctx, args[0])
	})
	if err != nil {
		return err
	}

	result := balanceResult{
		Address:          bal.Address,
		ConfirmedSats:    bal.Confirmed,
		UnconfirmedSats:  bal.Unconfirmed,
		Confirmed:        output.FormatBTC(bal.Confirmed),
		Unconfirmed:      output.FormatBTC(bal.Unconfirmed),
		TransactionCount: bal.Txs,
	}
	return formatter.Render(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Address:     %s\nConfirmed:   %s BTC\nUnconfirmed: %s BTC\nTxs:         %d\n",
			result.Address, result.Confirmed, result.Unconfirmed, result.TransactionCount)
		return err
	})
}
