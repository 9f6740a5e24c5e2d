package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/btclink/internal/output"
	"github.com/mrz1836/btclink/internal/wallet"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var connectCmd = &cobra.Command{
	Use:   "connect <wallet>",
	Short: "Connect a wallet and print its payment address",
	Long: `Connect one of xverse, okx, unisat, bitget or ledger.

Browser wallets are reached through the relay page; btclink prints its URL and
waits for it. Ledger is opened over USB with the Bitcoin app running. The last
connected browser wallet is remembered for silent reconnects by 'btclink watch'.`,
	Example: `  btclink connect unisat
  btclink connect ledger -o json`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: walletCompletions(),
	RunE:      runConnect,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var connectBalance bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(connectCmd)
	connectCmd.GroupID = groupWallet
	connectCmd.Flags().BoolVar(&connectBalance, "balance", true, "fetch the confirmed balance after connecting")
}

// connectResult is printed after a successful connect.
type connectResult struct {
	wallet.Info

	BalanceSats int64  `json:"balance_sats"`
	BalanceBTC  string `json:"balance_btc"`
}

func runConnect(cmd *cobra.Command, args []string) error {
	t, err := parseWallet(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	opts := sessionOptions{relay: t != wallet.Ledger}
	if connectBalance {
		opts.balance = newExplorer()
	}
	s, err := startSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := connectWallet(cmd, s, t)
	if err != nil {
		return err
	}

	result := connectResult{Info: info}
	if connectBalance {
		if err := s.ctrl.GetBalance(ctx); err != nil {
			output.Warnf("balance unavailable: %v", err)
		}
		result.BalanceSats = s.ctrl.Balance()
		result.BalanceBTC = output.FormatBTC(result.BalanceSats)
	}

	return formatter.Render(result, func(out io.Writer) error {
		_, err := fmt.Fprintf(out, "Wallet:     %s\nAddress:    %s\nPublic key: %s\n",
			result.WalletType, result.Address, result.PublicKey)
		if err == nil && connectBalance {
			_, err = fmt.Fprintf(out, "Balance:    %s BTC\n", result.BalanceBTC)
		}
		return err
	})
}

// connectWallet starts the controller and connects t, waiting for the relay
// first when t is a browser wallet.
func connectWallet(cmd *cobra.Command, s *session, t wallet.Type) (wallet.Info, error) {
	ctx := cmd.Context()

	if t != wallet.Ledger {
		if err := s.waitRelay(ctx, cfg.Bridge.WaitTimeout); err != nil {
			return wallet.Info{}, err
		}
	}
	s.ctrl.Start(ctx)

	w, err := s.ctrl.Wallet(t)
	if err != nil {
		return wallet.Info{}, err
	}

	if t != wallet.Ledger && !w.IsInstalled() {
		// the provider opens the install page in the relay browser
		_ = s.ctrl.Connect(ctx, t)
		return wallet.Info{}, linkerr.WithSuggestion(
			linkerr.WithDetails(linkerr.ErrWalletNotInstalled, map[string]string{"wallet": w.Name()}),
			"install "+w.Name()+", then reload the relay page",
		)
	}

	if err := s.ctrl.Connect(ctx, t); err != nil {
		return wallet.Info{}, err
	}

	info := s.ctrl.WalletInfo()
	if !info.IsConnected || info.WalletType != t {
		return wallet.Info{}, linkerr.WithSuggestion(
			linkerr.WithDetails(linkerr.ErrNotConnected, map[string]string{"wallet": w.Name()}),
			"approve the request in the wallet; rerun with -v and check the log for details",
		)
	}
	output.Successf("connected %s", w.Name())
	return info, nil
}
