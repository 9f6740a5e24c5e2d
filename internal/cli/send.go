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
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send bitcoin from a connected wallet",
	Long: `Connect a wallet and ask it to send an amount to a recipient. The wallet
shows its own confirmation; btclink never sees private keys.

--amount is in BTC with up to 8 decimal places. --wallet defaults to the last
connected wallet.`,
	Example: `  btclink send --wallet unisat --to bc1q... --amount 0.0001
  btclink send --to bc1q... --amount 0.5 --fee-rate 12`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	sendWallet  string
	sendTo      string
	sendAmount  string
	sendFeeRate int64
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.GroupID = groupWallet
	sendCmd.Flags().StringVar(&sendWallet, "wallet", "", "wallet to send from (default: last connected)")
	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient address")
	sendCmd.Flags().StringVar(&sendAmount, "amount", "", "amount in BTC")
	sendCmd.Flags().Int64Var(&sendFeeRate, "fee-rate", 0, "fee rate in sat/vB (0 lets the wallet choose)")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("amount")
	_ = sendCmd.RegisterFlagCompletionFunc("wallet", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return walletCompletions(), cobra.ShellCompDirectiveNoFileComp
	})
}

// sendResult is printed after the wallet accepts a transfer.
type sendResult struct {
	TxID      string      `json:"txid"`
	Wallet    wallet.Type `json:"wallet"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	AmountSat int64       `json:"amount_sats"`
	AmountBTC string      `json:"amount_btc"`
}

func runSend(cmd *cobra.Command, _ []string) error {
	sats, err := output.ParseBTC(sendAmount)
	if err != nil {
		return err
	}
	req := wallet.SendRequest{Recipient: sendTo, Amount: sats}
	if sendFeeRate != 0 {
		req.Options = &wallet.SendOptions{FeeRate: sendFeeRate}
	}
	if err := req.Validate(); err != nil {
		return err
	}

	name := sendWallet
	if name == "" {
		name, err = lastWallet()
		if err != nil {
			return err
		}
	}
	t, err := parseWallet(name)
	if err != nil {
		return err
	}

	s, err := startSession(sessionOptions{relay: t != wallet.Ledger})
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := connectWallet(cmd, s, t)
	if err != nil {
		return err
	}

	txid, err := s.ctrl.SendBitcoin(cmd.Context(), req)
	if err != nil {
		return err
	}

	result := sendResult{
		TxID:      txid,
		Wallet:    t,
		From:      info.Address,
		To:        sendTo,
		AmountSat: sats,
		AmountBTC: output.FormatBTC(sats),
	}
	return formatter.Render(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Sent %s BTC to %s\nTransaction: %s\n", result.AmountBTC, result.To, result.TxID)
		return err
	})
}

// lastWallet returns the persisted wallet type.
func lastWallet() (string, error) {
	st, err := openStore()
	if err != nil {
		return "", err
	}
	name, ok, err := st.Get(wallet.PersistKey)
	if err != nil {
		return "", err
	}
	if !ok || name == "" {
		return "", linkerr.WithSuggestion(linkerr.ErrNotConnected, "pass --wallet or run 'btclink connect <wallet>' first")
	}
	return name, nil
}
