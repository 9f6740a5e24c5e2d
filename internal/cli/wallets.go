package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/btclink/internal/output"
	"github.com/mrz1836/btclink/internal/wallet"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletsCmd = &cobra.Command{
	Use:   "wallets",
	Short: "List supported wallets, installed first",
	Long: `List the supported wallets. Browser wallets are probed through the relay
page; wait for it with --wait. Ledger is never reported as installed because
the device cannot be probed without opening it.`,
	Example: `  btclink wallets
  btclink wallets --wait 30s -o json`,
	Args: cobra.NoArgs,
	RunE: runWallets,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var walletsWait time.Duration

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(walletsCmd)
	walletsCmd.GroupID = groupWallet
	walletsCmd.Flags().DurationVar(&walletsWait, "wait", 0, "how long to wait for the relay page before probing")
}

// walletRow is one listed wallet.
type walletRow struct {
	Type      wallet.Type `json:"type"`
	Name      string      `json:"name"`
	Installed bool        `json:"installed"`
	Last      bool        `json:"last_connected"`
}

func runWallets(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	s, err := startSession(sessionOptions{relay: true})
	if err != nil {
		return err
	}
	defer s.Close()

	if walletsWait > 0 {
		if err := s.waitRelay(ctx, walletsWait); err != nil {
			output.Warnf("no relay page attached; browser wallets are listed as not installed")
		}
	}

	s.ctrl.Start(ctx)
	last, _, err := s.store.Get(wallet.PersistKey)
	if err != nil {
		logger.Error("read %s: %v", wallet.PersistKey, err)
	}

	ws := s.ctrl.AvailableWallets()
	rows := make([]walletRow, 0, len(ws))
	for _, w := range ws {
		rows = append(rows, walletRow{
			Type:      w.Type(),
			Name:      w.Name(),
			Installed: w.IsInstalled(),
			Last:      string(w.Type()) == last,
		})
	}

	return formatter.Render(rows, func(out io.Writer) error {
		table := output.NewTable("TYPE", "NAME", "INSTALLED", "LAST")
		for _, r := range rows {
			table.AddRow(string(r.Type), r.Name, yesNo(r.Installed), mark(r.Last))
		}
		return table.Render(out)
	})
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func mark(b bool) string {
	if b {
		return "*"
	}
	return ""
}
