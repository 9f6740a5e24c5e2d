package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/btclink/internal/output"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the last connected wallet",
	Long: `Disconnect the remembered wallet so it is no longer reconnected silently.

With --wait, btclink waits for the relay page so wallets that support it
(Xverse) also revoke the site permission.`,
	Example: `  btclink disconnect
  btclink disconnect --wait 30s`,
	Args: cobra.NoArgs,
	RunE: runDisconnect,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var disconnectWait time.Duration

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(disconnectCmd)
	disconnectCmd.GroupID = groupWallet
	disconnectCmd.Flags().DurationVar(&disconnectWait, "wait", 0, "how long to wait for the relay page")
}

func runDisconnect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	s, err := startSession(sessionOptions{relay: disconnectWait > 0})
	if err != nil {
		return err
	}
	defer s.Close()

	if disconnectWait > 0 {
		if err := s.waitRelay(ctx, disconnectWait); err != nil {
			output.Warnf("no relay page attached; forgetting the wallet locally")
		}
	}
	s.ctrl.Start(ctx)

	if err := s.ctrl.Disconnect(ctx); err != nil {
		if linkerr.Is(err, linkerr.ErrNotConnected) {
			return linkerr.WithSuggestion(err, "no wallet is remembered; nothing to disconnect")
		}
		return err
	}
	return output.FormatSuccess(formatter.Writer(), "wallet disconnected", formatter.Format())
}
