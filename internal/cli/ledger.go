package cli

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/btclink/internal/output"
	"github.com/mrz1836/btclink/internal/wallet/ledger"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Ledger hardware wallet tools",
	Long:  `Inspect derivation paths and read addresses from a Ledger running the Bitcoin app.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var ledgerFormatCmd = &cobra.Command{
	Use:   "format <path>",
	Short: "Show the address format used for a derivation path",
	Long: `Print the address format the Bitcoin app is asked for when deriving path.
m/84' and m/86' use bech32, m/49' uses p2sh and anything else is legacy.`,
	Example: `  btclink ledger format "m/49'/0'/0'/0/0"`,
	Args:    cobra.ExactArgs(1),
	RunE:    runLedgerFormat,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var ledgerAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Read and verify an address from the device",
	Long: `Open the Ledger, check that the Bitcoin app is running and derive the
address at --path (default wallet.ledger_path). The address is verified
against the returned public key before it is printed.`,
	Example: `  btclink ledger address
  btclink ledger address --path "m/44'/0'/0'/0/0" --qr`,
	Args: cobra.NoArgs,
	RunE: runLedgerAddress,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	ledgerPath      string
	ledgerQR        bool
	ledgerQRAmount  string
	ledgerDevOpener ledger.DeviceOpener = ledger.HIDOpener{}
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.GroupID = groupDevice
	ledgerCmd.AddCommand(ledgerFormatCmd, ledgerAddressCmd)

	ledgerAddressCmd.Flags().StringVar(&ledgerPath, "path", "", "derivation path (default from config)")
	ledgerAddressCmd.Flags().BoolVar(&ledgerQR, "qr", false, "show a payment QR code when writing to a terminal")
	ledgerAddressCmd.Flags().StringVar(&ledgerQRAmount, "amount", "", "amount in BTC to include in the QR code")
}

// ledgerFormatResult describes a derivation path.
type ledgerFormatResult struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}

// ledgerAddressResult is a device-derived address.
type ledgerAddressResult struct {
	App       string `json:"app"`
	Version   string `json:"version"`
	Path      string `json:"path"`
	Format    string `json:"format"`
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
}

func runLedgerFormat(_ *cobra.Command, args []string) error {
	path := args[0]
	if _, err := ledger.ParsePath(path); err != nil {
		return err
	}

	result := ledgerFormatResult{Path: path, Format: ledger.AddressFormat(path).String()}
	return formatter.Render(result, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, result.Format)
		return err
	})
}

func runLedgerAddress(cmd *cobra.Command, _ []string) error {
	path := ledgerPath
	if path == "" {
		path = cfg.Wallet.LedgerPath
	}
	if _, err := ledger.ParsePath(path); err != nil {
		return err
	}

	var sats int64
	if ledgerQRAmount != "" {
		var err error
		if sats, err = output.ParseBTC(ledgerQRAmount); err != nil {
			return err
		}
	}

	ctx, cancel := contextWithTimeout(cmd, 0)
	defer cancel()

	raw, err := ledgerDevOpener.Open(ctx)
	if err != nil {
		return err
	}
	dev := ledger.WithTimeout(raw, ledger.ExchangeTimeout)
	defer func() { _ = dev.Close() }()

	app, err := ledger.ReadAppInfo(ctx, dev)
	if err != nil {
		return err
	}
	account, err := ledger.DeriveAccount(ctx, dev, path)
	if err != nil {
		return err
	}

	result := ledgerAddressResult{
		App:       app.Name,
		Version:   app.Version,
		Path:      path,
		Format:    account.Format.String(),
		Address:   account.Address,
		PublicKey: hex.EncodeToString(account.PublicKey),
	}
	return formatter.Render(result, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "App:        %s %s\nPath:       %s (%s)\nAddress:    %s\nPublic key: %s\n",
			result.App, result.Version, result.Path, result.Format, result.Address, result.PublicKey); err != nil {
			return err
		}
		if !ledgerQR {
			return nil
		}
		return output.RenderQR(w, output.BitcoinURI(result.Address, sats), output.DefaultQRConfig())
	})
}
