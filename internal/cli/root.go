// Package cli implements the btclink command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mrz1836/btclink/internal/config"
	"github.com/mrz1836/btclink/internal/output"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool
	bridgeAddr   string

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter

	buildInfo BuildInfo
)

// Command groups shown in root help.
const (
	groupWallet = "wallet"
	groupDevice = "device"
	groupConfig = "config"
)

// BuildInfo carries version metadata injected at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "btclink",
	Short: "Connect Bitcoin wallets from the terminal",
	Long: `btclink gives one interface over several Bitcoin wallets: the Xverse, OKX,
Unisat and Bitget browser extensions (reached through a local relay page) and
Ledger hardware wallets over USB.`,
	Example: `  btclink wallets
  btclink connect unisat
  btclink send --wallet okx --to bc1q... --amount 0.0001
  btclink watch --metrics-addr 127.0.0.1:9108`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// SetBuildInfo records version metadata and exposes it through --version.
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
	rootCmd.Version = formatVersion(info)
}

// formatVersion renders build metadata, filling gaps with placeholders.
func formatVersion(info BuildInfo) string {
	version, commit, date := info.Version, info.Commit, info.Date
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		format := output.FormatText
		if formatter != nil {
			format = formatter.Format()
		}
		_ = output.FormatError(os.Stderr, err, format)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return linkerr.ExitCode(err)
}

// initGlobals initializes global configuration, logger, and formatter.
func initGlobals(cmd *cobra.Command) error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	var err error
	cfg, err = config.Load(config.Path(home))
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		cfg = config.Defaults()
		cfg.Home = home
	}

	if err := config.ApplyEnvironment(cfg); err != nil {
		return linkerr.WithCause(linkerr.ErrConfigInvalid, err)
	}

	// Override with command-line flags
	if homeDir != "" {
		cfg.Home = homeDir
	}
	if bridgeAddr != "" {
		cfg.Bridge.Addr = bridgeAddr
	}
	if cfg.Logging.File == config.DefaultLogFile {
		cfg.Logging.File = filepath.Join(cfg.Home, "btclink.log")
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger, err = config.NewLogger(config.ParseLogLevel(cfg.GetLoggingLevel()), cfg.GetLoggingFile())
	if err != nil {
		logger = config.NullLogger()
	}

	formatter = output.NewFormatter(output.ParseFormat(cfg.Output.DefaultFormat), cmd.OutOrStdout())
	if cfg.IsVerbose() {
		logger.Debug("btclink %s home=%s bridge=%s store=%s", cmd.Root().Version, cfg.Home, cfg.Bridge.Addr, cfg.Wallet.Store)
	}
	return nil
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "btclink data directory (default: ~/.btclink)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&bridgeAddr, "bridge", "", "listen address of the browser relay (default from config)")
	rootCmd.Version = formatVersion(buildInfo)

	rootCmd.AddGroup(
		&cobra.Group{ID: groupWallet, Title: "Wallet Operations:"},
		&cobra.Group{ID: groupDevice, Title: "Hardware Wallets:"},
		&cobra.Group{ID: groupConfig, Title: "Configuration:"},
	)
	rootCmd.SetHelpCommandGroupID(groupConfig)

	listSubcommands(rootCmd)
}
