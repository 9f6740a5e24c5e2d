package config

import "time"

// DefaultExplorerURL is the haskoin-store endpoint hosted by blockchain.info.
const DefaultExplorerURL = "https://api.blockchain.info/haskoin-store/btc"

// DefaultLedgerPath is the BIP84 native segwit path used for Ledger connections.
const DefaultLedgerPath = "m/84'/0'/0'/0/0"

// DefaultReconnectRoute is the host route on which the last wallet is silently reconnected.
const DefaultReconnectRoute = "/cross-chain"

// DefaultLogFile is the log file used when none is configured. It follows the
// home directory when btclink runs with a different home.
const DefaultLogFile = "~/.btclink/btclink.log"

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.btclink",
		Bridge: BridgeConfig{
			Addr:        "127.0.0.1:7531",
			WaitTimeout: 2 * time.Minute,
		},
		Explorer: ExplorerConfig{
			URL:           DefaultExplorerURL,
			Timeout:       30 * time.Second,
			RatePerSecond: 2,
			Burst:         4,
		},
		Wallet: WalletConfig{
			PollInterval:   20 * time.Second,
			Reconnect:      true,
			ReconnectRoute: DefaultReconnectRoute,
			Store:          "file",
			LedgerPath:     DefaultLedgerPath,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  DefaultLogFile,
		},
	}
}
