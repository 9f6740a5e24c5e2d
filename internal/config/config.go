// Package config provides configuration management for btclink.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Home     string         `yaml:"home" env:"BTCLINK_HOME"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Explorer ExplorerConfig `yaml:"explorer"`
	Wallet   WalletConfig   `yaml:"wallet"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// BridgeConfig defines the local endpoint the browser relay page connects to.
type BridgeConfig struct {
	Addr        string        `yaml:"addr" env:"BTCLINK_BRIDGE_ADDR" validate:"required,hostname_port"`
	WaitTimeout time.Duration `yaml:"wait_timeout" validate:"gte=1s"`
}

// ExplorerConfig defines the block explorer used for balance queries.
type ExplorerConfig struct {
	URL           string        `yaml:"url" env:"BTCLINK_EXPLORER_URL" validate:"required,url"`
	Timeout       time.Duration `yaml:"timeout" validate:"gte=1s"`
	RatePerSecond float64       `yaml:"rate_per_second" validate:"gt=0"`
	Burst         int           `yaml:"burst" validate:"gte=1"`
}

// WalletConfig defines connection and polling behaviour.
type WalletConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval" env:"BTCLINK_POLL_INTERVAL" validate:"gte=1s"`
	Reconnect      bool          `yaml:"reconnect" env:"BTCLINK_RECONNECT"`
	ReconnectRoute string        `yaml:"reconnect_route"`
	Store          string        `yaml:"store" env:"BTCLINK_STORE" validate:"oneof=file keyring memory"`
	LedgerPath     string        `yaml:"ledger_path" validate:"required,startswith=m/"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" env:"BTCLINK_OUTPUT_FORMAT" validate:"oneof=auto text json"`
	Color         string `yaml:"color" validate:"oneof=auto always never"`
	Verbose       bool   `yaml:"verbose" env:"BTCLINK_VERBOSE"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" env:"BTCLINK_LOG_LEVEL" validate:"oneof=off none error info debug"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file on top of Defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, linkerr.WithCause(linkerr.ErrConfigInvalid, err)
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks field constraints and reports the offending fields.
func Validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return linkerr.WithCause(linkerr.ErrConfigInvalid, err)
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[strings.ToLower(fe.Namespace())] = fe.Tag()
	}
	return linkerr.WithDetails(linkerr.ErrConfigInvalid, details)
}

// Path returns the config file path inside a btclink home directory.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// StatePath returns the file used by the file store for persisted wallet state.
func (c *Config) StatePath() string {
	return filepath.Join(ExpandHome(c.Home), "state.json")
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// DefaultHome returns the default btclink home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".btclink"
	}
	return filepath.Join(home, ".btclink")
}

// ExpandHome expands a leading "~/" to the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
