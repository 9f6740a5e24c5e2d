package config

import (
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Environment variable names not covered by struct tags.
const (
	EnvHome    = "BTCLINK_HOME"
	EnvNoColor = "NO_COLOR"
)

// ApplyEnvironment applies BTCLINK_* environment overrides to the configuration.
// Unset variables leave the loaded values untouched.
func ApplyEnvironment(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return err
	}

	cfg.Output.DefaultFormat = strings.ToLower(strings.TrimSpace(cfg.Output.DefaultFormat))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Wallet.Store = strings.ToLower(strings.TrimSpace(cfg.Wallet.Store))

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}

	return nil
}
