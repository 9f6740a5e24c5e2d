package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// resetFlags restores every package-level flag to its default between runs.
func resetFlags() {
	homeDir, outputFormat, verbose, bridgeAddr = "", "auto", false, ""
	walletsWait, disconnectWait = 0, 0
	connectBalance = true
	sendWallet, sendTo, sendAmount, sendFeeRate = "", "", "", 0
	watchRoute, watchMetricsAddr, watchConnect = "", "", ""
	ledgerPath, ledgerQR, ledgerQRAmount = "", false, ""
	configForce = false
}

// execute runs the root command with a fresh home directory prepended.
func execute(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--home", home}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestFormatVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		info BuildInfo
		want string
	}{
		{"empty", BuildInfo{}, "dev (commit: unknown, built: unknown)"},
		{"full", BuildInfo{Version: "v1.2.0", Commit: "abc123", Date: "2026-01-02"}, "v1.2.0 (commit: abc123, built: 2026-01-02)"},
		{"version only", BuildInfo{Version: "v0.1.0"}, "v0.1.0 (commit: unknown, built: unknown)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, formatVersion(tt.info))
		})
	}
}

func TestRootGroups(t *testing.T) {
	usage := rootCmd.UsageString()
	assert.Contains(t, usage, "Wallet Operations:")
	assert.Contains(t, usage, "Hardware Wallets:")
	assert.Contains(t, usage, "Configuration:")
}

func TestInitGlobals_InvalidConfig(t *testing.T) {
	t.Setenv("BTCLINK_STORE", "floppy")

	_, err := execute(t, t.TempDir(), "config", "path")
	require.Error(t, err)
	require.ErrorIs(t, err, linkerr.ErrConfigInvalid)
	assert.Equal(t, linkerr.ExitInput, ExitCode(err))
}

func TestInitGlobals_ExplicitFormat(t *testing.T) {
	out, err := execute(t, t.TempDir(), "-o", "text", "ledger", "format", "m/84'/0'/0'/0/0")
	require.NoError(t, err)
	assert.Equal(t, "bech32\n", out)
	require.NotNil(t, formatter)
	assert.False(t, formatter.IsJSON())
}
