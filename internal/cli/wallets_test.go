package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/btclink/internal/wallet"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

func TestWallets_ListsEverySupportedWallet(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "state.json"), []byte(`{"bitcoinWallet":"okx"}`), 0o600))

	out, err := execute(t, home, "-o", "json", "--bridge", "127.0.0.1:0", "wallets")
	require.NoError(t, err)

	var rows []walletRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, len(wallet.AllTypes()))

	for i, typ := range wallet.AllTypes() {
		assert.Equal(t, typ, rows[i].Type)
		assert.False(t, rows[i].Installed, "%s has no relay page attached", typ)
		assert.Equal(t, typ == wallet.OKX, rows[i].Last)
	}
	assert.Equal(t, "Ledger", rows[4].Name)
}

func TestWallets_Text(t *testing.T) {
	out, err := execute(t, t.TempDir(), "-o", "text", "--bridge", "127.0.0.1:0", "wallets")
	require.NoError(t, err)
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, "unisat")
	assert.Contains(t, out, "bitget")
}

func TestDisconnect_NothingRemembered(t *testing.T) {
	_, err := execute(t, t.TempDir(), "disconnect")
	require.ErrorIs(t, err, linkerr.ErrNotConnected)
}

func TestDisconnect_ForgetsPersistedWallet(t *testing.T) {
	home := t.TempDir()
	state := filepath.Join(home, "state.json")
	require.NoError(t, os.WriteFile(state, []byte(`{"bitcoinWallet":"unisat"}`), 0o600))

	_, err := execute(t, home, "-o", "json", "disconnect")
	require.NoError(t, err)

	data, err := os.ReadFile(state)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "unisat")
}

func TestSend_RequiresWallet(t *testing.T) {
	_, err := execute(t, t.TempDir(), "send", "--to", bech32G, "--amount", "0.1")
	require.ErrorIs(t, err, linkerr.ErrNotConnected)
}

func TestSend_RejectsBadAmount(t *testing.T) {
	for _, amount := range []string{"0", "-1", "0.000000001", "abc"} {
		t.Run(amount, func(t *testing.T) {
			_, err := execute(t, t.TempDir(), "send", "--wallet", "okx", "--to", bech32G, "--amount="+amount)
			require.ErrorIs(t, err, linkerr.ErrInvalidAmount)
		})
	}
}

func TestConnect_UnknownWallet(t *testing.T) {
	_, err := execute(t, t.TempDir(), "connect", "unisatt")
	require.ErrorIs(t, err, linkerr.ErrUnknownWallet)
}

func TestWallets_WaitTimesOutWithoutRelay(t *testing.T) {
	out, err := execute(t, t.TempDir(), "-o", "json", "--bridge", "127.0.0.1:0", "wallets", "--wait", "50ms")
	require.NoError(t, err)

	var rows []walletRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, len(wallet.AllTypes()))
}
