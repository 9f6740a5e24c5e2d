package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/btclink/internal/explorer"
	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

func explorerServer(t *testing.T, status int, body string) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/address/"+bech32G+"/balance" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("BTCLINK_EXPLORER_URL", srv.URL)
}

func TestBalance_JSON(t *testing.T) {
	explorerServer(t, http.StatusOK,
		`{"address":"`+bech32G+`","confirmed":150000000,"unconfirmed":2500,"utxo":3,"txs":7,"received":200000000}`)

	out, err := execute(t, t.TempDir(), "-o", "json", "balance", bech32G)
	require.NoError(t, err)

	var got balanceResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, balanceResult{
		Address:          bech32G,
		ConfirmedSats:    150000000,
		UnconfirmedSats:  2500,
		Confirmed:        "1.50000000",
		Unconfirmed:      "0.00002500",
		TransactionCount: 7,
	}, got)
}

func TestBalance_Text(t *testing.T) {
	explorerServer(t, http.StatusOK, `{"confirmed":42,"unconfirmed":0,"txs":1}`)

	out, err := execute(t, t.TempDir(), "-o", "text", "balance", bech32G)
	require.NoError(t, err)
	assert.Contains(t, out, "Address:     "+bech32G)
	assert.Contains(t, out, "Confirmed:   0.00000042 BTC")
	assert.Contains(t, out, "Txs:         1")
}

func TestBalance_NotFound(t *testing.T) {
	explorerServer(t, http.StatusOK, `{}`)

	_, err := execute(t, t.TempDir(), "balance", "bc1qunknown")
	require.ErrorIs(t, err, explorer.ErrAPIError)
	assert.NotEqual(t, linkerr.ExitSuccess, ExitCode(err))
}
