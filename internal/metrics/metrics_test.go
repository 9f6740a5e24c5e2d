package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

func TestMetrics_RecordConnect(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordConnect(nil)
	m.RecordConnect(linkerr.ErrUserRejected)
	m.RecordDisconnect()

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.ConnectAttempts)
	assert.Equal(t, int64(1), snap.ConnectFailures)
	assert.Equal(t, int64(1), snap.Disconnects)
}

func TestMetrics_RecordSend(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordSend(nil)
	m.RecordSend(linkerr.ErrProviderError)
	m.RecordSend(nil)

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.SendsTotal)
	assert.Equal(t, int64(1), snap.SendErrors)
}

func TestMetrics_BalanceLatencyAvg(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	assert.InDelta(t, 0.0, m.BalanceLatencyAvgMs(), 0.001)

	m.RecordBalanceFetch(100*time.Millisecond, nil)
	m.RecordBalanceFetch(200*time.Millisecond, linkerr.ErrNetworkError)

	assert.InDelta(t, 150.0, m.BalanceLatencyAvgMs(), 0.001)
	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.BalanceFetches)
	assert.Equal(t, int64(1), snap.BalanceErrors)
	assert.Positive(t, snap.BalanceLastSuccessTS)
}

func TestMetrics_Reset(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordConnect(nil)
	m.RecordBridgeCall(linkerr.ErrGeneral)
	m.SetBalance(1234)
	m.Reset()

	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestCollector_Registers(t *testing.T) {
	t.Parallel()
	m := &Metrics{}
	m.RecordConnect(nil)
	m.RecordConnect(linkerr.ErrGeneral)
	m.SetBalance(5000)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(m)))

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := make(map[string]int)
	for _, f := range families {
		byName[f.GetName()] = len(f.GetMetric())
	}
	assert.Equal(t, 2, byName["btclink_wallet_connects_total"])
	assert.Equal(t, 1, byName["btclink_balance_sats"])
	assert.Equal(t, 2, byName["btclink_bridge_calls_total"])
}

func TestHandler_ServesText(t *testing.T) {
	t.Parallel()
	m := &Metrics{}
	m.SetBalance(42)

	srv := httptest.NewServer(Handler(m))
	defer srv.Close()

	resp, err := http.Get(srv.URL) //nolint:noctx // test server
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "btclink_balance_sats 42")
	assert.Contains(t, string(body), `btclink_wallet_connects_total{result="ok"} 0`)
}
