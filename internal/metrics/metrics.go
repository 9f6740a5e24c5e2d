// Package metrics records wallet session and explorer activity with atomic
// counters and exposes them to Prometheus through a Collector.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	// Wallet session metrics
	connectAttempts atomic.Int64
	connectFailures atomic.Int64
	disconnects     atomic.Int64
	sendsTotal      atomic.Int64
	sendErrors      atomic.Int64

	// Balance polling metrics
	balanceFetches       atomic.Int64
	balanceErrors        atomic.Int64
	balanceLatencyNanos  atomic.Int64
	balanceSats          atomic.Int64
	balanceLastSuccessTS atomic.Int64

	// Browser bridge metrics
	bridgeCalls  atomic.Int64
	bridgeErrors atomic.Int64
}

// Global is the global metrics instance.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordConnect records a connect attempt and whether it failed.
func (m *Metrics) RecordConnect(err error) {
	m.connectAttempts.Add(1)
	if err != nil {
		m.connectFailures.Add(1)
	}
}

// RecordDisconnect records a disconnect.
func (m *Metrics) RecordDisconnect() {
	m.disconnects.Add(1)
}

// RecordSend records a send request.
func (m *Metrics) RecordSend(err error) {
	m.sendsTotal.Add(1)
	if err != nil {
		m.sendErrors.Add(1)
	}
}

// RecordBalanceFetch records one explorer balance lookup.
func (m *Metrics) RecordBalanceFetch(duration time.Duration, err error) {
	m.balanceFetches.Add(1)
	m.balanceLatencyNanos.Add(duration.Nanoseconds())
	if err != nil {
		m.balanceErrors.Add(1)
		return
	}
	m.balanceLastSuccessTS.Store(time.Now().Unix())
}

// SetBalance records the latest known balance in satoshis.
func (m *Metrics) SetBalance(sats int64) {
	m.balanceSats.Store(sats)
}

// RecordBridgeCall records a call relayed to the browser.
func (m *Metrics) RecordBridgeCall(err error) {
	m.bridgeCalls.Add(1)
	if err != nil {
		m.bridgeErrors.Add(1)
	}
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	ConnectAttempts      int64
	ConnectFailures      int64
	Disconnects          int64
	SendsTotal           int64
	SendErrors           int64
	BalanceFetches       int64
	BalanceErrors        int64
	BalanceLatencyNanos  int64
	BalanceSats          int64
	BalanceLastSuccessTS int64
	BridgeCalls          int64
	BridgeErrors         int64
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		ConnectAttempts:      m.connectAttempts.Load(),
		ConnectFailures:      m.connectFailures.Load(),
		Disconnects:          m.disconnects.Load(),
		SendsTotal:           m.sendsTotal.Load(),
		SendErrors:           m.sendErrors.Load(),
		BalanceFetches:       m.balanceFetches.Load(),
		BalanceErrors:        m.balanceErrors.Load(),
		BalanceLatencyNanos:  m.balanceLatencyNanos.Load(),
		BalanceSats:          m.balanceSats.Load(),
		BalanceLastSuccessTS: m.balanceLastSuccessTS.Load(),
		BridgeCalls:          m.bridgeCalls.Load(),
		BridgeErrors:         m.bridgeErrors.Load(),
	}
}

// BalanceLatencyAvgMs returns the average explorer latency in milliseconds.
// Returns 0 if no fetches have been made.
func (m *Metrics) BalanceLatencyAvgMs() float64 {
	fetches := m.balanceFetches.Load()
	if fetches == 0 {
		return 0
	}
	return float64(m.balanceLatencyNanos.Load()) / float64(fetches) / 1e6
}

// Reset resets all metrics to zero.
// Useful for testing.
func (m *Metrics) Reset() {
	m.connectAttempts.Store(0)
	m.connectFailures.Store(0)
	m.disconnects.Store(0)
	m.sendsTotal.Store(0)
	m.sendErrors.Store(0)
	m.balanceFetches.Store(0)
	m.balanceErrors.Store(0)
	m.balanceLatencyNanos.Store(0)
	m.balanceSats.Store(0)
	m.balanceLastSuccessTS.Store(0)
	m.bridgeCalls.Store(0)
	m.bridgeErrors.Store(0)
}
