package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "btclink"

// Collector exposes a Metrics snapshot as Prometheus metrics.
type Collector struct {
	m *Metrics

	connects       *prometheus.Desc
	disconnects    *prometheus.Desc
	sends          *prometheus.Desc
	balanceFetches *prometheus.Desc
	balanceLatency *prometheus.Desc
	balanceSats    *prometheus.Desc
	lastSuccess    *prometheus.Desc
	bridgeCalls    *prometheus.Desc
}

// NewCollector builds a collector reading from m.
func NewCollector(m *Metrics) *Collector {
	return &Collector{
		m: m,
		connects: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wallet", "connects_total"),
			"Wallet connect attempts by result", []string{"result"}, nil),
		disconnects: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wallet", "disconnects_total"),
			"Wallet disconnects", nil, nil),
		sends: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wallet", "sends_total"),
			"Send requests by result", []string{"result"}, nil),
		balanceFetches: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "balance", "fetches_total"),
			"Explorer balance lookups by result", []string{"result"}, nil),
		balanceLatency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "balance", "latency_avg_seconds"),
			"Average explorer balance lookup latency", nil, nil),
		balanceSats: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "balance", "sats"),
			"Last known balance of the connected address in satoshis", nil, nil),
		lastSuccess: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "balance", "last_success_timestamp_seconds"),
			"Unix time of the last successful balance lookup", nil, nil),
		bridgeCalls: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bridge", "calls_total"),
			"Calls relayed to the browser by result", []string{"result"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connects
	ch <- c.disconnects
	ch <- c.sends
	ch <- c.balanceFetches
	ch <- c.balanceLatency
	ch <- c.balanceSats
	ch <- c.lastSuccess
	ch <- c.bridgeCalls
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.m.Snapshot()

	counterPair(ch, c.connects, s.ConnectAttempts, s.ConnectFailures)
	ch <- prometheus.MustNewConstMetric(c.disconnects, prometheus.CounterValue, float64(s.Disconnects))
	counterPair(ch, c.sends, s.SendsTotal, s.SendErrors)
	counterPair(ch, c.balanceFetches, s.BalanceFetches, s.BalanceErrors)
	ch <- prometheus.MustNewConstMetric(c.balanceLatency, prometheus.GaugeValue, c.m.BalanceLatencyAvgMs()/1e3)
	ch <- prometheus.MustNewConstMetric(c.balanceSats, prometheus.GaugeValue, float64(s.BalanceSats))
	ch <- prometheus.MustNewConstMetric(c.lastSuccess, prometheus.GaugeValue, float64(s.BalanceLastSuccessTS))
	counterPair(ch, c.bridgeCalls, s.BridgeCalls, s.BridgeErrors)
}

// counterPair splits a total/error pair into ok and error series.
func counterPair(ch chan<- prometheus.Metric, desc *prometheus.Desc, total, errs int64) {
	ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(total-errs), "ok")
	ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(errs), "error")
}

// Handler returns a /metrics handler serving m from a private registry.
func Handler(m *Metrics) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(m))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
