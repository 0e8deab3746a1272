// Package metrics exposes the promauto-registered counters/gauges served
// over /metrics, generalized from kstaniek-go-ampio-server's package-level Prometheus
// vars and StartHTTP helper onto this simulation's own series.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ServerClientsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wyrm_server_clients_active",
		Help: "Current number of joined, non-timed-out clients.",
	})
	ServerMessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wyrm_server_messages_sent_total",
		Help: "Total protocol messages sent by the server.",
	})
	ServerMessagesRecv = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wyrm_server_messages_recv_total",
		Help: "Total protocol messages received by the server.",
	})
	ServerBytesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wyrm_server_bytes_sent_total",
		Help: "Total datagram bytes sent by the server.",
	})
	ServerBytesRecv = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wyrm_server_bytes_recv_total",
		Help: "Total datagram bytes received by the server.",
	})
	ServerMalicious = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wyrm_server_malicious_total",
		Help: "Total datagrams rejected and attributed to the malicious-peer table.",
	})
	ServerTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wyrm_server_timeouts_total",
		Help: "Total clients dropped for exceeding the net-tick timeout.",
	})
	ServerCBFDiff = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wyrm_server_cbf_diff",
		Help:    "Distribution of FEEDBACK frame-adjustment diffs emitted by the CBF control loop.",
		Buckets: prometheus.LinearBuckets(-10, 2, 11),
	})
	ServerTickLagTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wyrm_server_tick_lag_total",
		Help: "Total tick-driver lag periods reported by the simulation loop.",
	})

	ClientRTTMs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wyrm_client_rtt_ms",
		Help: "Most recently measured round-trip time to the server, in milliseconds.",
	})
	ClientReconciliations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wyrm_client_reconciliations_total",
		Help: "Total server head updates that matched the local prediction and were accepted without rollback.",
	})
	ClientMispredicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wyrm_client_mispredicts_total",
		Help: "Total server head updates that diverged from the local prediction and triggered rollback-and-replay.",
	})
	ClientBytesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wyrm_client_bytes_sent_total",
		Help: "Total datagram bytes sent by the client.",
	})
)

// StartHTTP serves Prometheus metrics at /metrics on addr and returns the
// *http.Server so the caller can Shutdown it. A nil return means metrics
// are disabled (addr is empty).
func StartHTTP(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}

// Shutdown gracefully stops srv if non-nil, used symmetrically with
// StartHTTP at binary teardown.
func Shutdown(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
