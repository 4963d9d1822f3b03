package rpc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rpcRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainreplay_rpc_requests_total",
			Help: "Total number of RPC requests by method",
		},
		[]string{"method"},
	)

	rpcErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainreplay_rpc_errors_total",
			Help: "Total number of RPC errors by method and type",
		},
		[]string{"method", "error_type"},
	)

	rpcRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainreplay_rpc_retries_total",
			Help: "Total number of retried RPC operations",
		},
		[]string{"operation"},
	)

	rpcRangeSplits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainreplay_rpc_log_range_splits_total",
			Help: "eth_getLogs ranges split after a too-many-results response",
		},
	)

	rpcDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chainreplay_rpc_request_duration_seconds",
			Help:    "Duration of RPC requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func rpcMethodInc(method string) {
	rpcRequests.WithLabelValues(method).Inc()
}

func rpcMethodDuration(method string, duration time.Duration) {
	rpcDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func rpcMethodError(method, errorType string) {
	rpcErrors.WithLabelValues(method, errorType).Inc()
}

func rpcRetryInc(operation string) {
	rpcRetries.WithLabelValues(operation).Inc()
}
