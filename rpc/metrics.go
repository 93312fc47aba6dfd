package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reflect",
		Subsystem: "rpc",
		Name:      "requests_total",
		Help:      "JSON-RPC requests processed, labelled by method and outcome.",
	}, []string{"method", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reflect",
		Subsystem: "rpc",
		Name:      "request_duration_seconds",
		Help:      "JSON-RPC request handling latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

func observeRequest(method string, ok bool, seconds float64) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	requestsTotal.WithLabelValues(method, outcome).Inc()
	requestDuration.WithLabelValues(method).Observe(seconds)
}
