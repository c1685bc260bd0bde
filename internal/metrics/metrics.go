// Package metrics exposes Prometheus collectors for the GraphQL client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransportRequests tracks requests sent by the transport per operation and outcome
	TransportRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gqlclient_transport_requests_total",
			Help: "Total number of GraphQL requests sent by the transport",
		},
		[]string{"operation", "outcome"},
	)

	// TransportLatency tracks round-trip latency of transport requests
	TransportLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gqlclient_transport_latency_seconds",
			Help:    "GraphQL transport round-trip latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// RetriesTotal tracks retries scheduled by the retry scheduler
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gqlclient_retries_total",
			Help: "Total number of retries scheduled after a transient failure",
		},
		[]string{"operation", "kind"},
	)

	// RequestsTotal tracks caller-facing requests by terminal outcome
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gqlclient_requests_total",
			Help: "Total number of caller requests by outcome kind",
		},
		[]string{"operation", "type", "outcome"},
	)

	// RequestLatency tracks caller-facing latency including retries
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gqlclient_request_latency_seconds",
			Help:    "Caller-facing request latency in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "type"},
	)

	// ProbeUp reports whether the last probe succeeded (1) or not (0)
	ProbeUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gqlclient_probe_up",
			Help: "Whether the last probe query succeeded",
		},
	)
)

// OperationLabel returns a bounded label value for an operation name.
func OperationLabel(name string) string {
	if name == "" {
		return "anonymous"
	}
	return name
}
