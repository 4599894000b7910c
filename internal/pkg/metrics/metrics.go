package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every drivertrack collector. It is served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// PingsIngested counts ingestion outcomes.
	// result: accepted / invalid / failed
	PingsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivertrack_pings_ingested_total",
			Help: "Total number of ping ingestion attempts by result.",
		},
		[]string{"source", "result"},
	)

	// IngestLatency records the time spent in the write path.
	IngestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drivertrack_ping_ingest_duration_seconds",
			Help:    "Latency of ping ingestion, validation through insert.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// StoreConnectionState is 1 for the current state of the store connection
	// and 0 for the others.
	StoreConnectionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drivertrack_store_connection_state",
			Help: "Current store connection state (1 for the active state).",
		},
		[]string{"state"},
	)

	// StoreConnectAttempts counts physical connection attempts.
	StoreConnectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivertrack_store_connect_attempts_total",
			Help: "Total number of physical store connection attempts by result.",
		},
		[]string{"result"},
	)

	// HTTPRequests counts served HTTP requests.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivertrack_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status code.",
		},
		[]string{"route", "method", "code"},
	)

	// HTTPLatency records HTTP handler latency.
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drivertrack_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		PingsIngested,
		IngestLatency,
		StoreConnectionState,
		StoreConnectAttempts,
		HTTPRequests,
		HTTPLatency,
	)
}

// SetStoreState marks state as the active connection state.
func SetStoreState(state string, all ...string) {
	for _, s := range all {
		StoreConnectionState.WithLabelValues(s).Set(0)
	}
	StoreConnectionState.WithLabelValues(state).Set(1)
}
