package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPRequestsTotal counts HTTP requests by route, method and status
var HTTPRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cryptoapi_http_requests_total",
		Help: "Total number of HTTP requests handled",
	},
	[]string{"path", "method", "status"},
)

// HTTPRequestDuration records request latency by route and method
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "cryptoapi_http_request_duration_seconds",
		Help:    "Latency in seconds of HTTP requests",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"path", "method"},
)

// Store metrics
var (
	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cryptoapi_store_operation_duration_seconds",
			Help:    "Latency in seconds of store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreOperationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoapi_store_operation_errors_total",
			Help: "Number of failed store operations",
		},
		[]string{"backend", "operation"},
	)

	DBOpenConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cryptoapi_db_open_connections",
			Help: "Number of open connections in the SQL pool",
		},
		[]string{"db"},
	)
)

// Domain metrics
var (
	RecordMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoapi_record_mutations_total",
			Help: "Number of record mutations by kind",
		},
		[]string{"kind"},
	)

	EventPublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptoapi_event_publish_failures_total",
			Help: "Number of change events that could not be published",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal, HTTPRequestDuration)
	prometheus.MustRegister(StoreOperationDuration, StoreOperationErrors, DBOpenConns)
	prometheus.MustRegister(RecordMutations, EventPublishFailures)
}
