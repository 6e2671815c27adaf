// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// IngestedTotal tracks records taken off the stream by kind and outcome.
	IngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_records_total",
			Help: "Total records ingested from the stream",
		},
		[]string{"kind", "outcome"},
	)

	// DecodeFailuresTotal tracks payloads that could not be decoded and were dropped.
	DecodeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_decode_failures_total",
			Help: "Total payloads dropped because they could not be decoded",
		},
		[]string{"kind"},
	)

	// DuplicatesDetectedTotal tracks inbound messages whose business key was already stored.
	DuplicatesDetectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_duplicates_detected_total",
			Help: "Total inbound messages detected as duplicates",
		},
	)

	// StatusTransitionsTotal tracks conversation status updates by new status.
	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_status_transitions_total",
			Help: "Total conversation status updates",
		},
		[]string{"status"},
	)

	// ConsumerInFlight tracks stream messages currently being processed.
	ConsumerInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nats_consumer_in_flight",
			Help: "Stream messages currently being processed",
		},
	)

	// StoreOperationDuration tracks database operation duration.
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 5, 30},
		},
		[]string{"operation"},
	)

	// FacetsRefreshedTimestamp is the unix time of the last facet refresh.
	FacetsRefreshedTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "facets_refreshed_timestamp_seconds",
			Help: "Unix time of the last distinct facet refresh",
		},
	)

	// FacetsRefreshDuration tracks how long a facet refresh takes.
	FacetsRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "facets_refresh_duration_seconds",
			Help:    "Distinct facet refresh duration",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 120},
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordIngest records the outcome of processing one stream record.
func RecordIngest(kind, outcome string) {
	IngestedTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordDecodeFailure records a dropped, undecodable payload.
func RecordDecodeFailure(kind string) {
	DecodeFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordDuplicate records a detected duplicate inbound message.
func RecordDuplicate() {
	DuplicatesDetectedTotal.Inc()
}

// RecordStatusTransition records a conversation status update.
func RecordStatusTransition(status string) {
	StatusTransitionsTotal.WithLabelValues(status).Inc()
}

// ObserveStoreOperation records the time elapsed since start. Meant for defer.
func ObserveStoreOperation(operation string, start time.Time) {
	StoreOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordFacetRefresh records a completed facet refresh.
func RecordFacetRefresh(at time.Time, took time.Duration) {
	FacetsRefreshedTimestamp.Set(float64(at.Unix()))
	FacetsRefreshDuration.Observe(took.Seconds())
}

// IncrementInFlight increments the in-flight stream message count.
func IncrementInFlight() {
	ConsumerInFlight.Inc()
}

// DecrementInFlight decrements the in-flight stream message count.
func DecrementInFlight() {
	ConsumerInFlight.Dec()
}
