package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestCounter counts HTTP requests by status code, method, and route pattern
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracket_engine_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"status", "method", "path"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bracket_engine_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status", "method", "path"},
	)

	RequestInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bracket_engine_http_requests_in_progress",
			Help: "Number of HTTP requests currently being processed",
		},
		[]string{"method"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bracket_engine_db_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	// BracketsBuilt counts persisted category brackets
	BracketsBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bracket_engine_brackets_built_total",
			Help: "Total number of category brackets built",
		},
	)

	BracketBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bracket_engine_bracket_build_duration_seconds",
			Help:    "Duration of building all brackets of an event",
			Buckets: prometheus.DefBuckets,
		},
	)

	// MatchTransitions counts state machine transitions: start, score, end
	MatchTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracket_engine_match_transitions_total",
			Help: "Total number of match state transitions",
		},
		[]string{"transition"},
	)

	// PlacementsComputed counts resolved brackets by trigger: manual or sweeper
	PlacementsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracket_engine_placements_computed_total",
			Help: "Total number of brackets whose placements were computed",
		},
		[]string{"trigger"},
	)

	BroadcastsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracket_engine_broadcasts_published_total",
			Help: "Total number of live messages published",
		},
		[]string{"type"},
	)

	// BroadcastsDropped counts per-subscriber deliveries that were skipped
	BroadcastsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracket_engine_broadcasts_dropped_total",
			Help: "Total number of live messages dropped",
		},
		[]string{"reason"},
	)

	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bracket_engine_websocket_clients",
			Help: "Number of connected websocket subscribers",
		},
	)

	ArchiveUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracket_engine_archive_uploads_total",
			Help: "Results archive uploads by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordDBOperation records the duration of a database operation
func RecordDBOperation(operation string, table string, startTime time.Time) {
	duration := time.Since(startTime).Seconds()
	DatabaseOperationDuration.WithLabelValues(operation, table).Observe(duration)
}
