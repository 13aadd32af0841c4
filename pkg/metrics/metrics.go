package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ consume latency (ms).
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"routing_key", "queue"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "table"},
	)

	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Queries slower than the configured threshold",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	// Searches by kind: default (listing) or explicit.
	SearchCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missing_person_search_count",
			Help: "Total number of missing person searches",
		},
		[]string{"kind"},
	)

	SearchStaleDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "missing_person_search_stale_discarded",
			Help: "Search responses discarded because a newer submission was applied",
		},
	)

	NotificationEventCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_notification_event_count",
			Help: "Admin notification change-feed events",
		},
		[]string{"stage"}, // stage: published, delivered, dropped, duplicate
	)

	// Best-effort side effects (telemetry, notify) by name and outcome.
	SideEffectCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "side_effect_count",
			Help: "Best-effort side effects by outcome",
		},
		[]string{"name", "status"}, // status: success, failed, skipped
	)

	FormSubmissionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_submission_count",
			Help: "Form submissions by form and outcome",
		},
		[]string{"form", "status"}, // status: success, invalid, failed
	)
)

func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementSlowQuery() {
	SlowQueryCount.Inc()
}

func IncrementSearch(kind string) {
	SearchCount.WithLabelValues(kind).Inc()
}

func IncrementSearchStale() {
	SearchStaleDiscarded.Inc()
}

func IncrementNotificationEvent(stage string) {
	NotificationEventCount.WithLabelValues(stage).Inc()
}

func IncrementSideEffect(name, status string) {
	SideEffectCount.WithLabelValues(name, status).Inc()
}

func IncrementFormSubmission(form, status string) {
	FormSubmissionCount.WithLabelValues(form, status).Inc()
}
