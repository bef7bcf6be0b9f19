package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestPayloadsTotal counts decoded upstream SSE payloads by object
	// type and outcome.
	IngestPayloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafikinfo_ingest_payloads_total",
			Help: "Total number of upstream payloads processed",
		},
		[]string{"object_type", "status"}, // status: ok, malformed
	)

	// IngestLagSeconds measures the delay between an entity's upstream
	// timestamp and when it was written to the eventstore.
	IngestLagSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trafikinfo_ingest_lag_seconds",
			Help:    "Delay between upstream timestamp and persistence",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
		},
		[]string{"object_type"},
	)

	// EnrichmentMissesTotal counts entities for which no camera or weather
	// station was found within radius (a null result, not an error).
	EnrichmentMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafikinfo_enrichment_misses_total",
			Help: "Total number of entities enriched with no nearby camera or weather station",
		},
		[]string{"kind", "reason"}, // kind: incident, road_condition; reason: no_camera, no_weather
	)

	// VersionRowsWrittenTotal counts pre-update snapshots written to the
	// incident_versions / road_condition_versions tables.
	VersionRowsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafikinfo_version_rows_written_total",
			Help: "Total number of version-history rows written on significant change",
		},
		[]string{"kind"},
	)

	// StreamConnectedGauge reports the live connection state of each
	// upstream SSE stream (1=connected, 0=not).
	StreamConnectedGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trafikinfo_stream_connected",
			Help: "Whether the upstream stream for this object type is currently connected",
		},
		[]string{"object_type"},
	)

	// BroadcastFanoutTotal counts SSE deliveries across all connected viewers.
	BroadcastFanoutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafikinfo_broadcast_fanout_total",
			Help: "Total number of entity deliveries fanned out to SSE viewers",
		},
		[]string{"kind"},
	)

	// BroadcastQueueDroppedTotal counts publishes dropped because the
	// internal broadcast queue was saturated.
	BroadcastQueueDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trafikinfo_broadcast_queue_dropped_total",
			Help: "Total number of publishes dropped due to a full broadcast queue",
		},
	)

	// SSEClientsGauge tracks the number of currently subscribed SSE viewers.
	SSEClientsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trafikinfo_sse_clients",
			Help: "Number of currently connected SSE viewers",
		},
	)

	// BrokerPublishTotal counts MQTT broker publish attempts.
	BrokerPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafikinfo_broker_publish_total",
			Help: "Total number of MQTT broker publish attempts by outcome",
		},
		[]string{"topic", "status"}, // status: ok, unavailable, error
	)

	// PushDeliveriesTotal counts Web Push send attempts by outcome.
	PushDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafikinfo_push_deliveries_total",
			Help: "Total number of Web Push delivery attempts by outcome",
		},
		[]string{"status"}, // status: ok, gone, error
	)

	// PushSubscriptionsEvictedTotal counts subscriptions removed after the
	// push service reported them gone.
	PushSubscriptionsEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trafikinfo_push_subscriptions_evicted_total",
			Help: "Total number of push subscriptions evicted as dead",
		},
	)

	// SnapshotFetchTotal counts camera snapshot fetch attempts by outcome.
	SnapshotFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafikinfo_snapshot_fetch_total",
			Help: "Total number of camera snapshot fetches by outcome",
		},
		[]string{"status"}, // success, unchanged, error
	)

	// SnapshotFetchDuration measures snapshot fetch latency.
	SnapshotFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trafikinfo_snapshot_fetch_duration_seconds",
			Help:    "Time spent fetching a camera snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RetentionSweepRowsDeletedTotal counts rows removed by the retention
	// sweep, by table.
	RetentionSweepRowsDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafikinfo_retention_sweep_rows_deleted_total",
			Help: "Total number of rows deleted by the retention sweep",
		},
		[]string{"table"},
	)

	// HTTPRequestDuration measures HTTP request latency by path.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trafikinfo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsTotal counts HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafikinfo_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsInFlight tracks active HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trafikinfo_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// CacheHits tracks HTTP cache hits by path (304 Not Modified responses).
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafikinfo_http_cache_hits_total",
			Help: "Total number of HTTP cache hits (304 Not Modified responses)",
		},
		[]string{"path"},
	)

	// ResponseSizeBytes measures HTTP response sizes.
	ResponseSizeBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trafikinfo_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 7),
		},
		[]string{"path"},
	)

	// ErrorsByType tracks application errors by type.
	ErrorsByType = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafikinfo_errors_total",
			Help: "Total number of application errors by type",
		},
		[]string{"error_type"},
	)

	// MemoryUsageBytes tracks application memory usage.
	MemoryUsageBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trafikinfo_memory_usage_bytes",
			Help: "Application memory usage in bytes",
		},
	)
)
