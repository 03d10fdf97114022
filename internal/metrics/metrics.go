// Package metrics exposes the Prometheus collectors every component
// registers against, following the teacher's promauto-at-package-scope
// pattern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics, shared by every Fiber-fronted process (front-end).
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tribbler_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tribbler_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tribbler_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Backend server metrics (component A): one counter per storage.Engine
	// operation, labelled by outcome.
	BackendOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tribbler_backend_ops_total",
			Help: "Total number of backend storage operations",
		},
		[]string{"op", "status"},
	)

	BackendOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tribbler_backend_op_duration_seconds",
			Help:    "Backend storage operation latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// Replicated KV metrics (component D): which replica answered, and how
	// often a single-replica failure was masked.
	ReplicaCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tribbler_replica_calls_total",
			Help: "Total number of replicated-KV calls per replica role and outcome",
		},
		[]string{"op", "role", "status"},
	)

	ReplicaFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tribbler_replica_fallbacks_total",
			Help: "Total number of operations where the primary failed and the backup answered",
		},
		[]string{"op"},
	)

	ReplicaBothFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tribbler_replica_both_failed_total",
			Help: "Total number of operations where both primary and backup failed",
		},
		[]string{"op"},
	)

	// Keeper metrics (component G): liveness transitions and live-set size.
	KeeperLiveBackends = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tribbler_keeper_live_backends",
			Help: "Number of backends the keeper currently believes are alive",
		},
	)

	KeeperTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tribbler_keeper_transitions_total",
			Help: "Total number of backend Join/Leave transitions detected by the keeper",
		},
		[]string{"type"},
	)

	KeeperProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tribbler_keeper_probe_duration_seconds",
			Help:    "Keeper liveness probe latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	KeeperMaxClock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tribbler_keeper_max_clock",
			Help: "Maximum clock value observed across backends on the last keeper tick",
		},
	)

	// Migration engine metrics (component H).
	MigrationCopiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tribbler_migration_copies_total",
			Help: "Total number of per-bin migration copy attempts",
		},
		[]string{"reason", "status"},
	)

	MigrationBinsCopied = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tribbler_migration_bins_per_run",
			Help:    "Number of bins copied per migration run",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	// Front-end domain metrics (component F).
	FrontendOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tribbler_frontend_ops_total",
			Help: "Total number of front-end operations by kind and outcome",
		},
		[]string{"op", "status"},
	)

	TribsGCedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tribbler_tribs_gc_total",
			Help: "Total number of stale trib entries garbage-collected from tribs lists",
		},
	)

	// Rate limiting metrics, reused as-is from the teacher's per-IP limiter.
	// Nothing in this module updates them; the front-end's per-IP limiter
	// does not record to them.
	RateLimitRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tribbler_rate_limit_requests_total",
			Help: "Total number of requests checked against rate limits",
		},
		[]string{"limiter_type", "status"},
	)

	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tribbler_rate_limit_exceeded_total",
			Help: "Total number of requests that exceeded rate limits",
		},
		[]string{"limiter_type"},
	)

	RateLimitActiveClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tribbler_rate_limit_active_clients",
			Help: "Number of active clients being rate limited",
		},
		[]string{"limiter_type"},
	)

	// Audit metrics, required by internal/audit.Manager regardless of sink.
	AuditEventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tribbler_audit_events_dropped_total",
			Help: "Total number of audit events dropped due to buffer pressure or shutdown",
		},
		[]string{"sink", "reason"},
	)

	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tribbler_build_info",
			Help: "Build information about Tribbler",
		},
		[]string{"version", "go_version"},
	)
)
