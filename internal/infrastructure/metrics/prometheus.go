// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mediacache"

var (
	// CacheOperationsTotal tracks cache operations per tier.
	// Labels:
	//   - operation: get, set, delete, increment
	//   - status: hit, miss, success, error
	//   - cache_type: memory, persistent
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status", "cache_type"},
	)

	// DBQueriesTotal tracks database queries.
	// Labels:
	//   - query_type: select, insert, update, delete
	//   - table: media_links
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"query_type", "table"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)

	// ResolutionsTotal tracks finished resolutions.
	// Labels:
	//   - platform: youtube, instagram, ...
	//   - outcome: success or an error kind (ip_blocked, auth_required, ...)
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Total number of media resolutions by outcome",
		},
		[]string{"platform", "outcome"},
	)

	// ExtractionAttemptsTotal tracks individual extractor invocations.
	// Labels:
	//   - stage: primary, retry, scrape_fallback, audio
	//   - status: success, error
	ExtractionAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_attempts_total",
			Help:      "Total number of extraction attempts by stage",
		},
		[]string{"stage", "status"},
	)

	// RecognitionsTotal tracks music recognition requests.
	// Labels:
	//   - outcome: matched, matched_with_url, no_match, error
	RecognitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognitions_total",
			Help:      "Total number of music recognition requests",
		},
		[]string{"outcome"},
	)

	// HTTPRequestsTotal tracks API requests.
	// Labels:
	//   - method: GET, POST, ...
	//   - route: chi route pattern, e.g. /v1/search/{session}/pages/{page}
	//   - status: HTTP status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks API latency per route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 30, 120, 300},
		},
		[]string{"method", "route"},
	)
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet       = "get"
	CacheOpSet       = "set"
	CacheOpDelete    = "delete"
	CacheOpIncrement = "increment"
)

// Cache type constants.
const (
	CacheTypeMemory     = "memory"
	CacheTypePersistent = "persistent"
)

// DB query type constants.
const (
	DBQuerySelect = "select"
	DBQueryInsert = "insert"
	DBQueryUpdate = "update"
	DBQueryDelete = "delete"
)

// Table name constants.
const (
	TableMediaLinks = "media_links"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// Extraction stage constants.
const (
	StagePrimary        = "primary"
	StageRetry          = "retry"
	StageScrapeFallback = "scrape_fallback"
	StageAudio          = "audio"
)

// Generic status constants.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Recognition outcome constants.
const (
	RecognitionMatched        = "matched"
	RecognitionMatchedWithURL = "matched_with_url"
	RecognitionNoMatch        = "no_match"
	RecognitionError          = "error"
)
