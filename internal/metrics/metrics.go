package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "album_viewer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_viewer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "album_viewer_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_viewer_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Scanner metrics
var (
	ScanRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "album_viewer_scan_runs_total",
			Help: "Total number of scan invocations",
		},
	)

	ScanRootsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_scan_roots_total",
			Help: "Scan roots processed by outcome",
		},
		[]string{"status"}, // done, not_exists, unsupported, duplicate, corrupt, error
	)

	ScanAlbumsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_scan_albums_upserted_total",
			Help: "Albums inserted or updated by the scanner",
		},
		[]string{"kind"},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "album_viewer_scan_duration_seconds",
			Help:    "Duration of a scan invocation in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	ScanInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_viewer_scan_in_progress",
			Help: "Number of scans currently running",
		},
	)

	RefreshRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "album_viewer_refresh_removed_albums_total",
			Help: "Albums removed by refresh because their backing path vanished",
		},
	)

	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_watcher_events_total",
			Help: "Filesystem watcher events by operation",
		},
		[]string{"op"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "album_viewer_watcher_errors_total",
			Help: "Filesystem watcher errors",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_viewer_watched_directories",
			Help: "Number of album directories being watched",
		},
	)
)

// Entry listing metrics
var (
	EntryListingFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_entry_listing_failures_total",
			Help: "Entry listings that degraded to an empty result",
		},
		[]string{"kind"},
	)

	ZipListingCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_zip_listing_cache_total",
			Help: "Zip member listing cache lookups",
		},
		[]string{"result"}, // hit, miss
	)
)

// Thumbnail metrics
var (
	ThumbnailRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_thumbnail_requests_total",
			Help: "Thumbnail requests by result",
		},
		[]string{"result"}, // hit, miss, error
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "album_viewer_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration by phase",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"phase"}, // read, decode, resize, encode, write
	)

	ThumbnailDecodeByFormat = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_thumbnail_decode_total",
			Help: "Source images decoded by format and decoder",
		},
		[]string{"format", "decoder"},
	)

	ThumbnailCacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_viewer_thumbnail_cache_bytes",
			Help: "Total bytes recorded for cached thumbnails",
		},
	)

	ThumbnailCacheCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_viewer_thumbnail_cache_count",
			Help: "Number of cached thumbnails",
		},
	)

	EvictionRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "album_viewer_eviction_runs_total",
			Help: "Eviction passes that found the cache over budget",
		},
	)

	EvictedThumbsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "album_viewer_evicted_thumbnails_total",
			Help: "Thumbnails removed by eviction",
		},
	)

	EvictedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "album_viewer_evicted_bytes_total",
			Help: "Bytes freed by eviction",
		},
	)

	FileRemoveErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_file_remove_errors_total",
			Help: "Best-effort file removals that failed",
		},
		[]string{"reason"}, // eviction, album_delete, cover_reset, generate_rollback
	)
)

// Concurrency metrics
var (
	WorkerSlotsInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "album_viewer_worker_slots_in_use",
			Help: "Concurrency slots currently held",
		},
		[]string{"pool"}, // decode, io
	)

	WorkerSlotWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "album_viewer_worker_slot_wait_seconds",
			Help:    "Time spent waiting for a concurrency slot",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5},
		},
		[]string{"pool"},
	)
)

// Event metrics
var (
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_events_published_total",
			Help: "Events published to the in-process bus",
		},
		[]string{"event"},
	)

	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_events_dropped_total",
			Help: "Event deliveries dropped because a subscriber buffer was full",
		},
		[]string{"event"},
	)

	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_viewer_event_subscribers",
			Help: "Number of active event subscribers",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_filesystem_retry_attempts_total",
			Help: "Filesystem operations retried after a stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_filesystem_stale_errors_total",
			Help: "Stale file handle errors observed",
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_viewer_memory_usage_ratio",
			Help: "Heap allocation as a ratio of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "album_viewer_memory_paused",
			Help: "1 while new image decodes are held back by memory pressure",
		},
	)

	MemoryWaitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "album_viewer_memory_waits_total",
			Help: "Thumbnail generations that waited for memory pressure to clear",
		},
	)
)

// Library and maintenance metrics
var (
	AlbumsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "album_viewer_albums",
			Help: "Registered albums by kind",
		},
		[]string{"kind"},
	)

	MaintenanceJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_viewer_maintenance_jobs_total",
			Help: "Scheduled maintenance job runs by job and status",
		},
		[]string{"job", "status"},
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "album_viewer_app_info",
			Help: "Application information",
		},
		[]string{"version", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, goVersion string) {
	AppInfo.WithLabelValues(version, goVersion).Set(1)
}
