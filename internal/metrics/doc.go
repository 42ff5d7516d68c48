// Package metrics provides Prometheus instrumentation for the album viewer.
//
// All metrics are registered with promauto at package initialization and are
// prefixed with "album_viewer_". They are grouped as follows:
//
//   - HTTP: request counts, durations and in-flight requests
//   - Database: query counts and durations per operation
//   - Scanner: roots processed by outcome, albums upserted, scan duration,
//     watcher events
//   - Entries: listing failures that degraded to empty results, zip listing
//     cache lookups
//   - Thumbnails: requests by hit/miss/error, per-phase generation time,
//     cache size, eviction activity and swallowed file removal errors
//   - Concurrency: decode and I/O slots in use and wait time
//   - Events: published and dropped notifications, subscriber count
//
// InitializeMetrics pre-populates label combinations so dashboards see every
// series from the first scrape. Collector refreshes the library gauges on an
// interval from a StatsProvider, normally the database.
package metrics
