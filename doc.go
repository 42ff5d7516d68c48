// Package main provides the entry point for the Album Viewer server.
//
// Album Viewer registers folders of images and zip archives as albums,
// arranges them into a tree by path and serves resized thumbnails and
// covers over a JSON API.
//
// # Application Lifecycle
//
//  1. Memory Configuration: Sets GOMEMLIMIT from MEMORY_LIMIT or cgroup limits
//  2. Configuration Loading: Reads APP_* variables and prepares directories
//  3. Database Initialization: Opens SQLite and merges stored settings
//  4. Component Initialization:
//     - libvips codec and the decode and IO worker pools
//     - Memory monitor that pauses decodes under pressure
//     - Entry lister, thumbnail cache, scanner and library service
//     - Album watcher (if APP_WATCH_ALBUMS) and cron maintenance jobs
//     - Metrics collector (if APP_METRICS_ENABLED)
//  5. HTTP Server Setup: Routes, logging and compression middleware
//  6. Graceful Shutdown: SIGINT/SIGTERM stops jobs, then drains requests
//
// # Background Services
//
//   - Cache eviction keeps the thumbnail cache under cacheMaxBytes
//   - Refresh removes albums whose files are gone (if scheduled)
//   - The watcher rescans folder albums whose directory changed
//   - The metrics collector updates album and cache gauges every minute
//
// See [album-viewer/internal/startup] for the configuration reference and
// cmd/albumctl for the operator CLI.
package main
