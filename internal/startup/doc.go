// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is read by [LoadConfig] (or the quiet [ReadConfig]) through
// viper. Every key can be set as an environment variable with the APP_
// prefix, or in the file named by APP_CONFIG_FILE. [LoadDotEnv] loads an
// optional .env file first.
//
//   - APP_CACHE_DIR: Thumbnail and cover cache directory (default: ./cache)
//   - APP_DATABASE_PATH: SQLite database file (default: ./albums.db)
//   - APP_CACHE_MAX_BYTES: Thumbnail cache budget in bytes (default: 10 GiB)
//   - APP_DEFAULT_QUALITY: Encoder quality when a request gives none (default: 75)
//   - APP_ENCODE_FORMAT: Default thumbnail format (default: webp)
//   - APP_IO_CONCURRENCY: Parallel disk reads and writes, 0 = auto (default: 8)
//   - APP_DECODE_CONCURRENCY: Parallel decodes and encodes, 0 = auto (default: 3)
//   - APP_ALLOW_RECURSIVE: Accept recursive scan requests (default: false)
//   - APP_MAX_INPUT_PIXELS: Largest image that will be decoded (default: 178000000)
//   - APP_PORT: HTTP server port (default: 8080)
//   - APP_METRICS_ENABLED: Serve /metrics (default: true)
//   - APP_EVICTION_SCHEDULE: Cron spec for cache eviction (default: @every 10m)
//   - APP_REFRESH_SCHEDULE: Cron spec for removing vanished albums (default: disabled)
//   - APP_WATCH_ALBUMS: Rescan folder albums when their directory changes (default: false)
//   - APP_ZIP_LISTING_CACHE: Archive listings kept in memory (default: 256)
//   - APP_LOG_LEVEL: debug, info, warn or error (default: LOG_LEVEL or info)
//   - APP_LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// # Settings
//
// [Settings] is the runtime-tunable subset. Overrides stored in the
// database are merged with [Config.ApplyOverrides]; keys in [LiveKeys] are
// applied immediately when changed through the API, the rest on restart.
//
// # Lifecycle Logging
//
// The Log* functions print the banner-style sections used at startup and
// shutdown. [LogHTTPRoutes] walks a mux.Router and lists its routes at
// debug level.
package startup
