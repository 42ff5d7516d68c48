package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"album-viewer/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// EnvPrefix is prepended to every configuration key when read from the
// environment.
const EnvPrefix = "APP"

// Configuration keys as seen by viper. The environment variable is the
// upper-cased key with EnvPrefix, e.g. APP_CACHE_DIR.
const (
	keyCacheDir          = "cache_dir"
	keyDatabasePath      = "database_path"
	keyCacheMaxBytes     = "cache_max_bytes"
	keyDefaultQuality    = "default_quality"
	keyEncodeFormat      = "encode_format"
	keyIOConcurrency     = "io_concurrency"
	keyDecodeConcurrency = "decode_concurrency"
	keyAllowRecursive    = "allow_recursive"
	keyMaxInputPixels    = "max_input_pixels"
	keyPort              = "port"
	keyMetricsEnabled    = "metrics_enabled"
	keyEvictionSchedule  = "eviction_schedule"
	keyRefreshSchedule   = "refresh_schedule"
	keyWatchAlbums       = "watch_albums"
	keyZipListingCache   = "zip_listing_cache"
	keyLogLevel          = "log_level"
	keyLogHealthChecks   = "log_health_checks"
	keyConfigFile        = "config_file"
)

// Config holds all application configuration
type Config struct {
	Settings

	DatabasePath     string
	Port             string
	MetricsEnabled   bool
	EvictionSchedule string
	RefreshSchedule  string
	WatchAlbums      bool
	ZipListingCache  int
	LogLevel         string
	LogHealthChecks  bool
	ConfigFile       string
}

// ThumbsDir is where thumbnail artifacts are written.
func (c *Config) ThumbsDir() string {
	return filepath.Join(c.CacheDir, "thumbs")
}

// CoversDir is where uploaded cover images are written.
func (c *Config) CoversDir() string {
	return filepath.Join(c.CacheDir, "covers")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	d := DefaultSettings()
	v.SetDefault(keyCacheDir, d.CacheDir)
	v.SetDefault(keyDatabasePath, "./albums.db")
	v.SetDefault(keyCacheMaxBytes, d.CacheMaxBytes)
	v.SetDefault(keyDefaultQuality, d.DefaultQuality)
	v.SetDefault(keyEncodeFormat, d.EncodeFormat)
	v.SetDefault(keyIOConcurrency, d.IOConcurrency)
	v.SetDefault(keyDecodeConcurrency, d.DecodeConcurrency)
	v.SetDefault(keyAllowRecursive, d.AllowRecursive)
	v.SetDefault(keyMaxInputPixels, d.MaxInputPixels)
	v.SetDefault(keyPort, "8080")
	v.SetDefault(keyMetricsEnabled, true)
	v.SetDefault(keyEvictionSchedule, "@every 10m")
	v.SetDefault(keyRefreshSchedule, "")
	v.SetDefault(keyWatchAlbums, false)
	v.SetDefault(keyZipListingCache, 256)
	v.SetDefault(keyLogLevel, "")
	v.SetDefault(keyLogHealthChecks, true)
	v.SetDefault(keyConfigFile, "")
	return v
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		switch {
		case err == nil:
			logging.Debug("Loaded environment from %s", f)
		case errors.Is(err, fs.ErrNotExist):
		default:
			logging.Warn("Failed to load %s: %v", f, err)
		}
	}
}

// ReadConfig reads configuration from the environment and the optional
// APP_CONFIG_FILE without logging it.
func ReadConfig() (*Config, error) {
	v := newViper()

	if file := v.GetString(keyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Settings: Settings{
			CacheMaxBytes:     v.GetInt64(keyCacheMaxBytes),
			DefaultQuality:    v.GetInt(keyDefaultQuality),
			EncodeFormat:      strings.ToLower(v.GetString(keyEncodeFormat)),
			AllowRecursive:    v.GetBool(keyAllowRecursive),
			IOConcurrency:     v.GetInt(keyIOConcurrency),
			DecodeConcurrency: v.GetInt(keyDecodeConcurrency),
			MaxInputPixels:    v.GetInt(keyMaxInputPixels),
			CacheDir:          v.GetString(keyCacheDir),
		},
		DatabasePath:     v.GetString(keyDatabasePath),
		Port:             v.GetString(keyPort),
		MetricsEnabled:   v.GetBool(keyMetricsEnabled),
		EvictionSchedule: v.GetString(keyEvictionSchedule),
		RefreshSchedule:  v.GetString(keyRefreshSchedule),
		WatchAlbums:      v.GetBool(keyWatchAlbums),
		ZipListingCache:  v.GetInt(keyZipListingCache),
		LogLevel:         v.GetString(keyLogLevel),
		LogHealthChecks:  v.GetBool(keyLogHealthChecks),
		ConfigFile:       v.GetString(keyConfigFile),
	}

	if cfg.LogLevel != "" {
		level, ok := logging.ParseLevel(cfg.LogLevel)
		if !ok {
			return nil, fmt.Errorf("unknown log level %q", cfg.LogLevel)
		}
		logging.SetLevel(level)
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("database path must not be empty")
	}
	if cfg.ZipListingCache < 1 {
		cfg.ZipListingCache = 1
	}
	return cfg, nil
}

// LoadConfig prints the startup banner, reads configuration and prepares
// the cache and database directories.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	cfg, err := ReadConfig()
	if err != nil {
		return nil, err
	}
	logConfig(cfg)

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func logConfig(cfg *Config) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if cfg.ConfigFile != "" {
		logging.Info("  APP_CONFIG_FILE:        %s", cfg.ConfigFile)
	}
	logging.Info("  APP_CACHE_DIR:          %s", cfg.CacheDir)
	logging.Info("  APP_DATABASE_PATH:      %s", cfg.DatabasePath)
	logging.Info("  APP_CACHE_MAX_BYTES:    %d", cfg.CacheMaxBytes)
	logging.Info("  APP_DEFAULT_QUALITY:    %d", cfg.DefaultQuality)
	logging.Info("  APP_ENCODE_FORMAT:      %s", cfg.EncodeFormat)
	logging.Info("  APP_IO_CONCURRENCY:     %d", cfg.IOConcurrency)
	logging.Info("  APP_DECODE_CONCURRENCY: %d", cfg.DecodeConcurrency)
	logging.Info("  APP_ALLOW_RECURSIVE:    %v", cfg.AllowRecursive)
	logging.Info("  APP_MAX_INPUT_PIXELS:   %d", cfg.MaxInputPixels)
	logging.Info("  APP_PORT:               %s", cfg.Port)
	logging.Info("  APP_METRICS_ENABLED:    %v", cfg.MetricsEnabled)
	logging.Info("  APP_EVICTION_SCHEDULE:  %s", scheduleString(cfg.EvictionSchedule))
	logging.Info("  APP_REFRESH_SCHEDULE:   %s", scheduleString(cfg.RefreshSchedule))
	logging.Info("  APP_WATCH_ALBUMS:       %v", cfg.WatchAlbums)
	logging.Info("  APP_ZIP_LISTING_CACHE:  %d", cfg.ZipListingCache)
	logging.Info("  LOG_LEVEL:              %s", logging.GetLevel())
}

func scheduleString(s string) string {
	if s == "" {
		return "DISABLED"
	}
	return s
}

// resolvePaths makes the cache and database locations absolute and ensures
// their directories exist and are writable.
func (c *Config) resolvePaths() error {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	cacheDir, err := filepath.Abs(c.CacheDir)
	if err != nil {
		return fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	c.CacheDir = cacheDir
	logging.Info("  Cache directory (absolute): %s", cacheDir)

	dbPath, err := filepath.Abs(c.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to resolve database path: %w", err)
	}
	c.DatabasePath = dbPath
	logging.Info("  Database path (absolute):   %s", dbPath)

	dbDir := filepath.Dir(dbPath)
	if err := ensureDirectory(dbDir, "database"); err != nil {
		return fmt.Errorf("database directory error: %w", err)
	}
	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(dbDir); err != nil {
		return fmt.Errorf("database directory is not writable: %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	for _, d := range []struct{ path, name string }{
		{c.ThumbsDir(), "thumbnail"},
		{c.CoversDir(), "cover"},
	} {
		if err := ensureDirectory(d.path, d.name); err != nil {
			return fmt.Errorf("%s directory error: %w", d.name, err)
		}
		if err := testWriteAccess(d.path); err != nil {
			return fmt.Errorf("%s directory is not writable: %w", d.name, err)
		}
		logging.Info("  [OK] %s directory ready", d.name)
	}
	return nil
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogSettingsOverrides logs which stored settings replaced configured values.
func LogSettingsOverrides(keys []string) {
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)
	logging.Info("  Stored settings override: %s", strings.Join(keys, ", "))
}

// LogCodecInit logs which encoders are available.
func LogCodecInit(vipsAvailable bool, vipsVersion string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("IMAGE CODEC INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	if vipsAvailable {
		logging.Info("  [OK] libvips %s available (WebP encoding enabled)", vipsVersion)
		return
	}
	logging.Warn("  libvips unavailable, WebP requests fall back to JPEG")
}

// LogMaintenanceInit logs the scheduled maintenance jobs.
func LogMaintenanceInit(evictionSchedule, refreshSchedule string, watch bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MAINTENANCE")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Cache eviction: %s", scheduleString(evictionSchedule))
	logging.Info("  Album refresh:  %s", scheduleString(refreshSchedule))
	logging.Info("  Album watcher:  %s", enabledString(watch))
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes at debug level
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	if logHealthChecks {
		logging.Info("  Health check logging: ON")
	} else {
		logging.Info("  Health check logging: OFF (set APP_LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://0.0.0.0:%s/api", config.Port)
	logging.Info("    Events:        ws://0.0.0.0:%s/api/events/ws", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.Port)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
    _   _ _                   __     ___
   / \ | | |__  _   _ _ __ ___\ \   / (_) _____      _____ _ __
  / _ \| | '_ \| | | | '_ ' _ \\ \ / /| |/ _ \ \ /\ / / _ \ '__|
 / ___ \ | |_) | |_| | | | | | |\ V / | |  __/\ V  V /  __/ |
/_/   \_\_|_.__/ \__,_|_| |_| |_| \_/  |_|\___| \_/\_/ \___|_|

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
