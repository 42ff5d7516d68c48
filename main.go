package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"album-viewer/internal/codec"
	"album-viewer/internal/database"
	"album-viewer/internal/entries"
	"album-viewer/internal/events"
	"album-viewer/internal/filesystem"
	"album-viewer/internal/handlers"
	"album-viewer/internal/library"
	"album-viewer/internal/logging"
	"album-viewer/internal/maintenance"
	"album-viewer/internal/memory"
	"album-viewer/internal/metrics"
	"album-viewer/internal/middleware"
	"album-viewer/internal/scanner"
	"album-viewer/internal/startup"
	"album-viewer/internal/thumbcache"
	"album-viewer/internal/workers"
)

// eventBuffer is the per-subscriber queue of the websocket event bus.
const eventBuffer = 256

func main() {
	startTime := time.Now()

	startup.LoadDotEnv()
	memLimit := memory.ConfigureLimit(os.Getenv)

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize database
	dbStart := time.Now()
	ctx := context.Background()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	overrides, err := db.GetSettings(ctx)
	if err != nil {
		startup.LogFatal("Failed to read stored settings: %v", err)
	}
	keys, err := config.ApplyOverrides(overrides)
	if err != nil {
		startup.LogFatal("Stored settings are invalid: %v", err)
	}
	startup.LogSettingsOverrides(keys)
	for _, dir := range []string{config.ThumbsDir(), config.CoversDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			startup.LogFatal("Failed to create %s: %v", dir, err)
		}
	}

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"cache":    config.CacheDir,
		"database": filepath.Dir(config.DatabasePath),
	}))

	// Image codec and worker pools
	decodeWorkers := workers.Resolve(config.DecodeConcurrency, 1.0, 0)
	ioWorkers := workers.Resolve(config.IOConcurrency, 2.0, 0)
	codec.InitVips(decodeWorkers)
	defer codec.ShutdownVips()
	startup.LogCodecInit(codec.IsVipsAvailable(), codec.VipsVersion())
	logging.Info("  Decode workers: %d, IO workers: %d", decodeWorkers, ioWorkers)

	memCfg := memory.DefaultConfig()
	if memLimit.Configured {
		memCfg.LimitBytes = memLimit.GoMemLimit
	}
	monitor := memory.NewMonitor(memCfg)
	monitor.Start()

	bus := events.NewBus(eventBuffer)
	lister, err := entries.NewLister(config.ZipListingCache)
	if err != nil {
		startup.LogFatal("Failed to create entry lister: %v", err)
	}
	cache := thumbcache.New(db, lister, thumbcache.Options{
		Dir:            config.CacheDir,
		DefaultQuality: config.DefaultQuality,
		DefaultFormat:  codec.Format(config.EncodeFormat),
		MaxInputPixels: config.MaxInputPixels,
		IOLimiter:      workers.NewLimiter("io", ioWorkers),
		DecodeLimiter:  workers.NewLimiter("decode", decodeWorkers),
		Events:         bus,
		Memory:         monitor,
	})
	sc := scanner.New(db, lister, bus)
	lib := library.New(db, lister, sc, cache, library.Options{
		CoversDir: config.CoversDir(),
		Settings:  config.Settings,
	})

	// Watcher and scheduled maintenance
	startup.LogMaintenanceInit(config.EvictionSchedule, config.RefreshSchedule, config.WatchAlbums)
	var watcher *scanner.Watcher
	if config.WatchAlbums {
		watcher, err = scanner.NewWatcher(sc, db, 0)
		if err != nil {
			logging.Warn("Album watcher unavailable: %v", err)
		} else if err := watcher.Start(ctx); err != nil {
			logging.Warn("Album watcher failed to start: %v", err)
			watcher = nil
		} else {
			sc.SetOnScanComplete(func(scanner.Result) {
				if _, err := watcher.Sync(context.Background()); err != nil {
					logging.Warn("Failed to watch newly scanned albums: %v", err)
				}
			})
		}
	}

	scheduler, err := maintenance.New(lib, maintenance.Options{
		EvictionSchedule: config.EvictionSchedule,
		RefreshSchedule:  config.RefreshSchedule,
		Timeout:          30 * time.Minute,
	})
	if err != nil {
		startup.LogFatal("Maintenance schedule error: %v", err)
	}
	scheduler.Start()

	// Metrics
	var collector *metrics.Collector
	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		metrics.SetAppInfo(startup.Version, runtime.Version())
		collector = metrics.NewCollector(db, time.Minute)
		collector.Start()
	}

	// Setup router
	h := handlers.New(lib, db, bus, handlers.Options{Memory: monitor})
	router := handlers.NewRouter(h, handlers.RouterOptions{MetricsEnabled: config.MetricsEnabled})
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(loggedHandler)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	stopped := make(chan struct{})
	go handleShutdown(srv, stopped, shutdownDeps{
		scheduler: scheduler,
		watcher:   watcher,
		collector: collector,
		monitor:   monitor,
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-stopped
	startup.LogShutdownComplete()
}

type shutdownDeps struct {
	scheduler *maintenance.Scheduler
	watcher   *scanner.Watcher
	collector *metrics.Collector
	monitor   *memory.Monitor
}

// handleShutdown stops the server on SIGINT or SIGTERM and closes stopped
// once in-flight requests and background jobs have finished.
func handleShutdown(srv *http.Server, stopped chan<- struct{}, deps shutdownDeps) {
	defer close(stopped)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping maintenance jobs")
	deps.scheduler.Stop(ctx)
	startup.LogShutdownStepComplete("Maintenance jobs stopped")

	if deps.watcher != nil {
		startup.LogShutdownStep("Stopping album watcher")
		deps.watcher.Stop()
		startup.LogShutdownStepComplete("Album watcher stopped")
	}
	if deps.collector != nil {
		deps.collector.Stop()
	}
	deps.monitor.Stop()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}
}
