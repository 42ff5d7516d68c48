package library

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"album-viewer/internal/apperr"
	"album-viewer/internal/codec"
	"album-viewer/internal/database"
	"album-viewer/internal/entries"
	"album-viewer/internal/logging"
	"album-viewer/internal/scanner"
	"album-viewer/internal/startup"
	"album-viewer/internal/thumbcache"
)

// Options configures a Service.
type Options struct {
	// CoversDir receives uploaded cover images.
	CoversDir string
	Settings  startup.Settings
}

// Service is the album library: the operations the HTTP layer and the CLI
// expose, built on the scanner, the entry lister and the thumbnail cache.
type Service struct {
	db        *database.Database
	lister    *entries.Lister
	scanner   *scanner.Scanner
	cache     *thumbcache.Cache
	coversDir string

	mu       sync.RWMutex
	settings startup.Settings
}

// New creates a Service and applies the initial settings to the cache.
func New(db *database.Database, lister *entries.Lister, sc *scanner.Scanner, cache *thumbcache.Cache, opts Options) *Service {
	coversDir := opts.CoversDir
	if coversDir != "" {
		if abs, err := filepath.Abs(coversDir); err == nil {
			coversDir = abs
		}
	}
	s := &Service{
		db:        db,
		lister:    lister,
		scanner:   sc,
		cache:     cache,
		coversDir: coversDir,
		settings:  opts.Settings,
	}
	s.applyLive(opts.Settings)
	cache.SetMaxInputPixels(opts.Settings.MaxInputPixels)
	return s
}

func (s *Service) applyLive(st startup.Settings) {
	s.cache.SetDefaults(st.DefaultQuality, codec.Format(st.EncodeFormat))
}

// Settings returns the defaults merged with every stored override. Values
// outside LiveKeys are reported as stored even before a restart applies
// them.
func (s *Service) Settings() startup.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// PutSettings validates and stores the given overrides in one transaction,
// then applies the ones in LiveKeys. Nothing is stored if any value is
// invalid.
func (s *Service) PutSettings(ctx context.Context, values map[string]json.RawMessage) (startup.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged, err := s.settings.Merge(values)
	if err != nil {
		return s.settings, err
	}
	if err := s.db.PutSettings(ctx, values); err != nil {
		return s.settings, fmt.Errorf("store settings: %w", err)
	}

	restart := []string{}
	for k := range values {
		if !startup.LiveKeys[k] {
			restart = append(restart, k)
		}
	}
	if len(restart) > 0 {
		logging.Info("Settings %v stored; they take effect after a restart", restart)
	}

	s.settings = merged
	s.applyLive(merged)
	return merged, nil
}

// Scan registers albums under the given roots. Recursive scans must be
// allowed by the allowRecursive setting.
func (s *Service) Scan(ctx context.Context, paths []string, recursive bool) (scanner.Result, error) {
	if len(paths) == 0 {
		return scanner.Result{}, fmt.Errorf("paths is required: %w", apperr.ErrInvalidInput)
	}
	if recursive && !s.Settings().AllowRecursive {
		return scanner.Result{}, fmt.Errorf("recursive scans are disabled: %w", apperr.ErrInvalidInput)
	}
	return s.scanner.Scan(ctx, paths, scanner.Options{Recursive: recursive})
}

// Refresh removes albums whose folder or archive no longer exists.
func (s *Service) Refresh(ctx context.Context) (scanner.RefreshResult, error) {
	return s.scanner.Refresh(ctx)
}

// Cleanup enforces the configured cache budget.
func (s *Service) Cleanup(ctx context.Context) (thumbcache.EvictionResult, error) {
	return s.cache.EnforceBudget(ctx, s.Settings().CacheMaxBytes)
}

// CacheStats reports the thumbnail cache totals.
func (s *Service) CacheStats(ctx context.Context) (database.ThumbStats, error) {
	return s.cache.Stats(ctx)
}
