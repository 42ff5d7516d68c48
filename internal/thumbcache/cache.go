package thumbcache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"album-viewer/internal/apperr"
	"album-viewer/internal/codec"
	"album-viewer/internal/database"
	"album-viewer/internal/events"
	"album-viewer/internal/filesystem"
	"album-viewer/internal/logging"
	"album-viewer/internal/metrics"
	"album-viewer/internal/workers"
)

// Repository is the subset of the database the cache needs.
type Repository interface {
	GetThumb(ctx context.Context, albumID int64, key string) (*database.ThumbEntry, error)
	TouchThumb(ctx context.Context, albumID int64, key string, at int64) error
	UpsertThumb(ctx context.Context, t database.ThumbEntry) error
	ThumbStats(ctx context.Context) (database.ThumbStats, error)
	LeastRecentlyUsedThumbs(ctx context.Context, limit int) ([]database.ThumbEntry, error)
	DeleteThumb(ctx context.Context, albumID int64, key string) error
	ListAlbums(ctx context.Context) ([]database.Album, error)
	RecordCoverPointer(ctx context.Context, id int64, path, generatedDir string) error
}

// Source reads album entries.
type Source interface {
	ReadEntry(kind database.AlbumKind, albumPath, entry string) ([]byte, error)
	FirstEntry(kind database.AlbumKind, albumPath string) (string, bool)
}

// Options configures a Cache.
type Options struct {
	// Dir is the cache root; artifacts go under Dir/thumbs.
	Dir            string
	DefaultQuality int
	DefaultFormat  codec.Format
	MaxInputPixels int
	IOLimiter      *workers.Limiter
	DecodeLimiter  *workers.Limiter
	Events         events.Publisher
	// Memory, when set, is waited on before each decode.
	Memory Backpressure
}

// Backpressure holds back work while the process is short of memory.
type Backpressure interface {
	Wait(ctx context.Context) error
}

// Result identifies a cached artifact.
type Result struct {
	Key      string
	FilePath string
	Hit      bool
}

// Cache serves thumbnails from disk, generating them on demand.
type Cache struct {
	repo      Repository
	source    Source
	thumbsDir string
	io        *workers.Limiter
	decode    *workers.Limiter
	events    events.Publisher
	memory    Backpressure
	flight    singleflight.Group

	mu             sync.RWMutex
	defaultQuality int
	defaultFormat  codec.Format
	maxPixels      int

	evictMu sync.Mutex
	now     func() time.Time
}

// New creates a Cache. Zero-valued options fall back to defaults.
func New(repo Repository, source Source, opts Options) *Cache {
	c := &Cache{
		repo:      repo,
		source:    source,
		thumbsDir: filepath.Join(opts.Dir, "thumbs"),
		io:        opts.IOLimiter,
		decode:    opts.DecodeLimiter,
		events:    opts.Events,
		memory:    opts.Memory,
		now:       time.Now,
	}
	if c.io == nil {
		c.io = workers.NewLimiter("io", workers.ForIO(0))
	}
	if c.decode == nil {
		c.decode = workers.NewLimiter("decode", workers.ForCPU(0))
	}
	if c.events == nil {
		c.events = events.Discard{}
	}
	c.SetDefaults(opts.DefaultQuality, opts.DefaultFormat)
	c.SetMaxInputPixels(opts.MaxInputPixels)
	return c
}

// ThumbsDir is the directory that holds generated artifacts.
func (c *Cache) ThumbsDir() string {
	return c.thumbsDir
}

// SetDefaults changes the quality and format used when a request leaves
// them unset. Invalid values reset to codec defaults.
func (c *Cache) SetDefaults(quality int, format codec.Format) {
	if quality < 1 || quality > 100 {
		quality = codec.DefaultQuality
	}
	if _, err := codec.ParseFormat(string(format)); err != nil {
		format = codec.FormatWebP
	}
	c.mu.Lock()
	c.defaultQuality = quality
	c.defaultFormat = format
	c.mu.Unlock()
}

// SetMaxInputPixels changes the decode pixel ceiling.
func (c *Cache) SetMaxInputPixels(n int) {
	if n <= 0 {
		n = codec.DefaultMaxPixels
	}
	c.mu.Lock()
	c.maxPixels = n
	c.mu.Unlock()
}

// resolve fills in defaults so that equivalent requests share one key.
func (c *Cache) resolve(r Request) Request {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if r.Quality == 0 {
		r.Quality = c.defaultQuality
	}
	if r.Format == "" {
		r.Format = c.defaultFormat
	}
	if !codec.Supported(r.Format) {
		logging.Debug("Format %s unavailable, encoding jpeg instead", r.Format)
		r.Format = codec.FormatJPEG
	}
	r.Fit = codec.ParseFit(string(r.Fit))
	return r
}

// GetOrCreate returns the artifact for r, generating it on a miss.
func (c *Cache) GetOrCreate(ctx context.Context, r Request) (Result, error) {
	if err := r.validate(); err != nil {
		return Result{}, err
	}
	r = c.resolve(r)
	key := Key(r)

	if res, ok := c.lookup(ctx, r.AlbumID, key); ok {
		metrics.ThumbnailRequestsTotal.WithLabelValues("hit").Inc()
		return res, nil
	}

	// The shared generation outlives any one caller; each caller only stops
	// waiting when its own context ends.
	ch := c.flight.DoChan(key, func() (any, error) {
		return c.generate(context.WithoutCancel(ctx), r, key)
	})
	select {
	case <-ctx.Done():
		metrics.ThumbnailRequestsTotal.WithLabelValues("error").Inc()
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			metrics.ThumbnailRequestsTotal.WithLabelValues("error").Inc()
			return Result{}, res.Err
		}
		metrics.ThumbnailRequestsTotal.WithLabelValues("miss").Inc()
		return res.Val.(Result), nil
	}
}

func (c *Cache) lookup(ctx context.Context, albumID int64, key string) (Result, bool) {
	row, err := c.repo.GetThumb(ctx, albumID, key)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			logging.Warn("Thumbnail lookup for album %d failed: %v", albumID, err)
		}
		return Result{}, false
	}
	if !filesystem.FileExists(row.FilePath) {
		logging.Debug("Thumbnail artifact %s vanished, regenerating", row.FilePath)
		return Result{}, false
	}
	if err := c.repo.TouchThumb(ctx, albumID, key, c.now().UnixMilli()); err != nil {
		logging.Warn("Failed to update last access for %s: %v", key, err)
	}
	c.events.Publish(events.ThumbHit, events.ThumbData{AlbumID: albumID, Key: key, Path: row.FilePath})
	return Result{Key: key, FilePath: row.FilePath, Hit: true}, true
}

func observe(phase string, start time.Time) {
	metrics.ThumbnailGenerationDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

func (c *Cache) generate(ctx context.Context, r Request, key string) (Result, error) {
	c.events.Publish(events.ThumbStart, events.ThumbData{AlbumID: r.AlbumID, Key: key})

	var data []byte
	err := c.io.Do(ctx, func() error {
		defer observe("read", time.Now())
		var err error
		data, err = c.source.ReadEntry(r.Kind, r.AlbumPath, r.Entry)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("read source for album %d: %w", r.AlbumID, err)
	}

	c.mu.RLock()
	maxPixels := c.maxPixels
	c.mu.RUnlock()

	if c.memory != nil {
		if err := c.memory.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("wait for memory: %w", err)
		}
	}

	var (
		encoded []byte
		width   int
		height  int
	)
	err = c.decode.Do(ctx, func() error {
		start := time.Now()
		img, err := codec.Decode(data, maxPixels)
		if err != nil {
			return err
		}
		observe("decode", start)

		start = time.Now()
		if r.Crop != nil {
			img = codec.Crop(img, *r.Crop)
		}
		img = codec.Resize(img, r.Width, r.Height, r.Fit)
		width, height = img.Bounds().Dx(), img.Bounds().Dy()
		observe("resize", start)

		start = time.Now()
		encoded, err = codec.Encode(img, r.Format, r.Quality)
		observe("encode", start)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("render thumbnail for album %d: %w", r.AlbumID, err)
	}

	path := ArtifactPath(c.thumbsDir, key, r.Format)
	err = c.io.Do(ctx, func() error {
		defer observe("write", time.Now())
		return filesystem.AtomicWrite(path, encoded, 0o644)
	})
	if err != nil {
		return Result{}, fmt.Errorf("write thumbnail %s: %w", path, err)
	}

	now := c.now().UnixMilli()
	err = c.repo.UpsertThumb(ctx, database.ThumbEntry{
		AlbumID:    r.AlbumID,
		Key:        key,
		FilePath:   path,
		Bytes:      int64(len(encoded)),
		Width:      width,
		Height:     height,
		CreatedAt:  now,
		LastAccess: now,
		Cover:      r.Cover,
	})
	if err != nil {
		filesystem.RemoveBestEffort("generate_rollback", path)
		return Result{}, fmt.Errorf("record thumbnail %s: %w", key, err)
	}

	logging.Debug("Generated thumbnail %s (%dx%d, %d bytes)", path, width, height, len(encoded))
	c.events.Publish(events.ThumbDone, events.ThumbData{AlbumID: r.AlbumID, Key: key, Path: path})
	return Result{Key: key, FilePath: path}, nil
}
