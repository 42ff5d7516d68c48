package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"album-viewer/internal/albumpath"
	"album-viewer/internal/database"
	"album-viewer/internal/logging"
	"album-viewer/internal/mediatypes"
	"album-viewer/internal/metrics"
)

// DefaultDebounce is how long a directory must stay quiet before it is
// rescanned.
const DefaultDebounce = 2 * time.Second

// Watcher rescans folder albums whose directory gains, loses or renames an
// image or archive. Directories are watched non-recursively; each folder
// album is watched on its own.
type Watcher struct {
	scanner  *Scanner
	repo     Repository
	debounce time.Duration

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	watched map[string]string // key -> directory
	timers  map[string]*time.Timer
	stopped bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher creates a Watcher. Call Start to begin watching.
func NewWatcher(s *Scanner, repo Repository, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		scanner:  s,
		repo:     repo,
		debounce: debounce,
		fsw:      fsw,
		watched:  make(map[string]string),
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}, nil
}

// Start watches every registered folder album and processes events until
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	n, err := w.Sync(ctx)
	if err != nil {
		return err
	}
	logging.Info("Album watcher started, watching %d directories", n)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop()
	}()
	return nil
}

// Sync adds watches for folder albums registered since the last call and
// returns the number of watched directories.
func (w *Watcher) Sync(ctx context.Context) (int, error) {
	albums, err := w.repo.ListAlbums(ctx)
	if err != nil {
		return 0, fmt.Errorf("list albums: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, a := range albums {
		if a.Kind != database.KindFolder {
			continue
		}
		key := albumpath.Key(a.Path)
		if _, ok := w.watched[key]; ok {
			continue
		}
		dir := filepath.FromSlash(a.Path)
		if err := w.fsw.Add(dir); err != nil {
			logging.Warn("failed to add album directory to watcher %s: %v", dir, err)
			metrics.WatcherErrors.Inc()
			continue
		}
		w.watched[key] = dir
	}
	metrics.WatchedDirectories.Set(float64(len(w.watched)))
	return len(w.watched), nil
}

// Stop ends event processing and releases the watches. Pending rescans are
// dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	if err := w.fsw.Close(); err != nil {
		logging.Error("failed to close file watcher: %v", err)
	}
	w.wg.Wait()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()
		}
	}
}

func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Chmod):
		return "chmod"
	default:
		return "unknown"
	}
}

// relevant reports whether an event can change a folder album's contents.
func relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return mediatypes.IsImageName(name) || mediatypes.IsZipName(name)
}

func (w *Watcher) handle(event fsnotify.Event) {
	metrics.WatcherEventsTotal.WithLabelValues(opName(event.Op)).Inc()
	if !relevant(event) {
		return
	}

	dir := filepath.Dir(event.Name)
	key := albumpath.Key(dir)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if _, ok := w.watched[key]; !ok {
		return
	}
	if t, ok := w.timers[key]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[key] = time.AfterFunc(w.debounce, func() { w.rescan(key, dir) })
}

func (w *Watcher) rescan(key, dir string) {
	w.mu.Lock()
	delete(w.timers, key)
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}

	logging.Debug("Directory %s changed, rescanning", dir)
	if _, err := w.scanner.Scan(context.Background(), []string{dir}, Options{Update: true}); err != nil {
		logging.Warn("Rescan of %s failed: %v", dir, err)
	}
}
