package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"album-viewer/internal/albumpath"
	"album-viewer/internal/apperr"
	"album-viewer/internal/database"
	"album-viewer/internal/events"
	"album-viewer/internal/filesystem"
	"album-viewer/internal/logging"
	"album-viewer/internal/mediatypes"
	"album-viewer/internal/metrics"
)

const upsertBatchSize = 100

// Repository is the subset of the database the scanner needs.
type Repository interface {
	AlbumKeys(ctx context.Context) (albumpath.Keys, error)
	UpsertAlbums(ctx context.Context, items []database.AlbumUpsert) ([]database.Album, error)
	ListAlbums(ctx context.Context) ([]database.Album, error)
	DeleteAlbums(ctx context.Context, ids []int64) ([]string, error)
}

// ZipLister enumerates the image members of an archive.
type ZipLister interface {
	ZipImages(path string) ([]string, error)
}

// Options controls one Scan call.
type Options struct {
	Recursive bool
	// Update reprocesses albums that were registered before the call, so
	// their counts and timestamps are refreshed.
	Update bool
}

// Result lists the albums a scan reports.
type Result struct {
	Count int              `json:"count"`
	Items []database.Album `json:"items"`
}

// Scanner registers albums found under requested roots.
type Scanner struct {
	repo   Repository
	zips   ZipLister
	events events.Publisher
	retry  filesystem.RetryConfig

	mu         sync.RWMutex
	onComplete func(Result)
}

// New creates a Scanner. A nil publisher discards events.
func New(repo Repository, zips ZipLister, pub events.Publisher) *Scanner {
	if pub == nil {
		pub = events.Discard{}
	}
	return &Scanner{repo: repo, zips: zips, events: pub, retry: filesystem.DefaultRetryConfig()}
}

// SetOnScanComplete sets a callback invoked after every successful Scan.
func (s *Scanner) SetOnScanComplete(fn func(Result)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = fn
}

// scanState is the per-call bookkeeping.
type scanState struct {
	ctx     context.Context
	seen    albumpath.Keys
	pending []database.AlbumUpsert
	report  []bool
	result  Result
	// err is the first failed batch upsert; once set the walk stops and
	// Scan returns it.
	err error
}

// Scan registers every root. The work is not cancelled with ctx: once
// started, a scan runs to completion even if the caller stops waiting.
func (s *Scanner) Scan(ctx context.Context, roots []string, opts Options) (Result, error) {
	if len(roots) == 0 {
		return Result{}, fmt.Errorf("no paths to scan: %w", apperr.ErrInvalidInput)
	}
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	metrics.ScanRunsTotal.Inc()
	metrics.ScanInProgress.Inc()
	defer func() {
		metrics.ScanInProgress.Dec()
		metrics.ScanDuration.Observe(time.Since(start).Seconds())
	}()

	seen := albumpath.Keys{}
	if !opts.Update {
		var err error
		if seen, err = s.repo.AlbumKeys(ctx); err != nil {
			return Result{}, fmt.Errorf("load registered albums: %w", err)
		}
	}
	st := &scanState{ctx: ctx, seen: seen, result: Result{Items: []database.Album{}}}

	for _, root := range roots {
		path := albumpath.Canonical(root)
		status, reason := s.scanRoot(st, path, opts.Recursive)
		if st.err == nil {
			st.err = s.flush(st)
		}
		if st.err != nil {
			metrics.ScanRootsTotal.WithLabelValues(events.ReasonError).Inc()
			s.events.Publish(events.ScanProgress, events.ScanProgressData{Path: path, Status: events.StatusSkip, Reason: events.ReasonError})
			return st.result, st.err
		}

		label := reason
		if label == "" {
			label = status
		}
		metrics.ScanRootsTotal.WithLabelValues(label).Inc()
		s.events.Publish(events.ScanProgress, events.ScanProgressData{Path: path, Status: status, Reason: reason})
	}

	st.result.Count = len(st.result.Items)
	s.events.Publish(events.ScanDone, events.ScanDoneData{Count: st.result.Count})
	logging.Info("Scan of %d root(s) complete: %d album(s) in %v", len(roots), st.result.Count, time.Since(start))

	s.mu.RLock()
	cb := s.onComplete
	s.mu.RUnlock()
	if cb != nil {
		cb(st.result)
	}
	return st.result, nil
}

// scanRoot processes one root and returns the progress status and reason.
func (s *Scanner) scanRoot(st *scanState, path string, recursive bool) (string, string) {
	s.events.Publish(events.ScanProgress, events.ScanProgressData{Path: path, Status: events.StatusStart})

	fsPath := filepath.FromSlash(path)
	info, err := filesystem.StatWithRetry(fsPath, s.retry)
	if errors.Is(err, fs.ErrNotExist) {
		return events.StatusSkip, events.ReasonNotExists
	}
	if err != nil {
		logging.Warn("Cannot stat scan root %s: %v", path, err)
		return events.StatusSkip, events.ReasonError
	}

	switch {
	case info.IsDir() && recursive:
		s.walk(st, fsPath)
		return events.StatusDone, ""
	case info.IsDir():
		s.addRootFolder(st, fsPath, info)
		return events.StatusDone, ""
	case info.Mode().IsRegular() && mediatypes.IsZipName(path):
		switch err := s.addZip(st, fsPath); {
		case err == nil:
			return events.StatusDone, ""
		case errors.Is(err, errDuplicate):
			return events.StatusDone, events.ReasonDuplicate
		case errors.Is(err, apperr.ErrCorruptArchive):
			return events.StatusSkip, events.ReasonCorrupt
		default:
			return events.StatusSkip, events.ReasonError
		}
	default:
		return events.StatusSkip, events.ReasonUnsupported
	}
}

var errDuplicate = errors.New("already registered")

func (s *Scanner) claim(st *scanState, path string) bool {
	key := albumpath.Key(path)
	if st.seen.Has(key) {
		return false
	}
	st.seen[key] = struct{}{}
	return true
}

func folderName(path string) string {
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return path
	}
	return name
}

func countImages(ents []os.DirEntry) int {
	n := 0
	for _, e := range ents {
		if !e.IsDir() && mediatypes.IsImageName(e.Name()) {
			n++
		}
	}
	return n
}

// addRootFolder registers a non-recursive folder root. It is reported even
// when it holds no images.
func (s *Scanner) addRootFolder(st *scanState, dir string, info os.FileInfo) {
	if !s.claim(st, dir) {
		return
	}
	ents, err := filesystem.ReadDirWithRetry(dir, s.retry)
	if err != nil {
		logging.Warn("Cannot list folder %s, registering it empty: %v", dir, err)
	}
	count := 0
	for _, e := range ents {
		if e.IsDir() || !mediatypes.IsImageName(e.Name()) {
			continue
		}
		if e.Type()&fs.ModeSymlink != 0 && !filesystem.FileExists(filepath.Join(dir, e.Name())) {
			continue
		}
		count++
	}
	s.queue(st, database.AlbumUpsert{
		Kind:      database.KindFolder,
		Path:      dir,
		Name:      folderName(dir),
		MTime:     info.ModTime().Unix(),
		Size:      info.Size(),
		FileCount: count,
	}, true)
}

// walk registers dir and everything below it. Symlinked directories are not
// followed.
func (s *Scanner) walk(st *scanState, dir string) {
	ents, err := filesystem.ReadDirWithRetry(dir, s.retry)
	if err != nil {
		logging.Warn("Cannot list folder %s during scan: %v", dir, err)
	}

	if s.claim(st, dir) {
		if info, err := filesystem.StatWithRetry(dir, s.retry); err == nil {
			count := countImages(ents)
			s.queue(st, database.AlbumUpsert{
				Kind:      database.KindFolder,
				Path:      dir,
				Name:      folderName(dir),
				MTime:     info.ModTime().Unix(),
				Size:      info.Size(),
				FileCount: count,
			}, count > 0)
		} else {
			logging.Warn("Cannot stat folder %s during scan: %v", dir, err)
		}
	}

	for _, e := range ents {
		if e.Type().IsRegular() && mediatypes.IsZipName(e.Name()) {
			if err := s.addZip(st, filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, errDuplicate) {
				logging.Debug("Skipping archive %s: %v", filepath.Join(dir, e.Name()), err)
			}
		}
	}
	for _, e := range ents {
		if st.err != nil {
			return
		}
		if e.IsDir() {
			s.walk(st, filepath.Join(dir, e.Name()))
		}
	}
}

// addZip registers an archive. Archives without images are recorded but not
// reported.
func (s *Scanner) addZip(st *scanState, path string) error {
	if st.seen.Has(albumpath.Key(path)) {
		return errDuplicate
	}
	info, err := filesystem.StatWithRetry(path, s.retry)
	if err != nil {
		return err
	}
	images, err := s.zips.ZipImages(path)
	if err != nil {
		return err
	}
	s.claim(st, path)
	s.queue(st, database.AlbumUpsert{
		Kind:      database.KindZip,
		Path:      path,
		Name:      mediatypes.BaseWithoutExt(path),
		MTime:     info.ModTime().Unix(),
		Size:      info.Size(),
		FileCount: len(images),
	}, len(images) > 0)
	return nil
}

func (s *Scanner) queue(st *scanState, item database.AlbumUpsert, report bool) {
	if st.err != nil {
		return
	}
	st.pending = append(st.pending, item)
	st.report = append(st.report, report)
	if len(st.pending) >= upsertBatchSize {
		if err := s.flush(st); err != nil {
			logging.Error("Album batch upsert failed, stopping scan: %v", err)
			st.err = err
		}
	}
}

func (s *Scanner) flush(st *scanState) error {
	if len(st.pending) == 0 {
		return nil
	}
	pending, report := st.pending, st.report
	st.pending, st.report = nil, nil

	albums, err := s.repo.UpsertAlbums(st.ctx, pending)
	if err != nil {
		return fmt.Errorf("upsert %d album(s): %w", len(pending), err)
	}
	for i, a := range albums {
		metrics.ScanAlbumsUpserted.WithLabelValues(string(a.Kind)).Inc()
		if report[i] {
			st.result.Items = append(st.result.Items, a)
		}
	}
	return nil
}
