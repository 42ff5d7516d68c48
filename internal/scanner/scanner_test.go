package scanner

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"album-viewer/internal/albumpath"
	"album-viewer/internal/apperr"
	"album-viewer/internal/database"
	"album-viewer/internal/entries"
	"album-viewer/internal/events"
)

type recorder struct {
	mu       sync.Mutex
	progress []events.ScanProgressData
	done     []events.ScanDoneData
}

func (r *recorder) Publish(name string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch d := data.(type) {
	case events.ScanProgressData:
		r.progress = append(r.progress, d)
	case events.ScanDoneData:
		r.done = append(r.done, d)
	}
}

func (r *recorder) final(path string) events.ScanProgressData {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last events.ScanProgressData
	for _, p := range r.progress {
		if p.Path == path {
			last = p
		}
	}
	return last
}

func setup(t *testing.T) (*Scanner, *database.Database, *recorder) {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	lister, err := entries.NewLister(8)
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	return New(db, lister, rec), db, rec
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func makeZip(t *testing.T, path string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for _, n := range names {
		w, err := zw.Create(n)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = w.Write([]byte("x"))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func albumPaths(albums []database.Album) []string {
	out := make([]string, 0, len(albums))
	for _, a := range albums {
		out = append(out, a.Path)
	}
	sort.Strings(out)
	return out
}

func norm(parts ...string) string {
	return albumpath.Normalize(filepath.Join(parts...))
}

func TestScanFolderNonRecursive(t *testing.T) {
	s, db, rec := setup(t)
	ctx := context.Background()
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "photo1.jpg"))
	touch(t, filepath.Join(dir, "photo2.jpg"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "nested", "deep.jpg"))

	res, err := s.Scan(ctx, []string{dir}, Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Count != 1 || len(res.Items) != 1 {
		t.Fatalf("result = %+v, want one album", res)
	}
	a := res.Items[0]
	if a.Kind != database.KindFolder || a.FileCount != 2 || a.Path != norm(dir) || a.Name != filepath.Base(dir) {
		t.Errorf("album = %+v", a)
	}

	all, err := db.ListAlbums(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("registered = %d albums, %v", len(all), err)
	}
	if got := rec.final(norm(dir)); got.Status != events.StatusDone {
		t.Errorf("final progress = %+v", got)
	}
	if len(rec.done) != 1 || rec.done[0].Count != 1 {
		t.Errorf("scan:done = %+v", rec.done)
	}
}

func TestScanEmptyFolderRootIsReported(t *testing.T) {
	s, _, _ := setup(t)
	res, err := s.Scan(context.Background(), []string{t.TempDir()}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 1 || res.Items[0].FileCount != 0 {
		t.Errorf("result = %+v, want the empty root reported", res)
	}
}

func TestScanTwiceDoesNotDuplicate(t *testing.T) {
	s, db, rec := setup(t)
	ctx := context.Background()
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.jpg"))

	first, err := s.Scan(ctx, []string{dir}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	second, err := s.Scan(ctx, []string{dir, dir + string(filepath.Separator)}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if second.Count != 0 {
		t.Errorf("pre-registered root was reprocessed: %+v", second)
	}
	if got := rec.final(norm(dir)); got.Status != events.StatusDone {
		t.Errorf("final progress = %+v", got)
	}

	touch(t, filepath.Join(dir, "b.jpg"))
	updated, err := s.Scan(ctx, []string{dir}, Options{Update: true})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Count != 1 || updated.Items[0].FileCount != 2 {
		t.Fatalf("update result = %+v", updated)
	}
	if updated.Items[0].ID != first.Items[0].ID || updated.Items[0].AddedAt != first.Items[0].AddedAt {
		t.Errorf("update changed identity: %+v vs %+v", updated.Items[0], first.Items[0])
	}

	all, _ := db.ListAlbums(ctx)
	if len(all) != 1 {
		t.Errorf("registered %d albums, want 1", len(all))
	}
}

func TestScanRecursive(t *testing.T) {
	s, db, _ := setup(t)
	ctx := context.Background()
	root := t.TempDir()
	touch(t, filepath.Join(root, "top.jpg"))
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(root, "sub", "1.png"))
	touch(t, filepath.Join(root, "sub", "2.png"))
	makeZip(t, filepath.Join(root, "sub", "pack.zip"), "p/1.jpg", "p/2.jpg", "readme.txt")
	makeZip(t, filepath.Join(root, "docs.zip"), "readme.txt")
	touch(t, filepath.Join(root, "bad.zip"))

	res, err := s.Scan(ctx, []string{root}, Options{Recursive: true})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	wantReported := []string{norm(root), norm(root, "sub"), norm(root, "sub", "pack.zip")}
	sort.Strings(wantReported)
	if got := albumPaths(res.Items); !equal(got, wantReported) {
		t.Errorf("reported = %v, want %v", got, wantReported)
	}

	all, err := db.ListAlbums(ctx)
	if err != nil {
		t.Fatal(err)
	}
	wantRegistered := []string{
		norm(root), norm(root, "docs.zip"), norm(root, "empty"), norm(root, "sub"), norm(root, "sub", "pack.zip"),
	}
	sort.Strings(wantRegistered)
	if got := albumPaths(all); !equal(got, wantRegistered) {
		t.Errorf("registered = %v, want %v", got, wantRegistered)
	}

	for _, a := range all {
		switch a.Path {
		case norm(root, "sub"):
			if a.FileCount != 2 {
				t.Errorf("sub file_count = %d", a.FileCount)
			}
		case norm(root, "sub", "pack.zip"):
			if a.Kind != database.KindZip || a.FileCount != 2 || a.Name != "pack" {
				t.Errorf("zip album = %+v", a)
			}
		case norm(root):
			if a.FileCount != 1 {
				t.Errorf("root file_count = %d", a.FileCount)
			}
		}
	}
}

func TestScanRecursiveEmptyRootNotReported(t *testing.T) {
	s, db, _ := setup(t)
	root := t.TempDir()
	res, err := s.Scan(context.Background(), []string{root}, Options{Recursive: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 0 {
		t.Errorf("empty recursive root reported: %+v", res)
	}
	all, _ := db.ListAlbums(context.Background())
	if len(all) != 1 {
		t.Errorf("empty recursive root should still be registered, got %d", len(all))
	}
}

func TestScanRootOutcomes(t *testing.T) {
	s, _, rec := setup(t)
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing")
	text := filepath.Join(dir, "notes.txt")
	touch(t, text)
	corrupt := filepath.Join(dir, "bad.zip")
	touch(t, corrupt)
	good := filepath.Join(dir, "good.zip")
	makeZip(t, good, "a.jpg")
	empty := filepath.Join(dir, "empty.zip")
	makeZip(t, empty, "a.txt")

	res, err := s.Scan(context.Background(), []string{missing, text, corrupt, good, good, empty}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := albumPaths(res.Items); !equal(got, []string{norm(good)}) {
		t.Errorf("reported = %v", got)
	}

	tests := []struct {
		path   string
		status string
		reason string
	}{
		{missing, events.StatusSkip, events.ReasonNotExists},
		{text, events.StatusSkip, events.ReasonUnsupported},
		{corrupt, events.StatusSkip, events.ReasonCorrupt},
		{good, events.StatusDone, events.ReasonDuplicate},
		{empty, events.StatusDone, ""},
	}
	for _, tt := range tests {
		got := rec.final(norm(tt.path))
		if got.Status != tt.status || got.Reason != tt.reason {
			t.Errorf("%s: got %s/%s, want %s/%s", filepath.Base(tt.path), got.Status, got.Reason, tt.status, tt.reason)
		}
	}
	if n := len(rec.progress); n != 12 {
		t.Errorf("got %d progress events, want a start and an outcome per root", n)
	}
}

func TestScanRequiresPaths(t *testing.T) {
	s, _, _ := setup(t)
	if _, err := s.Scan(context.Background(), nil, Options{}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestScanCompleteCallback(t *testing.T) {
	s, _, _ := setup(t)
	var got Result
	s.SetOnScanComplete(func(r Result) { got = r })
	if _, err := s.Scan(context.Background(), []string{t.TempDir()}, Options{}); err != nil {
		t.Fatal(err)
	}
	if got.Count != 1 {
		t.Errorf("callback saw %+v", got)
	}
}

func TestRefresh(t *testing.T) {
	s, db, _ := setup(t)
	ctx := context.Background()
	keep := t.TempDir()
	gone := filepath.Join(t.TempDir(), "gone")
	if err := os.MkdirAll(gone, 0o755); err != nil {
		t.Fatal(err)
	}
	zipPath := filepath.Join(t.TempDir(), "z.zip")
	makeZip(t, zipPath, "a.jpg")

	if _, err := s.Scan(ctx, []string{keep, gone, zipPath}, Options{}); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(gone); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(zipPath); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(zipPath, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := s.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Checked != 3 || res.Removed != 2 || len(res.IDs) != 2 {
		t.Errorf("refresh = %+v", res)
	}
	all, _ := db.ListAlbums(ctx)
	if got := albumPaths(all); !equal(got, []string{norm(keep)}) {
		t.Errorf("remaining = %v", got)
	}

	res, err = s.Refresh(ctx)
	if err != nil || res.Removed != 0 || res.IDs == nil {
		t.Errorf("second refresh = %+v, %v", res, err)
	}
}

func TestWatcherRescansChangedAlbum(t *testing.T) {
	s, db, _ := setup(t)
	ctx := context.Background()
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.jpg"))
	if _, err := s.Scan(ctx, []string{dir}, Options{}); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(s, db, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	touch(t, filepath.Join(dir, "b.jpg"))
	touch(t, filepath.Join(dir, "ignored.txt"))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		a, err := db.GetAlbumByPath(ctx, dir)
		if err == nil && a.FileCount == 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("album was not rescanned after a new image appeared")
}

func TestRelevantEvents(t *testing.T) {
	tests := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{"/a/b.jpg", fsnotify.Create, true},
		{"/a/b.zip", fsnotify.Remove, true},
		{"/a/b.png", fsnotify.Rename, true},
		{"/a/b.jpg", fsnotify.Write, false},
		{"/a/b.jpg", fsnotify.Chmod, false},
		{"/a/.b.jpg", fsnotify.Create, false},
		{"/a/b.txt", fsnotify.Create, false},
	}
	for _, tt := range tests {
		if got := relevant(fsnotify.Event{Name: tt.name, Op: tt.op}); got != tt.want {
			t.Errorf("relevant(%s %s) = %v, want %v", tt.op, tt.name, got, tt.want)
		}
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// failingRepo wraps a database and fails every batch upsert.
type failingRepo struct {
	*database.Database
	calls int
}

var errUpsert = errors.New("disk I/O error")

func (r *failingRepo) UpsertAlbums(context.Context, []database.AlbumUpsert) ([]database.Album, error) {
	r.calls++
	return nil, errUpsert
}

func TestScanFailsWhenBatchUpsertFails(t *testing.T) {
	tests := []struct {
		name string
		dirs int
	}{
		{"final flush", 3},
		{"mid-walk batch", upsertBatchSize + 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, db, rec := setup(t)
			repo := &failingRepo{Database: db}
			lister, err := entries.NewLister(8)
			if err != nil {
				t.Fatal(err)
			}
			s := New(repo, lister, rec)
			called := false
			s.SetOnScanComplete(func(Result) { called = true })

			root := t.TempDir()
			for i := 0; i < tt.dirs; i++ {
				touch(t, filepath.Join(root, "d"+strconv.Itoa(i), "p.jpg"))
			}

			res, err := s.Scan(context.Background(), []string{root}, Options{Recursive: true})
			if !errors.Is(err, errUpsert) {
				t.Fatalf("Scan error = %v, want the upsert failure", err)
			}
			if repo.calls != 1 {
				t.Errorf("UpsertAlbums called %d times, want the walk to stop after the first failure", repo.calls)
			}
			if len(res.Items) != 0 {
				t.Errorf("reported %d albums that were never stored", len(res.Items))
			}
			if called {
				t.Error("completion callback ran for a failed scan")
			}
			if len(rec.done) != 0 {
				t.Errorf("scan:done published for a failed scan: %+v", rec.done)
			}
			if got := rec.final(albumpath.Canonical(root)); got.Status != events.StatusSkip || got.Reason != events.ReasonError {
				t.Errorf("root progress = %+v, want skip/error", got)
			}
		})
	}
}
