package entries

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"album-viewer/internal/apperr"
	"album-viewer/internal/database"
	"album-viewer/internal/filesystem"
	"album-viewer/internal/logging"
	"album-viewer/internal/mediatypes"
	"album-viewer/internal/metrics"
	"album-viewer/internal/sorting"
)

// DefaultZipCacheSize is the number of zip listings kept when the caller
// does not configure one.
const DefaultZipCacheSize = 256

type zipKey struct {
	path  string
	mtime int64
	size  int64
}

// Lister enumerates and opens the image entries of albums. Zip member
// listings are cached by (path, mtime, size) so repeated pages of the same
// archive do not re-read its central directory.
type Lister struct {
	zipCache *lru.Cache[zipKey, []string]
	retry    filesystem.RetryConfig
}

// NewLister creates a Lister caching up to zipCacheSize archive listings.
func NewLister(zipCacheSize int) (*Lister, error) {
	if zipCacheSize <= 0 {
		zipCacheSize = DefaultZipCacheSize
	}
	cache, err := lru.New[zipKey, []string](zipCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create zip listing cache: %w", err)
	}
	return &Lister{zipCache: cache, retry: filesystem.DefaultRetryConfig()}, nil
}

// ListImages returns the naturally sorted image entries of an album: direct
// children for folders, member names for zips. Any failure to read the
// album degrades to an empty list.
func (l *Lister) ListImages(kind database.AlbumKind, albumPath string) []string {
	var (
		images []string
		err    error
	)
	switch kind {
	case database.KindZip:
		images, err = l.ZipImages(albumPath)
	default:
		images, err = l.FolderImages(albumPath)
	}
	if err != nil {
		logging.Warn("Listing entries of %s album %s failed, treating as empty: %v", kind, albumPath, err)
		metrics.EntryListingFailures.WithLabelValues(string(kind)).Inc()
		return []string{}
	}
	return images
}

// FirstEntry returns the first image entry of an album in natural order.
func (l *Lister) FirstEntry(kind database.AlbumKind, albumPath string) (string, bool) {
	images := l.ListImages(kind, albumPath)
	if len(images) == 0 {
		return "", false
	}
	return images[0], true
}

// FolderImages lists image files directly inside dir.
func (l *Lister) FolderImages(dir string) ([]string, error) {
	ents, err := filesystem.ReadDirWithRetry(dir, l.retry)
	if err != nil {
		return nil, err
	}
	images := []string{}
	for _, e := range ents {
		if e.IsDir() || !mediatypes.IsImageName(e.Name()) {
			continue
		}
		images = append(images, e.Name())
	}
	sorting.Natural(images)
	return images, nil
}

// ZipImages lists the image members of a zip archive. An archive that cannot
// be opened yields an error matching apperr.ErrCorruptArchive.
func (l *Lister) ZipImages(zipPath string) ([]string, error) {
	info, err := filesystem.StatWithRetry(zipPath, l.retry)
	if err != nil {
		return nil, err
	}
	key := zipKey{path: zipPath, mtime: info.ModTime().UnixNano(), size: info.Size()}
	if cached, ok := l.zipCache.Get(key); ok {
		metrics.ZipListingCacheTotal.WithLabelValues("hit").Inc()
		return append([]string(nil), cached...), nil
	}
	metrics.ZipListingCacheTotal.WithLabelValues("miss").Inc()

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("open %s: %v: %w", zipPath, err, apperr.ErrCorruptArchive)
	}
	defer func() { _ = zr.Close() }()

	images := []string{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !mediatypes.IsImageName(f.Name) {
			continue
		}
		images = append(images, f.Name)
	}
	sorting.Natural(images)

	l.zipCache.Add(key, images)
	return append([]string(nil), images...), nil
}

// ReadEntry returns the bytes of one image of an album. For folders, entry
// is relative to the album directory; an empty entry reads albumPath itself
// (a single-file cover). For zips, entry is a member name.
func (l *Lister) ReadEntry(kind database.AlbumKind, albumPath, entry string) ([]byte, error) {
	if kind == database.KindZip {
		return readZipMember(albumPath, entry)
	}

	target := albumPath
	if entry != "" {
		var err error
		if target, err = ResolveWithin(albumPath, entry); err != nil {
			return nil, err
		}
	}

	data, err := filesystem.ReadFileWithRetry(target, l.retry)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("entry %s: %w", target, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return data, nil
}

func readZipMember(zipPath, entry string) ([]byte, error) {
	if entry == "" {
		return nil, fmt.Errorf("zip album requires an entry: %w", apperr.ErrInvalidInput)
	}

	zr, err := zip.OpenReader(zipPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("archive %s: %w", zipPath, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", zipPath, err, apperr.ErrCorruptArchive)
	}
	defer func() { _ = zr.Close() }()

	for _, f := range zr.File {
		if f.Name != entry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open member %s: %v: %w", entry, err, apperr.ErrCorruptArchive)
		}
		defer func() { _ = rc.Close() }()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read member %s: %v: %w", entry, err, apperr.ErrCorruptArchive)
		}
		return data, nil
	}
	return nil, fmt.Errorf("member %s of %s: %w", entry, zipPath, apperr.ErrNotFound)
}

// ResolveWithin joins rel onto root and rejects results that escape root.
func ResolveWithin(root, rel string) (string, error) {
	rel = strings.TrimLeft(strings.ReplaceAll(rel, `\`, "/"), "/")
	cleaned := path.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("path %q escapes album: %w", rel, apperr.ErrInvalidInput)
	}
	if cleaned == "." {
		return root, nil
	}
	return filepath.Join(root, filepath.FromSlash(cleaned)), nil
}

// Page is one page of an album's entries.
type Page struct {
	Total   int      `json:"total"`
	Items   []string `json:"items"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
}

// Paginate slices images into 1-based pages. Out-of-range pages are empty;
// page and perPage below one are raised to one.
func Paginate(images []string, page, perPage int) Page {
	page = max(page, 1)
	perPage = max(perPage, 1)
	p := Page{Total: len(images), Items: []string{}, Page: page, PerPage: perPage}

	offset := (page - 1) * perPage
	if offset >= len(images) {
		return p
	}
	end := min(offset+perPage, len(images))
	p.Items = append(p.Items, images[offset:end]...)
	return p
}
