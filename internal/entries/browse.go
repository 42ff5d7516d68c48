package entries

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"album-viewer/internal/apperr"
	"album-viewer/internal/database"
	"album-viewer/internal/filesystem"
	"album-viewer/internal/logging"
	"album-viewer/internal/mediatypes"
	"album-viewer/internal/metrics"
	"album-viewer/internal/sorting"
)

// BrowseItem is one entry of a directory listing inside a folder album.
type BrowseItem struct {
	Name    string               `json:"name"`
	RelPath string               `json:"rel_path"`
	Kind    mediatypes.EntryKind `json:"kind"`
}

// BrowseResult is the listing of one directory inside a folder album.
type BrowseResult struct {
	Cwd    string       `json:"cwd"`
	Parent string       `json:"parent"`
	Items  []BrowseItem `json:"items"`
}

// Browse lists the non-hidden sub-folders, zips and images of dir, a path
// relative to the album root, in natural order.
func (l *Lister) Browse(albumRoot, dir string) (*BrowseResult, error) {
	rel := strings.Trim(strings.ReplaceAll(dir, `\`, "/"), "/")
	abs, err := ResolveWithin(albumRoot, rel)
	if err != nil {
		return nil, err
	}
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")

	info, err := filesystem.StatWithRetry(abs, l.retry)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("directory %s: %w", abs, apperr.ErrNotFound)
	}

	ents, err := filesystem.ReadDirWithRetry(abs, l.retry)
	if err != nil {
		logging.Warn("Browsing %s failed, treating as empty: %v", abs, err)
		metrics.EntryListingFailures.WithLabelValues(string(database.KindFolder)).Inc()
		ents = nil
	}

	names := make([]string, 0, len(ents))
	byName := make(map[string]os.DirEntry, len(ents))
	for _, e := range ents {
		if e.Name() == "" || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
		byName[e.Name()] = e
	}
	sorting.Natural(names)

	res := &BrowseResult{Cwd: rel, Items: []BrowseItem{}}
	if rel != "" {
		if parent := path.Dir(rel); parent != "." {
			res.Parent = parent
		}
	}

	for _, name := range names {
		kind := classify(abs, byName[name])
		if kind == mediatypes.EntryOther {
			continue
		}
		res.Items = append(res.Items, BrowseItem{
			Name:    name,
			RelPath: strings.TrimPrefix(path.Join(rel, name), "/"),
			Kind:    kind,
		})
	}
	return res, nil
}

func classify(dir string, e os.DirEntry) mediatypes.EntryKind {
	isDir := e.IsDir()
	if e.Type()&fs.ModeSymlink != 0 {
		if info, err := os.Stat(filepath.Join(dir, e.Name())); err == nil {
			isDir = info.IsDir()
		}
	}
	switch {
	case isDir:
		return mediatypes.EntryFolder
	case mediatypes.IsZipName(e.Name()):
		return mediatypes.EntryZip
	case mediatypes.IsImageName(e.Name()):
		return mediatypes.EntryImage
	default:
		return mediatypes.EntryOther
	}
}
