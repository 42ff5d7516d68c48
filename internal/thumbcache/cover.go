package thumbcache

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"album-viewer/internal/albumpath"
	"album-viewer/internal/apperr"
	"album-viewer/internal/codec"
	"album-viewer/internal/database"
	"album-viewer/internal/filesystem"
	"album-viewer/internal/logging"
)

// CoverRequest asks for the cover of an album at a given size.
type CoverRequest struct {
	Width   int
	Height  int
	Fit     codec.Fit
	Format  codec.Format
	Quality int
}

// coverSource is the image a cover is rendered from.
type coverSource struct {
	kind  database.AlbumKind
	path  string
	entry string
}

// id names the source in cover keys. Entries of the album itself are named
// by entry, anything else by its normalized path.
func (s coverSource) id(a database.Album) string {
	if s.entry == "" {
		return albumpath.Normalize(s.path)
	}
	if albumpath.Key(s.path) == albumpath.Key(a.Path) {
		return s.entry
	}
	return albumpath.Normalize(s.path) + "/" + s.entry
}

// isGenerated reports whether p points at one of our own artifacts.
func (c *Cache) isGenerated(p string) bool {
	return albumpath.IsDescendant(albumpath.Normalize(p), albumpath.Normalize(c.thumbsDir))
}

// externalCover returns the album's uploaded cover file, if it has one that
// still exists.
func (c *Cache) externalCover(a database.Album) (string, bool) {
	if a.CoverPath == nil || *a.CoverPath == "" || c.isGenerated(*a.CoverPath) {
		return "", false
	}
	p := *a.CoverPath
	if !filepath.IsAbs(p) || !filesystem.FileExists(p) {
		return "", false
	}
	return p, true
}

// explicitCover reports whether the album carries a user-chosen cover.
func (c *Cache) explicitCover(a database.Album) bool {
	return a.CoverPath != nil && *a.CoverPath != "" && !c.isGenerated(*a.CoverPath)
}

// resolveCover picks the image a cover is rendered from: an uploaded file,
// then a chosen internal entry, then the album's first image, then for
// folders the first image of the most recently modified descendant album.
func (c *Cache) resolveCover(ctx context.Context, a database.Album) (coverSource, error) {
	if p, ok := c.externalCover(a); ok {
		return coverSource{kind: database.KindFolder, path: p}, nil
	}
	if c.explicitCover(a) && !filepath.IsAbs(*a.CoverPath) {
		return coverSource{kind: a.Kind, path: a.Path, entry: *a.CoverPath}, nil
	}
	if entry, ok := c.source.FirstEntry(a.Kind, a.Path); ok {
		return coverSource{kind: a.Kind, path: a.Path, entry: entry}, nil
	}
	if a.Kind != database.KindFolder {
		return coverSource{}, fmt.Errorf("album %d: %w", a.ID, apperr.ErrNoImages)
	}

	all, err := c.repo.ListAlbums(ctx)
	if err != nil {
		return coverSource{}, fmt.Errorf("list albums: %w", err)
	}
	var descendants []database.Album
	for _, d := range all {
		if d.ID != a.ID && albumpath.IsDescendant(d.Path, a.Path) {
			descendants = append(descendants, d)
		}
	}
	sort.SliceStable(descendants, func(i, j int) bool {
		if descendants[i].MTime != descendants[j].MTime {
			return descendants[i].MTime > descendants[j].MTime
		}
		return strings.Compare(albumpath.Key(descendants[i].Path), albumpath.Key(descendants[j].Path)) < 0
	})

	for _, d := range descendants {
		if p, ok := c.externalCover(d); ok {
			return coverSource{kind: database.KindFolder, path: p}, nil
		}
		if entry, ok := c.source.FirstEntry(d.Kind, d.Path); ok {
			logging.Debug("Album %d has no images, using %s from descendant %d", a.ID, entry, d.ID)
			return coverSource{kind: d.Kind, path: d.Path, entry: entry}, nil
		}
	}
	return coverSource{}, fmt.Errorf("album %d and its descendants: %w", a.ID, apperr.ErrNoImages)
}

// Cover renders the album cover, applying the album crop. When the album has
// no user-chosen cover the generated artifact is recorded as its cover
// pointer.
func (c *Cache) Cover(ctx context.Context, a database.Album, cr CoverRequest) (Result, error) {
	src, err := c.resolveCover(ctx, a)
	if err != nil {
		return Result{}, err
	}

	req := Request{
		AlbumID:   a.ID,
		Kind:      src.kind,
		AlbumPath: src.path,
		Entry:     src.entry,
		Cover:     true,
		Source:    src.id(a),
		Width:     cr.Width,
		Height:    cr.Height,
		Fit:       cr.Fit,
		Format:    cr.Format,
		Quality:   cr.Quality,
	}
	if a.Crop != nil {
		req.Crop = &codec.Rect{X: a.Crop.X, Y: a.Crop.Y, W: a.Crop.W, H: a.Crop.H}
	}

	res, err := c.GetOrCreate(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if !c.explicitCover(a) && (a.CoverPath == nil || *a.CoverPath != res.FilePath) {
		if err := c.repo.RecordCoverPointer(ctx, a.ID, res.FilePath, c.thumbsDir); err != nil {
			logging.Warn("Failed to record cover pointer for album %d: %v", a.ID, err)
		}
	}
	return res, nil
}
