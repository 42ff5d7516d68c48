package thumbcache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"album-viewer/internal/apperr"
	"album-viewer/internal/codec"
	"album-viewer/internal/database"
)

// SchemaVersion is appended to every key. Bump it when the rendering
// pipeline changes output for identical parameters.
const SchemaVersion = "v1"

// MaxDimension bounds requested widths and heights.
const MaxDimension = 4096

// Request describes one thumbnail.
type Request struct {
	AlbumID   int64
	Kind      database.AlbumKind
	AlbumPath string
	// Entry is the image inside the album. Empty means AlbumPath itself is
	// the image (a single-file cover).
	Entry string
	// Cover marks a request for the album cover. Its rows are flagged so
	// that changing the cover invalidates them together.
	Cover bool
	// Source identifies the image a cover was resolved from: the entry name
	// for the album's own images, otherwise the descendant or uploaded file.
	// It is part of the key so a different source never hits a stale cover.
	Source  string
	Width   int
	Height  int
	Fit     codec.Fit
	Format  codec.Format
	Quality int
	Crop    *codec.Rect
}

func (r *Request) validate() error {
	if r.Width < 1 || r.Height < 1 || r.Width > MaxDimension || r.Height > MaxDimension {
		return fmt.Errorf("size %dx%d outside 1..%d: %w", r.Width, r.Height, MaxDimension, apperr.ErrInvalidInput)
	}
	if r.Quality < 0 || r.Quality > 100 {
		return fmt.Errorf("quality %d outside 1..100: %w", r.Quality, apperr.ErrInvalidInput)
	}
	if r.Kind == database.KindZip && r.Entry == "" {
		return fmt.Errorf("zip album requires an entry: %w", apperr.ErrInvalidInput)
	}
	if r.Kind != database.KindZip && r.Kind != database.KindFolder {
		return fmt.Errorf("unknown album kind %q: %w", r.Kind, apperr.ErrInvalidInput)
	}
	return nil
}

// Key derives the cache key of a fully resolved request (fit, format and
// quality already defaulted).
func Key(r Request) string {
	label := r.Entry
	switch {
	case r.Cover && r.Source != "":
		label = "cover:" + r.Source
	case r.Cover || label == "":
		label = "cover"
	}
	crop := ""
	if r.Crop != nil {
		crop = fmt.Sprintf("|crop:%.4f,%.4f,%.4f,%.4f", r.Crop.X, r.Crop.Y, r.Crop.W, r.Crop.H)
	}
	return fmt.Sprintf("%d|%s|%d|%d|%s|%s|%d%s|%s",
		r.AlbumID, label, r.Width, r.Height, r.Fit, r.Format, r.Quality, crop, SchemaVersion)
}

// ArtifactPath maps a key to its file under thumbsDir, sharded by two
// levels of two hex characters.
func ArtifactPath(thumbsDir, key string, format codec.Format) string {
	sum := sha1.Sum([]byte(key))
	h := hex.EncodeToString(sum[:])
	return filepath.Join(thumbsDir, h[:2], h[2:4], h+"."+format.Ext())
}
