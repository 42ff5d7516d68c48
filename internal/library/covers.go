package library

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"album-viewer/internal/albumpath"
	"album-viewer/internal/apperr"
	"album-viewer/internal/codec"
	"album-viewer/internal/database"
	"album-viewer/internal/filesystem"
	"album-viewer/internal/logging"
	"album-viewer/internal/mediatypes"
	"album-viewer/internal/thumbcache"
)

// MaxCoverUploadBytes bounds an uploaded cover image.
const MaxCoverUploadBytes = 50 << 20

// Cover kinds accepted by SetCover.
const (
	CoverDefault  = "default"
	CoverInternal = "internal"
	CoverExternal = "external"
)

// CoverChange describes a new album cover.
type CoverChange struct {
	Type string
	// Entry is the image inside the album for CoverInternal.
	Entry string
	// Filename and Data carry the upload for CoverExternal.
	Filename string
	Data     io.Reader
}

// CoverResult reports the stored cover pointer.
type CoverResult struct {
	OK          bool    `json:"ok"`
	CoverPath   *string `json:"cover_path"`
	Invalidated int     `json:"invalidated"`
}

// ThumbnailRequest asks for a thumbnail of one entry of an album.
type ThumbnailRequest struct {
	AlbumID int64
	Entry   string
	Width   int
	Height  int
	Fit     codec.Fit
	Format  codec.Format
	Quality int
}

// uploadedCover returns the album's cover when it is a file we stored under
// the covers directory.
func (s *Service) uploadedCover(a database.Album) (string, bool) {
	if a.CoverPath == nil || s.coversDir == "" {
		return "", false
	}
	if !albumpath.IsDescendant(*a.CoverPath, s.coversDir) {
		return "", false
	}
	return *a.CoverPath, true
}

// Cover renders the album cover.
func (s *Service) Cover(ctx context.Context, id int64, cr thumbcache.CoverRequest) (thumbcache.Result, error) {
	a, err := s.db.GetAlbum(ctx, id)
	if err != nil {
		return thumbcache.Result{}, err
	}
	return s.cache.Cover(ctx, *a, cr)
}

// Thumbnail renders one entry of an album.
func (s *Service) Thumbnail(ctx context.Context, r ThumbnailRequest) (thumbcache.Result, error) {
	if strings.TrimSpace(r.Entry) == "" {
		return thumbcache.Result{}, fmt.Errorf("entry_path is required: %w", apperr.ErrInvalidInput)
	}
	a, err := s.db.GetAlbum(ctx, r.AlbumID)
	if err != nil {
		return thumbcache.Result{}, err
	}
	return s.cache.GetOrCreate(ctx, thumbcache.Request{
		AlbumID:   a.ID,
		Kind:      a.Kind,
		AlbumPath: a.Path,
		Entry:     r.Entry,
		Width:     r.Width,
		Height:    r.Height,
		Fit:       r.Fit,
		Format:    r.Format,
		Quality:   r.Quality,
	})
}

// SetCover replaces the album cover and drops its cached cover thumbnails.
func (s *Service) SetCover(ctx context.Context, id int64, change CoverChange) (CoverResult, error) {
	a, err := s.db.GetAlbum(ctx, id)
	if err != nil {
		return CoverResult{}, err
	}

	var cover *string
	switch change.Type {
	case CoverDefault:
	case CoverInternal:
		if change.Entry == "" {
			return CoverResult{}, fmt.Errorf("entry_path required for internal cover: %w", apperr.ErrInvalidInput)
		}
		if !slices.Contains(s.lister.ListImages(a.Kind, a.Path), change.Entry) {
			return CoverResult{}, fmt.Errorf("entry %q in album %d: %w", change.Entry, id, apperr.ErrNotFound)
		}
		entry := change.Entry
		cover = &entry
	case CoverExternal:
		p, err := s.storeUpload(change)
		if err != nil {
			return CoverResult{}, err
		}
		cover = &p
	default:
		return CoverResult{}, fmt.Errorf("unknown cover type %q: %w", change.Type, apperr.ErrInvalidInput)
	}

	files, err := s.db.SetCover(ctx, id, cover)
	if err != nil {
		if change.Type == CoverExternal {
			filesystem.RemoveBestEffort("cover_reset", *cover)
		}
		return CoverResult{}, err
	}

	if old, ok := s.uploadedCover(*a); ok && (cover == nil || *cover != old) {
		files = append(files, old)
	}
	filesystem.RemoveBestEffort("cover_reset", files...)
	logging.Debug("Cover of album %d set to %s, %d cached cover(s) dropped", id, change.Type, len(files))
	return CoverResult{OK: true, CoverPath: cover, Invalidated: len(files)}, nil
}

// storeUpload writes an uploaded cover under the covers directory with a
// fresh unique name and returns its absolute path.
func (s *Service) storeUpload(change CoverChange) (string, error) {
	if change.Data == nil {
		return "", fmt.Errorf("file required for external cover: %w", apperr.ErrInvalidInput)
	}
	if !mediatypes.IsImageName(change.Filename) {
		return "", fmt.Errorf("cover upload %q is not an image: %w", change.Filename, apperr.ErrInvalidInput)
	}
	if s.coversDir == "" {
		return "", fmt.Errorf("no covers directory configured")
	}

	data, err := io.ReadAll(io.LimitReader(change.Data, MaxCoverUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("read cover upload: %w", err)
	}
	if len(data) > MaxCoverUploadBytes {
		return "", fmt.Errorf("cover upload exceeds %d bytes: %w", MaxCoverUploadBytes, apperr.ErrInvalidInput)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("cover upload is empty: %w", apperr.ErrInvalidInput)
	}

	dest := filepath.Join(s.coversDir, uuid.NewString()+strings.ToLower(filepath.Ext(change.Filename)))
	if err := filesystem.AtomicWrite(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("store cover upload: %w", err)
	}
	return dest, nil
}

// SetCrop stores the album's cover crop rectangle. Components must be
// finite; values outside [0,1] are kept and clamped when rendering.
func (s *Service) SetCrop(ctx context.Context, id int64, crop database.Crop) error {
	return s.db.SetCrop(ctx, id, &crop)
}
