package scanner

import (
	"context"
	"fmt"
	"path/filepath"

	"album-viewer/internal/database"
	"album-viewer/internal/filesystem"
	"album-viewer/internal/logging"
	"album-viewer/internal/metrics"
)

// RefreshResult reports which albums Refresh removed.
type RefreshResult struct {
	Checked int     `json:"checked"`
	Removed int     `json:"removed"`
	IDs     []int64 `json:"ids"`
}

// exists reports whether an album's backing path is still the right kind of
// filesystem object.
func exists(a database.Album) bool {
	p := filepath.FromSlash(a.Path)
	if a.Kind == database.KindZip {
		return filesystem.FileExists(p)
	}
	return filesystem.DirExists(p)
}

// Refresh removes albums whose folder or archive no longer exists, together
// with their cached thumbnails.
func (s *Scanner) Refresh(ctx context.Context) (RefreshResult, error) {
	albums, err := s.repo.ListAlbums(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("list albums: %w", err)
	}

	res := RefreshResult{Checked: len(albums), IDs: []int64{}}
	for _, a := range albums {
		if !exists(a) {
			res.IDs = append(res.IDs, a.ID)
		}
	}
	if len(res.IDs) == 0 {
		return res, nil
	}

	files, err := s.repo.DeleteAlbums(ctx, res.IDs)
	if err != nil {
		return RefreshResult{Checked: res.Checked, IDs: []int64{}}, fmt.Errorf("delete vanished albums: %w", err)
	}
	filesystem.RemoveBestEffort("album_delete", files...)

	res.Removed = len(res.IDs)
	metrics.RefreshRemovedTotal.Add(float64(res.Removed))
	logging.Info("Refresh removed %d of %d album(s) whose paths vanished", res.Removed, res.Checked)
	return res, nil
}
