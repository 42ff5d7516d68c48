package library

import (
	"context"
	"fmt"
	"strings"

	"album-viewer/internal/albumpath"
	"album-viewer/internal/albumtree"
	"album-viewer/internal/apperr"
	"album-viewer/internal/database"
	"album-viewer/internal/entries"
	"album-viewer/internal/filesystem"
	"album-viewer/internal/logging"
)

// Listing scopes.
const (
	ScopePage     = "page"
	ScopeChildren = "children"
	ScopeTree     = "tree"
)

// Entry page sizes.
const (
	DefaultEntriesPerPage = 48
	MaxEntriesPerPage     = 500
)

// ListOptions selects albums for List.
type ListOptions struct {
	Scope      string
	Page       int
	PerPage    int
	SortBy     string
	Order      string
	Keyword    string
	ParentPath string
}

// TreeResult is the response of the tree scope.
type TreeResult struct {
	Items []*albumtree.Node `json:"items"`
}

// DeleteResult lists the albums removed by Delete.
type DeleteResult struct {
	IDs []int64 `json:"ids"`
}

// List returns albums in one of three shapes: a database.AlbumPage for the
// page scope, an albumtree.ChildrenResult for children and a TreeResult
// for tree.
func (s *Service) List(ctx context.Context, opts ListOptions) (any, error) {
	switch strings.ToLower(opts.Scope) {
	case "", ScopePage:
		return s.db.PageAlbums(ctx, database.PageOptions{
			Page:    opts.Page,
			PerPage: opts.PerPage,
			SortBy:  opts.SortBy,
			Order:   opts.Order,
			Keyword: opts.Keyword,
		})
	case ScopeChildren:
		ix, err := s.index(ctx)
		if err != nil {
			return nil, err
		}
		return ix.Children(opts.ParentPath, albumtree.ChildrenOptions{
			SortBy:  opts.SortBy,
			Order:   opts.Order,
			Keyword: opts.Keyword,
		})
	case ScopeTree:
		ix, err := s.index(ctx)
		if err != nil {
			return nil, err
		}
		nodes, err := ix.Tree(opts.ParentPath, opts.Keyword)
		if err != nil {
			return nil, err
		}
		return TreeResult{Items: nodes}, nil
	default:
		return nil, fmt.Errorf("unknown scope %q: %w", opts.Scope, apperr.ErrInvalidInput)
	}
}

func (s *Service) index(ctx context.Context) (*albumtree.Index, error) {
	albums, err := s.db.ListAlbums(ctx)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	return albumtree.NewIndex(albums), nil
}

// Get returns one album.
func (s *Service) Get(ctx context.Context, id int64) (*database.Album, error) {
	return s.db.GetAlbum(ctx, id)
}

// GetByPath returns the album registered at path.
func (s *Service) GetByPath(ctx context.Context, path string) (*database.Album, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required: %w", apperr.ErrInvalidInput)
	}
	return s.db.GetAlbumByPath(ctx, path)
}

// Delete removes an album and its thumbnails. Deleting a folder album also
// deletes every album registered below it. Cached files and uploaded covers
// of the removed albums are deleted best-effort.
func (s *Service) Delete(ctx context.Context, id int64) (DeleteResult, error) {
	target, err := s.db.GetAlbum(ctx, id)
	if err != nil {
		return DeleteResult{}, err
	}

	doomed := []database.Album{*target}
	if target.Kind == database.KindFolder {
		all, err := s.db.ListAlbums(ctx)
		if err != nil {
			return DeleteResult{}, fmt.Errorf("list albums: %w", err)
		}
		for _, a := range all {
			if a.ID != target.ID && albumpath.IsDescendant(a.Path, target.Path) {
				doomed = append(doomed, a)
			}
		}
	}

	ids := make([]int64, len(doomed))
	for i, a := range doomed {
		ids[i] = a.ID
	}
	files, err := s.db.DeleteAlbums(ctx, ids)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete albums: %w", err)
	}

	for _, a := range doomed {
		if p, ok := s.uploadedCover(a); ok {
			files = append(files, p)
		}
	}
	removed := filesystem.RemoveBestEffort("album_delete", files...)
	logging.Info("Deleted %d album(s) under %s, removed %d cached file(s)", len(ids), target.Path, removed)
	return DeleteResult{IDs: ids}, nil
}

// Entries returns one page of the album's images. perPage defaults to
// DefaultEntriesPerPage and is clamped to [1, MaxEntriesPerPage].
func (s *Service) Entries(ctx context.Context, id int64, page, perPage int) (entries.Page, error) {
	a, err := s.db.GetAlbum(ctx, id)
	if err != nil {
		return entries.Page{}, err
	}
	if perPage == 0 {
		perPage = DefaultEntriesPerPage
	}
	perPage = min(max(perPage, 1), MaxEntriesPerPage)
	return entries.Paginate(s.lister.ListImages(a.Kind, a.Path), page, perPage), nil
}

// Browse lists a directory inside a folder album.
func (s *Service) Browse(ctx context.Context, id int64, dir string) (*entries.BrowseResult, error) {
	a, err := s.db.GetAlbum(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Kind != database.KindFolder {
		return nil, fmt.Errorf("browse is only supported for folder albums: %w", apperr.ErrInvalidInput)
	}
	return s.lister.Browse(a.Path, dir)
}
