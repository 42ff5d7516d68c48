package albumtree

import (
	"fmt"
	"sort"
	"strings"

	"album-viewer/internal/albumpath"
	"album-viewer/internal/apperr"
	"album-viewer/internal/database"
)

// Index is an arena of albums plus the derived parent relation.
type Index struct {
	albums []database.Album
	paths  []string
	keys   []string
	byKey  map[string]int
	parent []int
}

// NewIndex builds the index in one pass over albums.
func NewIndex(albums []database.Album) *Index {
	ix := &Index{
		albums: albums,
		paths:  make([]string, len(albums)),
		keys:   make([]string, len(albums)),
		byKey:  make(map[string]int, len(albums)),
		parent: make([]int, len(albums)),
	}
	for i, a := range albums {
		ix.paths[i] = albumpath.Normalize(a.Path)
		ix.keys[i] = albumpath.Key(a.Path)
		ix.byKey[ix.keys[i]] = i
	}
	for i := range albums {
		ix.parent[i] = -1
		if p, ok := albumpath.ResolveParent(ix.paths[i], ix); ok {
			ix.parent[i] = ix.byKey[albumpath.Key(p)]
		}
	}
	return ix
}

// Has implements albumpath.KeySet.
func (ix *Index) Has(key string) bool {
	_, ok := ix.byKey[key]
	return ok
}

// Len returns the number of albums in the index.
func (ix *Index) Len() int {
	return len(ix.albums)
}

// Lookup finds the album registered at path.
func (ix *Index) Lookup(path string) (database.Album, bool) {
	i, ok := ix.byKey[albumpath.Key(path)]
	if !ok {
		return database.Album{}, false
	}
	return ix.albums[i], true
}

// Parent returns the nearest registered ancestor of the album at path.
func (ix *Index) Parent(path string) (database.Album, bool) {
	i, ok := ix.byKey[albumpath.Key(path)]
	if !ok || ix.parent[i] < 0 {
		return database.Album{}, false
	}
	return ix.albums[ix.parent[i]], true
}

// Ancestors returns the registered ancestors of path ordered from the root
// down to the immediate parent.
func (ix *Index) Ancestors(path string) []database.Album {
	chain := albumpath.Ancestors(albumpath.Normalize(path), ix)
	out := make([]database.Album, 0, len(chain))
	for _, p := range chain {
		out = append(out, ix.albums[ix.byKey[albumpath.Key(p)]])
	}
	return out
}

// ChildrenOptions controls Children.
type ChildrenOptions struct {
	SortBy  string
	Order   string
	Keyword string
}

// ChildrenResult is one level of the hierarchy.
type ChildrenResult struct {
	Items     []database.Album `json:"items"`
	Total     int              `json:"total"`
	Page      int              `json:"page"`
	PerPage   int              `json:"per_page"`
	Parent    *database.Album  `json:"parent"`
	Ancestors []database.Album `json:"ancestors"`
}

// Children lists the direct children of parentPath, or the roots when
// parentPath is empty. Keyword matching is a case-insensitive substring test
// on name or path.
func (ix *Index) Children(parentPath string, opts ChildrenOptions) (ChildrenResult, error) {
	sortBy, desc, err := sortSpec(opts.SortBy, opts.Order)
	if err != nil {
		return ChildrenResult{}, err
	}

	res := ChildrenResult{Items: []database.Album{}, Ancestors: []database.Album{}, Page: 1}
	want := -1
	if strings.TrimSpace(parentPath) != "" {
		i, ok := ix.byKey[albumpath.Key(parentPath)]
		if !ok {
			return ChildrenResult{}, fmt.Errorf("album %s: %w", parentPath, apperr.ErrNotFound)
		}
		want = i
		parent := ix.albums[i]
		res.Parent = &parent
		res.Ancestors = ix.Ancestors(ix.paths[i])
	}

	needle := strings.ToLower(opts.Keyword)
	for i, a := range ix.albums {
		if ix.parent[i] != want {
			continue
		}
		if needle != "" && !ix.matches(i, needle) {
			continue
		}
		res.Items = append(res.Items, a)
	}
	sortAlbums(res.Items, sortBy, desc)

	res.Total = len(res.Items)
	res.PerPage = len(res.Items)
	return res, nil
}

func (ix *Index) matches(i int, needle string) bool {
	return strings.Contains(strings.ToLower(ix.albums[i].Name), needle) ||
		strings.Contains(strings.ToLower(ix.paths[i]), needle)
}

func sortSpec(sortBy, order string) (string, bool, error) {
	if sortBy == "" {
		sortBy = "added_at"
	}
	if !database.IsSortField(sortBy) {
		return "", false, fmt.Errorf("unknown sort field %q: %w", sortBy, apperr.ErrInvalidInput)
	}
	switch strings.ToLower(order) {
	case "", "desc":
		return sortBy, true, nil
	case "asc":
		return sortBy, false, nil
	}
	return "", false, fmt.Errorf("unknown order %q: %w", order, apperr.ErrInvalidInput)
}

func fieldValue(a database.Album, field string) int64 {
	switch field {
	case "mtime":
		return a.MTime
	case "size":
		return a.Size
	case "file_count":
		return int64(a.FileCount)
	default:
		return a.AddedAt
	}
}

// sortAlbums orders by (field, name, id), reversing the whole tuple for
// descending order.
func sortAlbums(albums []database.Album, field string, desc bool) {
	less := func(a, b database.Album) bool {
		if field == "name" {
			if c := strings.Compare(a.Name, b.Name); c != 0 {
				return c < 0
			}
		} else if va, vb := fieldValue(a, field), fieldValue(b, field); va != vb {
			return va < vb
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	}
	sort.SliceStable(albums, func(i, j int) bool {
		if desc {
			return less(albums[j], albums[i])
		}
		return less(albums[i], albums[j])
	})
}
