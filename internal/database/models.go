package database

import (
	"encoding/json"
	"fmt"
	"math"

	"album-viewer/internal/apperr"
)

// AlbumKind distinguishes folder albums from zip albums.
type AlbumKind string

const (
	KindFolder AlbumKind = "folder"
	KindZip    AlbumKind = "zip"
)

// Crop is a rectangle in normalized [0,1] coordinates. Values outside the
// range are stored as given and clamped when a thumbnail is generated.
type Crop struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Validate rejects rectangles with non-finite components.
func (c Crop) Validate() error {
	for _, v := range []float64{c.X, c.Y, c.W, c.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("crop components must be finite numbers: %w", apperr.ErrInvalidInput)
		}
	}
	return nil
}

// Album is a registered folder or zip archive.
type Album struct {
	ID        int64     `json:"id"`
	Kind      AlbumKind `json:"type"`
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	MTime     int64     `json:"mtime"`
	Size      int64     `json:"size"`
	FileCount int       `json:"file_count"`
	AddedAt   int64     `json:"added_at"`
	CoverPath *string   `json:"cover_path"`
	Crop      *Crop     `json:"crop"`
}

// AlbumUpsert carries the scanner-owned fields of an album. Identity is the
// normalized path; AddedAt, CoverPath and Crop survive rescans.
type AlbumUpsert struct {
	Kind      AlbumKind
	Path      string
	Name      string
	MTime     int64
	Size      int64
	FileCount int
	AddedAt   int64
}

// ThumbEntry is the metadata row of one cached thumbnail. Timestamps are
// unix milliseconds so that access order is preserved within a second.
type ThumbEntry struct {
	ID         int64  `json:"id"`
	AlbumID    int64  `json:"album_id"`
	Key        string `json:"key"`
	FilePath   string `json:"file_path"`
	Bytes      int64  `json:"bytes"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	CreatedAt  int64  `json:"created_at"`
	LastAccess int64  `json:"last_access"`
	// Cover marks artifacts rendered for the album cover; they are dropped
	// when the cover changes.
	Cover bool `json:"cover"`
}

// ThumbStats summarizes the thumbnail table.
type ThumbStats struct {
	Count int64 `json:"count"`
	Bytes int64 `json:"bytes"`
}

// PageOptions selects one page of albums.
type PageOptions struct {
	Page    int
	PerPage int
	SortBy  string
	Order   string
	Keyword string
}

// AlbumPage is one page of albums plus the total match count.
type AlbumPage struct {
	Total   int     `json:"total"`
	Items   []Album `json:"items"`
	Page    int     `json:"page"`
	PerPage int     `json:"per_page"`
}

func encodeCrop(c *Crop) (any, error) {
	if c == nil {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeCrop(s *string) *Crop {
	if s == nil || *s == "" {
		return nil
	}
	var c Crop
	if err := json.Unmarshal([]byte(*s), &c); err != nil {
		return nil
	}
	return &c
}
