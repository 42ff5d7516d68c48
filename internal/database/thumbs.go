package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"album-viewer/internal/apperr"
)

const thumbColumns = `id, album_id, key, file_path, bytes, width, height, created_at, last_access, cover`

func scanThumb(row rowScanner) (ThumbEntry, error) {
	var t ThumbEntry
	err := row.Scan(&t.ID, &t.AlbumID, &t.Key, &t.FilePath, &t.Bytes, &t.Width, &t.Height, &t.CreatedAt, &t.LastAccess, &t.Cover)
	return t, err
}

// GetThumb returns the thumbnail row for (albumID, key).
func (d *Database) GetThumb(ctx context.Context, albumID int64, key string) (*ThumbEntry, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_thumb", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	t, err := scanThumb(d.db.QueryRowContext(ctx,
		`SELECT `+thumbColumns+` FROM thumbs WHERE album_id = ? AND key = ?`, albumID, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("thumbnail %q: %w", key, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TouchThumb sets last_access for (albumID, key) to at (unix milliseconds).
func (d *Database) TouchThumb(ctx context.Context, albumID int64, key string, at int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("touch_thumb", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `UPDATE thumbs SET last_access = ? WHERE album_id = ? AND key = ?`, at, albumID, key)
	return err
}

// UpsertThumb inserts the row or overwrites the existing one for the same
// (album, key). The last writer wins.
func (d *Database) UpsertThumb(ctx context.Context, t ThumbEntry) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_thumb", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO thumbs (album_id, key, file_path, bytes, width, height, created_at, last_access, cover)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(album_id, key) DO UPDATE SET
			file_path = excluded.file_path,
			bytes = excluded.bytes,
			width = excluded.width,
			height = excluded.height,
			created_at = excluded.created_at,
			last_access = excluded.last_access,
			cover = excluded.cover`,
		t.AlbumID, t.Key, t.FilePath, t.Bytes, t.Width, t.Height, t.CreatedAt, t.LastAccess, t.Cover)
	if err != nil && isForeignKeyViolation(err) {
		err = fmt.Errorf("album %d: %w", t.AlbumID, apperr.ErrNotFound)
	}
	return err
}

// SumThumbBytes returns the total recorded size of all thumbnails.
func (d *Database) SumThumbBytes(ctx context.Context) (int64, error) {
	stats, err := d.ThumbStats(ctx)
	return stats.Bytes, err
}

// ThumbStats returns the thumbnail row count and total bytes.
func (d *Database) ThumbStats(ctx context.Context) (ThumbStats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("sum_thumb_bytes", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var s ThumbStats
	err = d.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(bytes), 0) FROM thumbs`).Scan(&s.Count, &s.Bytes)
	return s, err
}

// LeastRecentlyUsedThumbs returns up to limit rows ordered by last_access
// ascending, ties broken by row id.
func (d *Database) LeastRecentlyUsedThumbs(ctx context.Context, limit int) ([]ThumbEntry, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("lru_thumbs", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		`SELECT `+thumbColumns+` FROM thumbs ORDER BY last_access ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ThumbEntry
	for rows.Next() {
		var t ThumbEntry
		if t, err = scanThumb(rows); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	err = rows.Err()
	return out, err
}

// DeleteThumb removes the row for (albumID, key). Deleting a missing row is
// not an error.
func (d *Database) DeleteThumb(ctx context.Context, albumID int64, key string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_thumb", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `DELETE FROM thumbs WHERE album_id = ? AND key = ?`, albumID, key)
	return err
}

func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
