package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"album-viewer/internal/albumpath"
	"album-viewer/internal/apperr"
)

const albumColumns = `id, type, path, name, mtime, size, file_count, added_at, cover_path, crop`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlbum(row rowScanner) (Album, error) {
	var a Album
	var kind string
	var cover, crop sql.NullString
	if err := row.Scan(&a.ID, &kind, &a.Path, &a.Name, &a.MTime, &a.Size,
		&a.FileCount, &a.AddedAt, &cover, &crop); err != nil {
		return Album{}, err
	}
	a.Kind = AlbumKind(kind)
	if cover.Valid {
		s := cover.String
		a.CoverPath = &s
	}
	if crop.Valid {
		a.Crop = decodeCrop(&crop.String)
	}
	return a, nil
}

func collectAlbums(rows *sql.Rows) ([]Album, error) {
	defer func() { _ = rows.Close() }()
	albums := []Album{}
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

// UpsertAlbums inserts or updates albums keyed by normalized path in a
// single transaction and returns the resulting rows in input order.
func (d *Database) UpsertAlbums(ctx context.Context, items []AlbumUpsert) ([]Album, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_albums", start, err) }()

	if len(items) == 0 {
		return []Album{}, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Album, 0, len(items))
	err = d.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO albums (type, path, path_key, name, mtime, size, file_count, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path_key) DO UPDATE SET
			mtime = excluded.mtime,
			size = excluded.size,
			file_count = excluded.file_count,
			name = excluded.name
		RETURNING `+albumColumns)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		now := time.Now().Unix()
		for _, it := range items {
			path := albumpath.Normalize(it.Path)
			if path == "" {
				return fmt.Errorf("album path is empty: %w", apperr.ErrInvalidInput)
			}
			addedAt := it.AddedAt
			if addedAt == 0 {
				addedAt = now
			}
			a, err := scanAlbum(stmt.QueryRowContext(ctx, string(it.Kind), path, albumpath.Key(path),
				it.Name, it.MTime, it.Size, it.FileCount, addedAt))
			if err != nil {
				return fmt.Errorf("upsert album %s: %w", path, err)
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListAlbums returns every album ordered by id.
func (d *Database) ListAlbums(ctx context.Context) ([]Album, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_albums", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `SELECT `+albumColumns+` FROM albums ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var albums []Album
	albums, err = collectAlbums(rows)
	return albums, err
}

// AlbumKeys returns the lookup keys of every registered album path.
func (d *Database) AlbumKeys(ctx context.Context) (albumpath.Keys, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `SELECT path_key FROM albums`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	keys := albumpath.Keys{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

var sortColumns = map[string]string{
	"name":       "name COLLATE NOCASE",
	"added_at":   "added_at",
	"mtime":      "mtime",
	"size":       "size",
	"file_count": "file_count",
}

// IsSortField reports whether field can be used to order albums.
func IsSortField(field string) bool {
	_, ok := sortColumns[field]
	return ok
}

// PageAlbums returns one page of albums. Page is 1-based, PerPage is clamped
// to [1,200], and Keyword matches names case-insensitively.
func (d *Database) PageAlbums(ctx context.Context, opts PageOptions) (AlbumPage, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("page_albums", start, err) }()

	if opts.SortBy == "" {
		opts.SortBy = "added_at"
	}
	col, ok := sortColumns[opts.SortBy]
	if !ok {
		err = fmt.Errorf("unknown sort field %q: %w", opts.SortBy, apperr.ErrInvalidInput)
		return AlbumPage{}, err
	}
	dir := "DESC"
	switch strings.ToLower(opts.Order) {
	case "", "desc":
	case "asc":
		dir = "ASC"
	default:
		err = fmt.Errorf("unknown sort order %q: %w", opts.Order, apperr.ErrInvalidInput)
		return AlbumPage{}, err
	}
	opts.Page = max(opts.Page, 1)
	opts.PerPage = min(max(opts.PerPage, 1), 200)

	where := ""
	var args []any
	if kw := strings.TrimSpace(opts.Keyword); kw != "" {
		where = `WHERE name LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(kw)+"%")
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	page := AlbumPage{Page: opts.Page, PerPage: opts.PerPage}
	if err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM albums `+where, args...).Scan(&page.Total); err != nil {
		return AlbumPage{}, err
	}

	query := fmt.Sprintf(`SELECT %s FROM albums %s ORDER BY %s %s, id %s LIMIT ? OFFSET ?`,
		albumColumns, where, col, dir, dir)
	rows, err := d.db.QueryContext(ctx, query, append(args, opts.PerPage, (opts.Page-1)*opts.PerPage)...)
	if err != nil {
		return AlbumPage{}, err
	}
	page.Items, err = collectAlbums(rows)
	if err != nil {
		return AlbumPage{}, err
	}
	return page, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// GetAlbum returns the album with the given id.
func (d *Database) GetAlbum(ctx context.Context, id int64) (*Album, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_album", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	a, err := scanAlbum(d.db.QueryRowContext(ctx, `SELECT `+albumColumns+` FROM albums WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("album %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAlbumByPath returns the album registered at path after normalization.
func (d *Database) GetAlbumByPath(ctx context.Context, path string) (*Album, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_album_by_path", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	a, err := scanAlbum(d.db.QueryRowContext(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE path_key = ?`, albumpath.Key(path)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("album at %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAlbums removes the albums and their thumbnail rows in one
// transaction. It returns the artifact paths of the removed thumbnails so
// the caller can delete the files.
func (d *Database) DeleteAlbums(ctx context.Context, ids []int64) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_albums", start, err) }()

	if len(ids) == 0 {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var files []string
	err = d.withTx(ctx, func(tx *sql.Tx) error {
		for _, chunk := range chunkIDs(ids, 500) {
			placeholders, args := inClause(chunk)

			rows, err := tx.QueryContext(ctx, `SELECT file_path FROM thumbs WHERE album_id IN (`+placeholders+`)`, args...)
			if err != nil {
				return err
			}
			for rows.Next() {
				var p string
				if err := rows.Scan(&p); err != nil {
					_ = rows.Close()
					return err
				}
				files = append(files, p)
			}
			if err := rows.Close(); err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx, `DELETE FROM thumbs WHERE album_id IN (`+placeholders+`)`, args...); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM albums WHERE id IN (`+placeholders+`)`, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func chunkIDs(ids []int64, size int) [][]int64 {
	var chunks [][]int64
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}

func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

// SetCover replaces the album's cover pointer (nil clears it) and removes
// its cached cover thumbnails in the same transaction. The removed artifact
// paths are returned for best-effort deletion.
func (d *Database) SetCover(ctx context.Context, id int64, cover *string) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_cover", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	var files []string
	err = d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE albums SET cover_path = ? WHERE id = ?`, cover, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("album %d: %w", id, apperr.ErrNotFound)
		}

		rows, err := tx.QueryContext(ctx,
			`DELETE FROM thumbs WHERE album_id = ? AND cover = 1 RETURNING file_path`, id)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				return err
			}
			files = append(files, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// RecordCoverPointer stores path as the album's cover without touching
// cached thumbnails. It only applies when the album has no cover yet or
// already points at a generated artifact under generatedDir.
func (d *Database) RecordCoverPointer(ctx context.Context, id int64, path, generatedDir string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_cover", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	prefix := strings.TrimSuffix(albumpath.Normalize(generatedDir), "/") + "/"
	_, err = d.db.ExecContext(ctx, `
		UPDATE albums SET cover_path = ?
		WHERE id = ?
		  AND (cover_path IS NULL OR cover_path = '' OR instr(cover_path, ?) = 1)`,
		path, id, prefix)
	return err
}

// SetCrop stores or clears (nil) the album's crop rectangle.
func (d *Database) SetCrop(ctx context.Context, id int64, crop *Crop) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_crop", start, err) }()

	if crop != nil {
		if err = crop.Validate(); err != nil {
			return err
		}
	}
	encoded, err := encodeCrop(crop)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `UPDATE albums SET crop = ? WHERE id = ?`, encoded, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = fmt.Errorf("album %d: %w", id, apperr.ErrNotFound)
	}
	return err
}
