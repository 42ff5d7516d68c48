package database

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"album-viewer/internal/apperr"
	"album-viewer/internal/metrics"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustUpsert(t *testing.T, db *Database, items ...AlbumUpsert) []Album {
	t.Helper()
	albums, err := db.UpsertAlbums(context.Background(), items)
	if err != nil {
		t.Fatalf("UpsertAlbums() error = %v", err)
	}
	return albums
}

func TestNewCreatesSchemaAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "albums.db")
	db, err := New(context.Background(), path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	mustUpsert(t, db, AlbumUpsert{Kind: KindFolder, Path: "/photos/a", Name: "a"})
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = New(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = db.Close() }()

	albums, err := db.ListAlbums(context.Background())
	if err != nil || len(albums) != 1 {
		t.Fatalf("ListAlbums() = %d albums, %v", len(albums), err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	for _, col := range []struct{ table, name string }{{"albums", "crop"}, {"thumbs", "cover"}} {
		var n int
		err := db.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, col.table, col.name).Scan(&n)
		if err != nil || n != 1 {
			t.Errorf("column %s.%s: count %d, err %v", col.table, col.name, n, err)
		}
	}
}

func TestUpsertAlbumsPreservesUserFields(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := mustUpsert(t, db, AlbumUpsert{Kind: KindFolder, Path: "/photos/trip/", Name: "trip", MTime: 10, Size: 100, FileCount: 2, AddedAt: 1000})
	if first[0].Path != "/photos/trip" {
		t.Errorf("Path = %q, want normalized /photos/trip", first[0].Path)
	}

	cover := "p1.jpg"
	if _, err := db.SetCover(ctx, first[0].ID, &cover); err != nil {
		t.Fatal(err)
	}
	if err := db.SetCrop(ctx, first[0].ID, &Crop{X: 0.1, Y: 0.2, W: 0.5, H: 0.5}); err != nil {
		t.Fatal(err)
	}

	second := mustUpsert(t, db, AlbumUpsert{Kind: KindFolder, Path: "/photos/trip", Name: "trip", MTime: 20, Size: 200, FileCount: 3, AddedAt: 2000})
	got := second[0]

	if got.ID != first[0].ID {
		t.Errorf("ID changed on rescan: %d -> %d", first[0].ID, got.ID)
	}
	if got.AddedAt != 1000 {
		t.Errorf("AddedAt = %d, want 1000", got.AddedAt)
	}
	if got.MTime != 20 || got.Size != 200 || got.FileCount != 3 {
		t.Errorf("scan fields not updated: %+v", got)
	}
	if got.CoverPath == nil || *got.CoverPath != "p1.jpg" {
		t.Errorf("CoverPath = %v, want p1.jpg", got.CoverPath)
	}
	if got.Crop == nil || got.Crop.W != 0.5 {
		t.Errorf("Crop = %+v, want preserved", got.Crop)
	}

	all, _ := db.ListAlbums(ctx)
	if len(all) != 1 {
		t.Errorf("rescan duplicated rows: %d albums", len(all))
	}
}

func TestUpsertAlbumsRejectsEmptyPath(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.UpsertAlbums(context.Background(), []AlbumUpsert{
		{Kind: KindFolder, Path: "/ok", Name: "ok"},
		{Kind: KindFolder, Path: "", Name: "bad"},
	})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}

	all, _ := db.ListAlbums(context.Background())
	if len(all) != 0 {
		t.Errorf("partial batch was committed: %d albums", len(all))
	}
}

func TestGetAlbum(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	albums := mustUpsert(t, db, AlbumUpsert{Kind: KindZip, Path: "/a/b.zip", Name: "b"})

	got, err := db.GetAlbum(ctx, albums[0].ID)
	if err != nil || got.Kind != KindZip {
		t.Fatalf("GetAlbum() = %+v, %v", got, err)
	}

	byPath, err := db.GetAlbumByPath(ctx, "/a/./b.zip")
	if err != nil || byPath.ID != albums[0].ID {
		t.Fatalf("GetAlbumByPath() = %+v, %v", byPath, err)
	}

	if _, err := db.GetAlbum(ctx, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetAlbum(999) error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetAlbumByPath(ctx, "/nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetAlbumByPath(/nope) error = %v, want ErrNotFound", err)
	}
}

func TestPageAlbums(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	mustUpsert(t, db,
		AlbumUpsert{Kind: KindFolder, Path: "/x/alpha", Name: "Alpha", AddedAt: 1, FileCount: 5},
		AlbumUpsert{Kind: KindFolder, Path: "/x/beta", Name: "beta", AddedAt: 2, FileCount: 1},
		AlbumUpsert{Kind: KindFolder, Path: "/x/gamma", Name: "Gamma_1", AddedAt: 3, FileCount: 3},
	)

	t.Run("default sort is added_at desc", func(t *testing.T) {
		page, err := db.PageAlbums(ctx, PageOptions{Page: 1, PerPage: 2})
		if err != nil {
			t.Fatal(err)
		}
		if page.Total != 3 || len(page.Items) != 2 || page.Items[0].Name != "Gamma_1" {
			t.Errorf("page = %+v", page)
		}
	})

	t.Run("second page", func(t *testing.T) {
		page, err := db.PageAlbums(ctx, PageOptions{Page: 2, PerPage: 2})
		if err != nil {
			t.Fatal(err)
		}
		if len(page.Items) != 1 || page.Items[0].Name != "Alpha" {
			t.Errorf("page 2 = %+v", page.Items)
		}
	})

	t.Run("keyword is case insensitive", func(t *testing.T) {
		page, err := db.PageAlbums(ctx, PageOptions{Keyword: "ALPH"})
		if err != nil {
			t.Fatal(err)
		}
		if page.Total != 1 || page.Items[0].Name != "Alpha" {
			t.Errorf("keyword page = %+v", page)
		}
	})

	t.Run("underscore is literal", func(t *testing.T) {
		page, err := db.PageAlbums(ctx, PageOptions{Keyword: "a_1"})
		if err != nil {
			t.Fatal(err)
		}
		if page.Total != 1 {
			t.Errorf("Total = %d, want 1", page.Total)
		}
	})

	t.Run("sort by file_count asc", func(t *testing.T) {
		page, err := db.PageAlbums(ctx, PageOptions{SortBy: "file_count", Order: "asc", PerPage: 10})
		if err != nil {
			t.Fatal(err)
		}
		if page.Items[0].Name != "beta" || page.Items[2].Name != "Alpha" {
			t.Errorf("order = %v, %v, %v", page.Items[0].Name, page.Items[1].Name, page.Items[2].Name)
		}
	})

	t.Run("clamps page and per_page", func(t *testing.T) {
		page, err := db.PageAlbums(ctx, PageOptions{Page: -3, PerPage: 9999})
		if err != nil {
			t.Fatal(err)
		}
		if page.Page != 1 || page.PerPage != 200 {
			t.Errorf("Page/PerPage = %d/%d, want 1/200", page.Page, page.PerPage)
		}
	})

	t.Run("unknown sort field", func(t *testing.T) {
		if _, err := db.PageAlbums(ctx, PageOptions{SortBy: "path; DROP TABLE albums"}); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("error = %v, want ErrInvalidInput", err)
		}
	})
}

func addThumb(t *testing.T, db *Database, albumID int64, key string, bytes, lastAccess int64) {
	t.Helper()
	err := db.UpsertThumb(context.Background(), ThumbEntry{
		AlbumID: albumID, Key: key, FilePath: "/cache/" + key, Bytes: bytes,
		Width: 10, Height: 10, CreatedAt: lastAccess, LastAccess: lastAccess,
	})
	if err != nil {
		t.Fatalf("UpsertThumb(%s) error = %v", key, err)
	}
}

func TestDeleteAlbumsCascadesThumbs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	albums := mustUpsert(t, db,
		AlbumUpsert{Kind: KindFolder, Path: "/a", Name: "a"},
		AlbumUpsert{Kind: KindFolder, Path: "/b", Name: "b"},
	)
	addThumb(t, db, albums[0].ID, "k1", 10, 1)
	addThumb(t, db, albums[0].ID, "k2", 10, 2)
	addThumb(t, db, albums[1].ID, "k3", 10, 3)

	files, err := db.DeleteAlbums(ctx, []int64{albums[0].ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("returned %d files, want 2", len(files))
	}

	stats, _ := db.ThumbStats(ctx)
	if stats.Count != 1 {
		t.Errorf("remaining thumbs = %d, want 1", stats.Count)
	}
	if _, err := db.GetAlbum(ctx, albums[0].ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("album still present: %v", err)
	}
}

func TestSetCoverInvalidatesCoverThumbs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	a := mustUpsert(t, db, AlbumUpsert{Kind: KindFolder, Path: "/a", Name: "a"})[0]
	for i, key := range []string{"1|cover:p1.jpg|640|960|cover|webp|75|v1", "1|cover:p3.jpg|640|960|cover|webp|75|v1"} {
		err := db.UpsertThumb(ctx, ThumbEntry{
			AlbumID: a.ID, Key: key, FilePath: "/cache/" + key, Bytes: 10,
			CreatedAt: int64(i), LastAccess: int64(i), Cover: true,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	addThumb(t, db, a.ID, "1|p1.jpg|640|960|cover|webp|75|v1", 10, 3)

	entry := "p2.jpg"
	files, err := db.SetCover(ctx, a.ID, &entry)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("invalidated %d thumbs, want both cover renditions", len(files))
	}

	stats, _ := db.ThumbStats(ctx)
	if stats.Count != 1 {
		t.Errorf("remaining thumbs = %d, want 1", stats.Count)
	}
	if _, err := db.GetThumb(ctx, a.ID, "1|p1.jpg|640|960|cover|webp|75|v1"); err != nil {
		t.Errorf("entry thumbnail was invalidated with the cover: %v", err)
	}

	if _, err := db.SetCover(ctx, 12345, nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("SetCover(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRecordCoverPointer(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	a := mustUpsert(t, db, AlbumUpsert{Kind: KindFolder, Path: "/a", Name: "a"})[0]
	thumbs := "/cache/thumbs"

	if err := db.RecordCoverPointer(ctx, a.ID, "/cache/thumbs/aa/bb/one.webp", thumbs); err != nil {
		t.Fatal(err)
	}
	got, _ := db.GetAlbum(ctx, a.ID)
	if got.CoverPath == nil || *got.CoverPath != "/cache/thumbs/aa/bb/one.webp" {
		t.Fatalf("CoverPath = %v", got.CoverPath)
	}

	if err := db.RecordCoverPointer(ctx, a.ID, "/cache/thumbs/cc/dd/two.webp", thumbs); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetAlbum(ctx, a.ID)
	if *got.CoverPath != "/cache/thumbs/cc/dd/two.webp" {
		t.Errorf("generated pointer not replaced: %v", *got.CoverPath)
	}

	explicit := "p1.jpg"
	if _, err := db.SetCover(ctx, a.ID, &explicit); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordCoverPointer(ctx, a.ID, "/cache/thumbs/ee/ff/three.webp", thumbs); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetAlbum(ctx, a.ID)
	if *got.CoverPath != "p1.jpg" {
		t.Errorf("explicit cover overwritten: %v", *got.CoverPath)
	}
}

func TestRecordCoverPointerNonASCIIDir(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	a := mustUpsert(t, db, AlbumUpsert{Kind: KindFolder, Path: "/a", Name: "a"})[0]
	thumbs := "/données/caché/thumbs"

	for _, p := range []string{"/données/caché/thumbs/aa/bb/one.webp", "/données/caché/thumbs/cc/dd/two.webp"} {
		if err := db.RecordCoverPointer(ctx, a.ID, p, thumbs); err != nil {
			t.Fatal(err)
		}
		got, _ := db.GetAlbum(ctx, a.ID)
		if got.CoverPath == nil || *got.CoverPath != p {
			t.Errorf("CoverPath = %v, want %s", got.CoverPath, p)
		}
	}
}

func TestSetCrop(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	a := mustUpsert(t, db, AlbumUpsert{Kind: KindFolder, Path: "/a", Name: "a"})[0]

	if err := db.SetCrop(ctx, a.ID, &Crop{X: -0.5, Y: 0, W: 2, H: 0.5}); err != nil {
		t.Fatal(err)
	}
	got, _ := db.GetAlbum(ctx, a.ID)
	if got.Crop == nil || got.Crop.X != -0.5 || got.Crop.W != 2 {
		t.Errorf("Crop = %+v, want stored unclamped", got.Crop)
	}

	if err := db.SetCrop(ctx, a.ID, nil); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetAlbum(ctx, a.ID)
	if got.Crop != nil {
		t.Errorf("Crop = %+v, want nil", got.Crop)
	}

	if err := db.SetCrop(ctx, 999, &Crop{W: 1, H: 1}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("SetCrop(missing) error = %v, want ErrNotFound", err)
	}
}

func TestThumbRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	a := mustUpsert(t, db, AlbumUpsert{Kind: KindFolder, Path: "/a", Name: "a"})[0]

	addThumb(t, db, a.ID, "k", 100, 5)
	addThumb(t, db, a.ID, "k", 150, 6)

	got, err := db.GetThumb(ctx, a.ID, "k")
	if err != nil {
		t.Fatal(err)
	}
	if got.Bytes != 150 || got.LastAccess != 6 {
		t.Errorf("upsert did not overwrite: %+v", got)
	}

	if err := db.TouchThumb(ctx, a.ID, "k", 99); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetThumb(ctx, a.ID, "k")
	if got.LastAccess != 99 {
		t.Errorf("LastAccess = %d, want 99", got.LastAccess)
	}

	total, err := db.SumThumbBytes(ctx)
	if err != nil || total != 150 {
		t.Errorf("SumThumbBytes() = %d, %v", total, err)
	}

	if err := db.DeleteThumb(ctx, a.ID, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetThumb(ctx, a.ID, "k"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetThumb after delete error = %v", err)
	}
	if err := db.DeleteThumb(ctx, a.ID, "k"); err != nil {
		t.Errorf("deleting a missing row should not fail: %v", err)
	}

	err = db.UpsertThumb(ctx, ThumbEntry{AlbumID: 4242, Key: "x", FilePath: "/x"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("UpsertThumb for missing album error = %v, want ErrNotFound", err)
	}
}

func TestLeastRecentlyUsedThumbs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	a := mustUpsert(t, db, AlbumUpsert{Kind: KindFolder, Path: "/a", Name: "a"})[0]

	addThumb(t, db, a.ID, "newest", 1, 30)
	addThumb(t, db, a.ID, "tie-first", 1, 10)
	addThumb(t, db, a.ID, "tie-second", 1, 10)
	addThumb(t, db, a.ID, "middle", 1, 20)

	got, err := db.LeastRecentlyUsedThumbs(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"tie-first", "tie-second", "middle"}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Key != want[i] {
			t.Errorf("row %d = %s, want %s", i, got[i].Key, want[i])
		}
	}
}

func TestSettings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.PutSettings(ctx, map[string]json.RawMessage{
		"defaultQuality": json.RawMessage(`80`),
		"encodeFormat":   json.RawMessage(`"jpeg"`),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.PutSettings(ctx, map[string]json.RawMessage{"defaultQuality": json.RawMessage(`90`)}); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(got["defaultQuality"]) != "90" || string(got["encodeFormat"]) != `"jpeg"` {
		t.Errorf("settings = %v", got)
	}

	bad := map[string]json.RawMessage{"x": json.RawMessage(`{nope`)}
	if err := db.PutSettings(ctx, bad); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("invalid JSON error = %v, want ErrInvalidInput", err)
	}
}

func TestGetStats(t *testing.T) {
	db := setupTestDB(t)
	albums := mustUpsert(t, db,
		AlbumUpsert{Kind: KindFolder, Path: "/a", Name: "a"},
		AlbumUpsert{Kind: KindZip, Path: "/a/b.zip", Name: "b"},
		AlbumUpsert{Kind: KindZip, Path: "/a/c.zip", Name: "c"},
	)
	addThumb(t, db, albums[0].ID, "k", 64, 1)

	var _ metrics.StatsProvider = db
	stats := db.GetStats()
	if stats.FolderAlbums != 1 || stats.ZipAlbums != 2 {
		t.Errorf("album counts = %d/%d, want 1/2", stats.FolderAlbums, stats.ZipAlbums)
	}
	if stats.ThumbCount != 1 || stats.ThumbBytes != 64 {
		t.Errorf("thumb stats = %d/%d, want 1/64", stats.ThumbCount, stats.ThumbBytes)
	}
}

func TestRecordQuery(t *testing.T) {
	recordQuery("get_album", time.Now(), nil)
	recordQuery("get_album", time.Now(), errors.New("boom"))
}
