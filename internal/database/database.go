package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"album-viewer/internal/logging"
	"album-viewer/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database is the album and thumbnail repository backed by SQLite.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New opens (creating if needed) the database file at dbPath and applies the
// schema. The parent directory must exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// busy_timeout helps prevent "database is locked" errors under concurrent writers
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on&_temp_store=MEMORY", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS albums (
		id INTEGER PRIMARY KEY,
		type TEXT NOT NULL CHECK(type IN ('zip', 'folder')),
		path TEXT NOT NULL,
		path_key TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		mtime INTEGER NOT NULL,
		size INTEGER NOT NULL,
		file_count INTEGER NOT NULL,
		added_at INTEGER NOT NULL,
		cover_path TEXT NULL,
		crop TEXT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_albums_added_at ON albums(added_at);
	CREATE INDEX IF NOT EXISTS idx_albums_name ON albums(name COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS thumbs (
		id INTEGER PRIMARY KEY,
		album_id INTEGER NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
		key TEXT NOT NULL,
		file_path TEXT NOT NULL,
		bytes INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		last_access INTEGER NOT NULL,
		cover INTEGER NOT NULL DEFAULT 0,
		UNIQUE(album_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_thumbs_last_access ON thumbs(last_access, id);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	start := time.Now()
	_, err := d.db.ExecContext(ctx, schema)
	recordQuery("initialize_schema", start, err)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping verifies the database is reachable.
func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return d.db.PingContext(ctx)
}

// withTx runs fn in a transaction that commits when fn returns nil and rolls
// back otherwise. Callers must hold d.mu.
func (d *Database) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	return tx.Commit()
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// GetStats implements metrics.StatsProvider.
func (d *Database) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	d.mu.RLock()
	defer d.mu.RUnlock()

	var stats metrics.Stats
	rows, err := d.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM albums GROUP BY type`)
	if err != nil {
		logging.Warn("Failed to collect album counts: %v", err)
		return stats
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			logging.Warn("Failed to scan album count: %v", err)
			return stats
		}
		switch AlbumKind(kind) {
		case KindFolder:
			stats.FolderAlbums = n
		case KindZip:
			stats.ZipAlbums = n
		}
	}

	if err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(bytes), 0) FROM thumbs`,
	).Scan(&stats.ThumbCount, &stats.ThumbBytes); err != nil {
		logging.Warn("Failed to collect thumbnail totals: %v", err)
	}

	stats.OpenConns = d.db.Stats().OpenConnections
	return stats
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}
	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	for _, p := range []string{dbPath, dbPath + "-wal"} {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", p, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("Database file %s is read-only! Mode: %v", p, info.Mode())
		}
	}

	return nil
}
