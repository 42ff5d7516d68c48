package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"album-viewer/internal/apperr"
)

// GetSettings returns every stored settings override keyed by name.
func (d *Database) GetSettings(ctx context.Context) (map[string]json.RawMessage, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_settings", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := map[string]json.RawMessage{}
	for rows.Next() {
		var k, v string
		if err = rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = json.RawMessage(v)
	}
	err = rows.Err()
	return out, err
}

// PutSettings upserts the given overrides in one transaction.
func (d *Database) PutSettings(ctx context.Context, values map[string]json.RawMessage) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("put_settings", start, err) }()

	if len(values) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	err = d.withTx(ctx, func(tx *sql.Tx) error {
		for k, v := range values {
			if !json.Valid(v) {
				return fmt.Errorf("setting %s is not valid JSON: %w", k, apperr.ErrInvalidInput)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO settings (key, value) VALUES (?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, string(v)); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}
