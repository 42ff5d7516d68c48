// Package database provides the SQLite-backed album and thumbnail
// repository.
//
// It stores:
//   - Albums, unique by case-folded normalized path (the path_key column)
//   - Thumbnail metadata rows, unique per (album, key), cascading on album deletion
//   - Runtime settings overrides as JSON values
//
// The database runs in WAL mode with foreign keys enforced. Every multi-row
// mutation runs in one transaction, so readers never observe a partially
// applied scan batch, deletion or cover change.
package database
