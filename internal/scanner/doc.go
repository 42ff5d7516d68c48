// Package scanner discovers albums on disk and keeps their records current.
//
// Scan registers the requested roots. A directory root becomes one folder
// album counting the images directly inside it; with recursion every
// directory below it becomes a folder album as well, and every zip archive
// found along the way becomes a zip album. Empty containers found during a
// recursive sweep are still recorded but are left out of the returned item
// list; an explicit non-recursive folder root is always reported.
//
// Paths are deduplicated by albumpath.Key within one call. Unless
// Options.Update is set, albums registered before the call are skipped as
// well, so overlapping roots never reprocess a subtree.
//
// Refresh drops albums whose folder or archive is gone. Watcher rescans
// folder albums whose directory contents change.
package scanner
