/*
Package filesystem wraps the filesystem operations used by the scanner, the
entry lister and the thumbnail cache.

# Stale file handles

Album roots frequently live on NFS shares. StatWithRetry, OpenWithRetry,
ReadDirWithRetry and ReadFileWithRetry retry ESTALE failures with exponential
backoff and fail immediately for every other error:

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

The defaults are three retries starting at 50ms and capped at 500ms. Retry
metrics are labeled with a volume name resolved by VolumeResolver.

# Atomic publish

AtomicWrite writes to a temporary file in the destination directory and
renames it into place, so concurrent readers never see a partially written
thumbnail or cover upload. Two writers racing for the same path both succeed
and the last rename wins.

# Best-effort removal

RemoveBestEffort is used where a metadata row has already been deleted and
the backing file is no longer reachable through the cache. Missing files are
ignored and other failures are logged and counted rather than returned.
*/
package filesystem
