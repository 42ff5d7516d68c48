/*
Package albumpath normalizes album paths and derives the album hierarchy
from path structure alone.

Album rows never store a parent pointer. The parent of an album is the nearest
other registered album whose normalized path is a strict prefix at a segment
boundary, so the hierarchy is recomputed from the current set of paths on
every query and cannot go stale.

# Path forms

All paths are normalized to forward slashes with "." and ".." collapsed and
trailing separators removed. Three prefixes are recognized:

	/srv/photos/2024      POSIX absolute path
	C:/Photos/2024        drive-letter path, "C:/" is kept as the drive root
	//nas/share/2024      UNC path, "//nas" is a single indivisible segment

Key folds case when CaseInsensitive is set so that lookups and the uniqueness
constraint on album paths behave like the host filesystem.
*/
package albumpath
