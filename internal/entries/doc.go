// Package entries enumerates and reads the images that make up an album.
//
// A folder album's entries are the image files directly inside it. A zip
// album's entries are the image members of the archive, named by their full
// member path. Both lists are ordered with sorting.Natural.
//
// Listing never fails loudly: an unreadable folder or corrupt archive is
// logged and counted, then treated as an album with no images. Reading a
// single entry does surface errors, mapped onto the apperr sentinels.
//
// Browse walks the directory tree inside a folder album for the viewer's
// file navigator. Paths supplied by clients are resolved with ResolveWithin,
// which refuses anything that climbs out of the album root.
package entries
