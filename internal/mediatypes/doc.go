// Package mediatypes holds the dependency-free definitions shared by the
// scanner, the entry lister and the HTTP layer: which file names count as
// images or archives, their MIME types, and the kinds of items returned when
// browsing a folder.
//
//	if mediatypes.IsImageName(entry) {
//	    // counted in file_count and listed as an album entry
//	}
package mediatypes
