// Package albumtree derives the album hierarchy from album paths.
//
// Nothing about the hierarchy is stored. An Index is built from the full
// album list for each query: every album's parent is the nearest registered
// album whose path is a segment-boundary prefix of its own, found with
// albumpath.ResolveParent. Albums whose chain reaches no registered album
// are roots.
package albumtree
