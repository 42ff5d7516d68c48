// Package library exposes the album operations used by the HTTP handlers and
// the albumctl command: scanning, listing in page, children and tree
// scopes, lookup and cascading deletion, entry paging and browsing, cover
// and crop management, thumbnails, cache maintenance and runtime settings.
package library
