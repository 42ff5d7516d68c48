// Package handlers provides the HTTP API of the album viewer.
//
// It includes handlers for:
//   - Scanning, refreshing, listing, browsing and deleting albums
//   - Album covers, cover crops and entry thumbnails
//   - Thumbnail cache cleanup and statistics
//   - Runtime settings
//   - The websocket event stream
//   - Health, version and Prometheus metrics endpoints
//
// Errors from the library are mapped to status codes with
// apperr.HTTPStatus and returned as {"error": "..."} bodies.
package handlers
