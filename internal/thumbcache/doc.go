// Package thumbcache produces resized previews of album images and keeps
// them in a content-addressed on-disk cache backed by the thumbs table.
//
// Every request is reduced to a key (see Key) that changes whenever any
// parameter affecting the output pixels changes. The artifact lives at
// <dir>/thumbs/<h[0:2]>/<h[2:4]>/<h>.<ext> where h is the SHA-1 of the key.
// A hit re-checks that the artifact still exists and only bumps
// last_access. A miss reads the source entry under the I/O limiter,
// decodes, crops, resizes and encodes under the decode limiter, and
// publishes the artifact with a temp-file rename before recording the row.
//
// EnforceBudget trims the cache back under a byte budget in strict LRU
// order. Eviction passes are serialized; generations keep running while one
// is in progress.
package thumbcache
