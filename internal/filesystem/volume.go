package filesystem

import (
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
)

// unknownVolume labels paths outside every configured volume, which for
// this server means album roots.
const unknownVolume = "unknown"

// VolumeResolver maps file paths to volume names for metric labels using
// the longest matching directory prefix.
type VolumeResolver struct {
	mounts []volumeMount // longest path first
}

type volumeMount struct {
	prefix string // absolute, with a trailing separator
	name   string
}

// NewVolumeResolver creates a resolver from volume names to directories:
//
//	NewVolumeResolver(map[string]string{
//	    "cache":    "/var/lib/albums/cache",
//	    "database": "/var/lib/albums",
//	})
//
// Empty directories are ignored.
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	mounts := make([]volumeMount, 0, len(volumes))
	for name, dir := range volumes {
		if dir == "" {
			continue
		}
		mounts = append(mounts, volumeMount{prefix: withSeparator(absOrSelf(dir)), name: name})
	}
	slices.SortFunc(mounts, func(a, b volumeMount) int {
		return len(b.prefix) - len(a.prefix)
	})
	return &VolumeResolver{mounts: mounts}
}

// Resolve returns the volume holding path, or "unknown".
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return unknownVolume
	}
	p := withSeparator(absOrSelf(path))
	for _, m := range vr.mounts {
		if strings.HasPrefix(p, m.prefix) {
			return m.name
		}
	}
	return unknownVolume
}

func absOrSelf(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func withSeparator(p string) string {
	if strings.HasSuffix(p, string(filepath.Separator)) {
		return p
	}
	return p + string(filepath.Separator)
}

var defaultResolver atomic.Pointer[VolumeResolver]

// SetDefaultVolumeResolver sets the resolver used when a RetryConfig does
// not carry its own.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver.Store(vr)
}
