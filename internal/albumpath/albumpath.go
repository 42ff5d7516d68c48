package albumpath

import (
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// CaseInsensitive controls whether Key folds case. It defaults to the
// behavior of the host platform's default filesystem.
var CaseInsensitive = runtime.GOOS == "windows" || runtime.GOOS == "darwin"

// Normalize converts p to the canonical form used for display and identity.
// It is purely lexical and idempotent.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" {
		return ""
	}

	if host, rest, ok := splitUNC(p); ok {
		cleaned := path.Clean("/" + rest)
		if cleaned == "/" {
			return "//" + host
		}
		return "//" + host + cleaned
	}

	if drive, rest, ok := splitDrive(p); ok {
		return drive + path.Clean("/"+rest)
	}

	cleaned := path.Clean(p)
	if cleaned == "." {
		return ""
	}
	return cleaned
}

// Canonical makes p absolute against the working directory and normalizes it.
func Canonical(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return Normalize(p)
	}
	return Normalize(abs)
}

// Key returns the lookup key for p.
func Key(p string) string {
	n := Normalize(p)
	if CaseInsensitive {
		return strings.ToLower(n)
	}
	return n
}

// splitUNC reports whether p starts with exactly two slashes followed by a
// host name, returning the host and the remainder after it.
func splitUNC(p string) (host, rest string, ok bool) {
	if !strings.HasPrefix(p, "//") || len(p) < 3 || p[2] == '/' {
		return "", "", false
	}
	body := p[2:]
	if i := strings.IndexByte(body, '/'); i >= 0 {
		return body[:i], body[i:], true
	}
	return body, "", true
}

func splitDrive(p string) (drive, rest string, ok bool) {
	if len(p) < 2 || p[1] != ':' {
		return "", "", false
	}
	c := p[0]
	if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
		return "", "", false
	}
	return p[:2], p[2:], true
}

func isDriveRoot(p string) bool {
	drive, rest, ok := splitDrive(p)
	return ok && drive != "" && rest == "/"
}

// Segments splits a normalized path into its components. A leading "/" or a
// drive root is kept as the first segment so that joining the segments
// reproduces the path.
func Segments(p string) []string {
	n := Normalize(p)
	if n == "" {
		return nil
	}

	if host, rest, ok := splitUNC(n); ok {
		segs := []string{"//" + host}
		return append(segs, splitNonEmpty(rest)...)
	}

	if drive, rest, ok := splitDrive(n); ok {
		segs := []string{drive + "/"}
		return append(segs, splitNonEmpty(rest)...)
	}

	if strings.HasPrefix(n, "/") {
		segs := []string{"/"}
		return append(segs, splitNonEmpty(n)...)
	}
	return splitNonEmpty(n)
}

func splitNonEmpty(s string) []string {
	parts := strings.Split(s, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func join(segs []string) string {
	if len(segs) == 0 {
		return ""
	}
	head := segs[0]
	rest := strings.Join(segs[1:], "/")
	switch {
	case rest == "":
		return head
	case strings.HasSuffix(head, "/"):
		return head + rest
	default:
		return head + "/" + rest
	}
}

// ParentOf returns p with its last segment removed. It reports false when
// p is a root: a bare "/", a drive root, a UNC host, or a single relative
// segment. Children of a filesystem root are roots of the album hierarchy
// as well, since their parent path is only the root itself.
func ParentOf(p string) (string, bool) {
	segs := Segments(p)
	if len(segs) <= 1 {
		return "", false
	}
	parent := join(segs[:len(segs)-1])
	if parent == "" || parent == "/" || isDriveRoot(parent) {
		return "", false
	}
	return parent, true
}

// KeySet reports whether a lookup key is registered.
type KeySet interface {
	Has(key string) bool
}

// Keys is a KeySet backed by a map.
type Keys map[string]struct{}

// NewKeys builds a Keys set from paths.
func NewKeys(paths ...string) Keys {
	k := make(Keys, len(paths))
	for _, p := range paths {
		k.Add(p)
	}
	return k
}

// Add registers p.
func (k Keys) Add(p string) { k[Key(p)] = struct{}{} }

// Has implements KeySet.
func (k Keys) Has(key string) bool {
	_, ok := k[key]
	return ok
}

// ResolveParent walks ParentOf from p until it reaches a path whose key is in
// index. Intermediate directories that were never registered are skipped.
func ResolveParent(p string, index KeySet) (string, bool) {
	cur := Normalize(p)
	for {
		parent, ok := ParentOf(cur)
		if !ok {
			return "", false
		}
		if index.Has(Key(parent)) {
			return parent, true
		}
		cur = parent
	}
}

// Ancestors returns the registered ancestors of p ordered from the root to
// the immediate parent.
func Ancestors(p string, index KeySet) []string {
	var chain []string
	seen := map[string]bool{Key(p): true}
	cur := p
	for {
		parent, ok := ResolveParent(cur, index)
		if !ok {
			break
		}
		k := Key(parent)
		if seen[k] {
			break
		}
		seen[k] = true
		chain = append(chain, parent)
		cur = parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// IsDescendant reports whether child lies strictly below parent.
func IsDescendant(child, parent string) bool {
	ck, pk := Key(child), Key(parent)
	if ck == pk || pk == "" {
		return false
	}
	if !strings.HasSuffix(pk, "/") {
		pk += "/"
	}
	return strings.HasPrefix(ck, pk)
}
