// Package sorting orders entry names the way people expect to read them,
// comparing embedded digit runs numerically and ignoring case.
package sorting

import (
	"sort"
	"strings"

	"github.com/facette/natsort"
)

// NaturalLess reports whether a sorts before b. Names that differ only in
// case or in leading zeros are ordered by plain string comparison so the
// result is deterministic.
func NaturalLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	ab := natsort.Compare(la, lb)
	ba := natsort.Compare(lb, la)
	if ab != ba {
		return ab
	}
	if la != lb {
		return la < lb
	}
	return a < b
}

// Natural sorts names in place.
func Natural(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return NaturalLess(names[i], names[j])
	})
}

// NaturalBy sorts items in place by the natural order of the key function.
func NaturalBy[T any](items []T, key func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return NaturalLess(key(items[i]), key(items[j]))
	})
}
