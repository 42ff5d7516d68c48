package albumtree

import (
	"fmt"
	"sort"
	"strings"

	"album-viewer/internal/albumpath"
	"album-viewer/internal/apperr"
	"album-viewer/internal/database"
)

// Node is one album in the forest.
type Node struct {
	Album    database.Album `json:"album"`
	Path     string         `json:"path"`
	Children []*Node        `json:"children"`
}

// Build assembles the whole forest. Siblings are ordered by case-folded
// normalized path at every level.
func (ix *Index) Build() []*Node {
	roots, _ := ix.build()
	return roots
}

func (ix *Index) build() ([]*Node, []*Node) {
	nodes := make([]*Node, len(ix.albums))
	for i, a := range ix.albums {
		nodes[i] = &Node{Album: a, Path: ix.paths[i], Children: []*Node{}}
	}
	roots := []*Node{}
	for i, n := range nodes {
		if p := ix.parent[i]; p >= 0 {
			nodes[p].Children = append(nodes[p].Children, n)
		} else {
			roots = append(roots, n)
		}
	}
	sortBranch(roots)
	return roots, nodes
}

func sortBranch(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return strings.ToLower(nodes[i].Path) < strings.ToLower(nodes[j].Path)
	})
	for _, n := range nodes {
		sortBranch(n.Children)
	}
}

// Tree returns the forest, or the subtree rooted at parentPath when it is
// set, pruned by keyword when that is set.
func (ix *Index) Tree(parentPath, keyword string) ([]*Node, error) {
	roots, nodes := ix.build()
	if strings.TrimSpace(parentPath) != "" {
		i, ok := ix.byKey[albumpath.Key(parentPath)]
		if !ok {
			return nil, fmt.Errorf("album %s: %w", parentPath, apperr.ErrNotFound)
		}
		roots = []*Node{nodes[i]}
	}
	if keyword != "" {
		roots = Filter(roots, keyword)
	}
	return roots, nil
}

// Filter keeps nodes whose name or path contains keyword (case-insensitive)
// together with every ancestor of such a node. The input is not modified.
func Filter(nodes []*Node, keyword string) []*Node {
	needle := strings.ToLower(keyword)
	out := []*Node{}
	for _, n := range nodes {
		if f := filterNode(n, needle); f != nil {
			out = append(out, f)
		}
	}
	return out
}

func filterNode(n *Node, needle string) *Node {
	match := strings.Contains(strings.ToLower(n.Album.Name), needle) ||
		strings.Contains(strings.ToLower(n.Album.Path), needle)

	children := []*Node{}
	for _, c := range n.Children {
		if f := filterNode(c, needle); f != nil {
			children = append(children, f)
			match = true
		}
	}
	if !match {
		return nil
	}
	return &Node{Album: n.Album, Path: n.Path, Children: children}
}
