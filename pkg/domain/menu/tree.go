// Package menu builds the navigation tree of reports from their paths.
package menu

import (
	"sort"
	"strings"

	"github.com/queryex/api/pkg/domain/report"
)

// Node is one position in the menu. A node can hold children and a report at
// the same time: a folder that is itself runnable.
type Node struct {
	Name     string
	FullPath string
	Children []*Node
	Report   *report.Definition

	byName map[string]*Node
}

// IsFolder reports whether the node has children.
func (n *Node) IsFolder() bool {
	return len(n.Children) > 0
}

// IsReport reports whether a report is attached to the node.
func (n *Node) IsReport() bool {
	return n.Report != nil
}

func (n *Node) child(name string) *Node {
	if c, ok := n.byName[name]; ok {
		return c
	}
	full := name
	if n.FullPath != "" {
		full = n.FullPath + report.SegmentDelimiter + name
	}
	c := &Node{Name: name, FullPath: full}
	if n.byName == nil {
		n.byName = make(map[string]*Node)
	}
	n.byName[name] = c
	n.Children = append(n.Children, c)
	return c
}

// Tree is the built menu.
type Tree struct {
	root Node
}

// Roots returns the top-level nodes in sorted-path order.
func (t *Tree) Roots() []*Node {
	return t.root.Children
}

// Build sorts the reports by their stored path and files each one under its
// path segments, creating folders as needed. The report is attached to the
// node of its last segment even when that node already exists as a folder.
// Reports with a blank path are left out.
func Build(defs []*report.Definition) *Tree {
	sorted := make([]*report.Definition, 0, len(defs))
	for _, d := range defs {
		if d != nil && d.HasPath() {
			sorted = append(sorted, d)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RawPath() < sorted[j].RawPath()
	})

	t := &Tree{}
	for _, d := range sorted {
		n := &t.root
		for _, seg := range d.Path() {
			n = n.child(strings.TrimSpace(seg))
		}
		n.Report = d
	}
	return t
}
