// Package outline parses a user's goals document — a markdown outline of
// "#" category headings and "-" action items — into a path-addressed index.
// Paths encode ancestry, so the index needs no parent pointers.
package outline

import (
	"sort"
	"strings"
	"time"
)

// PathSep joins ancestor labels into a node path. It is not permitted
// inside labels; labels containing it would garble ancestry.
const PathSep = "|"

// Node is a single addressable entry in a goals document.
// A node with ListDepth == 0 is a category (heading); only nodes with
// ListDepth > 0 are actionable items.
type Node struct {
	Path          string     `json:"path"`
	Text          string     `json:"text"`
	CategoryDepth int        `json:"categoryDepth"`
	ListDepth     int        `json:"listDepth,omitempty"`
	DoneAt        *time.Time `json:"doneAt,omitempty"`
	LastUsedAt    *time.Time `json:"lastUsedAt,omitempty"`
	RRule         string     `json:"rrule,omitempty"`
	Created       time.Time  `json:"created"`
}

// IsItem reports whether the node is an actionable item rather than a
// category heading.
func (n *Node) IsItem() bool { return n.ListDepth > 0 }

// Index maps node path to node. It is rebuilt in full on every document
// save; entries for removed text are simply absent from the new map.
type Index map[string]*Node

// ParentPath strips the last path segment. Returns "" for top-level paths.
func ParentPath(path string) string {
	i := strings.LastIndex(path, PathSep)
	if i < 0 {
		return ""
	}
	return path[:i]
}

// NearestRule walks from path up through successive parent paths and
// returns the first non-empty recurrence rule found, or "" if none.
func (idx Index) NearestRule(path string) string {
	for p := path; p != ""; p = ParentPath(p) {
		if n, ok := idx[p]; ok && n.RRule != "" {
			return n.RRule
		}
	}
	return ""
}

// Paths returns all node paths in lexical order.
func (idx Index) Paths() []string {
	paths := make([]string, 0, len(idx))
	for p := range idx {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Items returns all actionable item nodes in lexical path order.
func (idx Index) Items() []*Node {
	var items []*Node
	for _, p := range idx.Paths() {
		if n := idx[p]; n.IsItem() {
			items = append(items, n)
		}
	}
	return items
}

// CarryOver copies per-node state (done/last-used timestamps and resolved
// rules) from a previous index for paths that survived a re-parse. The
// document save path calls this so editing unrelated text does not reset
// scheduling state.
func (idx Index) CarryOver(prev Index) {
	if prev == nil {
		return
	}
	for path, n := range idx {
		old, ok := prev[path]
		if !ok {
			continue
		}
		n.DoneAt = old.DoneAt
		n.LastUsedAt = old.LastUsedAt
		if old.RRule != "" {
			n.RRule = old.RRule
		}
	}
}
