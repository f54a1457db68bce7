package outline

import (
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
)

var md = goldmark.New()

// Parse builds an Index from a goals document. Headings become category
// nodes: a heading of depth d truncates the ancestor stack to d-1 and
// pushes its own text. Lists become item nodes: each item's path is its
// parent path plus its first line, and nested sub-lists recurse with
// the item's path as the new parent and list depth + 1.
//
// Parsing is a pure function of the document text; now is only used to
// stamp Created on every node. Duplicate labels at the same level under
// the same parent collide on path, and the later occurrence wins.
func Parse(src string, now time.Time) Index {
	source := []byte(src)
	doc := md.Parser().Parse(gtext.NewReader(source))

	idx := Index{}
	var stack []string

	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Heading:
			if node.Level-1 < len(stack) {
				stack = stack[:node.Level-1]
			}
			text := firstLine(node, source)
			stack = append(stack, text)
			path := strings.Join(stack, PathSep)
			idx[path] = &Node{
				Path:          path,
				Text:          text,
				CategoryDepth: node.Level,
				Created:       now,
			}
		case *ast.List:
			parseList(idx, strings.Join(stack, PathSep), node, source, len(stack), 1, now)
		}
	}

	return idx
}

func parseList(idx Index, parent string, list *ast.List, src []byte, categoryDepth, listDepth int, now time.Time) {
	for c := list.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}

		text := itemText(item, src)
		path := joinPath(parent, text)
		idx[path] = &Node{
			Path:          path,
			Text:          text,
			CategoryDepth: categoryDepth,
			ListDepth:     listDepth,
			Created:       now,
		}

		// Recurse into the first nested sub-list, if any.
		for ch := item.FirstChild(); ch != nil; ch = ch.NextSibling() {
			if sub, isList := ch.(*ast.List); isList {
				parseList(idx, path, sub, src, categoryDepth, listDepth+1, now)
				break
			}
		}
	}
}

// itemText returns the first line of a list item's own text, trimmed.
// An item whose first child is a nested list (no text of its own) gets
// an empty label; it is still registered.
func itemText(item *ast.ListItem, src []byte) string {
	for ch := item.FirstChild(); ch != nil; ch = ch.NextSibling() {
		if _, isList := ch.(*ast.List); isList {
			return ""
		}
		if s := firstLine(ch, src); s != "" {
			return s
		}
	}
	return ""
}

// firstLine returns the trimmed first source line of a block node.
func firstLine(n ast.Node, src []byte) string {
	lines := n.Lines()
	if lines == nil || lines.Len() == 0 {
		return ""
	}
	seg := lines.At(0)
	return strings.TrimSpace(string(seg.Value(src)))
}

// joinPath joins a parent path and a label, dropping empty parts the
// same way the index drops them: an empty label collapses onto its
// parent's path.
func joinPath(parent, label string) string {
	switch {
	case parent == "":
		return label
	case label == "":
		return parent
	default:
		return parent + PathSep + label
	}
}
