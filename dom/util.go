package dom

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotText is returned by PreviousTextNode for a node that is not an
// attached text node.
var ErrNotText = errors.New("node must be a text node with a parent")

// TextNodes returns the text nodes under n in document order. A text node
// yields itself. Only element children are descended into.
func TextNodes(n Node) []Node {
	if n == nil {
		return nil
	}
	if IsText(n) {
		return []Node{n}
	}
	var out []Node
	for _, c := range n.Children() {
		switch c.Kind() {
		case TextNode:
			out = append(out, c)
		case ElementNode:
			out = append(out, TextNodes(c)...)
		}
	}
	return out
}

// Descendants returns all nodes below n in pre-order, excluding n.
func Descendants(n Node) []Node {
	var out []Node
	for d := range All(n) {
		if d != n {
			out = append(out, d)
		}
	}
	return out
}

// Contains reports whether other is n or a descendant of n.
func Contains(n, other Node) bool {
	for cur := other; cur != nil; cur = cur.Parent() {
		if cur == n {
			return true
		}
	}
	return false
}

// CommonAncestor returns the lowest node containing both start and end, or
// nil when they share no node below the document.
func CommonAncestor(start, end Node) Node {
	if start == nil || end == nil || end.Kind() == DocumentNode {
		return nil
	}
	if Contains(end, start) {
		return end
	}
	for cur := start; cur != nil && cur.Kind() != DocumentNode; cur = cur.Parent() {
		if Contains(cur, end) {
			return cur
		}
	}
	return nil
}

// PreviousTextNode returns the text node preceding text among the text nodes
// of scope, or nil if text is the first one.
func PreviousTextNode(text, scope Node) (Node, error) {
	if !IsText(text) || text.Parent() == nil {
		return nil, ErrNotText
	}
	nodes := TextNodes(scope)
	for i, n := range nodes {
		if n == text {
			if i == 0 {
				return nil, nil
			}
			return nodes[i-1], nil
		}
	}
	return nil, nil
}

// ElementXPath returns an absolute XPath for an element. Steps use the id
// attribute when present and otherwise the 1-based position among same-named
// siblings. It returns "" for a nil or non-element node.
func ElementXPath(n Node) string {
	var segs []string
	for cur := n; IsElement(cur); cur = cur.Parent() {
		if id, ok := cur.Attr("id"); ok {
			segs = append(segs, fmt.Sprintf(`%s[@id=%q]`, cur.Name(), id))
			continue
		}
		segs = append(segs, fmt.Sprintf("%s[%d]", cur.Name(), siblingPosition(cur)))
	}
	if len(segs) == 0 {
		return ""
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return "/" + strings.Join(segs, "/")
}

func siblingPosition(n Node) int {
	parent := n.Parent()
	if parent == nil {
		return 1
	}
	pos := 1
	for _, sib := range parent.Children() {
		if sib == n {
			break
		}
		if IsElement(sib) && sib.Name() == n.Name() {
			pos++
		}
	}
	return pos
}

// Ignored style and marker attribute set by SetIgnored.
const (
	IgnoreStyle     = "user-select: none; cursor: not-allowed"
	IgnoreAttribute = "data-rdfa-ignore"
)

// SetIgnored marks an element as not selectable by appending IgnoreStyle to its
// style attribute and setting IgnoreAttribute. Marking twice is a no-op.
func SetIgnored(n Node) {
	if !IsElement(n) || HasAttr(n, IgnoreAttribute) {
		return
	}
	style, _ := n.Attr("style")
	style = strings.TrimSpace(style)
	if style != "" && !strings.HasSuffix(style, ";") {
		style += ";"
	}
	if style != "" {
		style += " "
	}
	n.SetAttr("style", style+IgnoreStyle+";")
	n.SetAttr(IgnoreAttribute, "true")
}

// IsIgnored reports whether SetIgnored has marked n.
func IsIgnored(n Node) bool {
	return IsElement(n) && HasAttr(n, IgnoreAttribute)
}
