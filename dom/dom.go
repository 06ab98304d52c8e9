// Package dom defines the document capabilities the RDFa extractor needs and
// adapts golang.org/x/net/html trees to them.
package dom

import (
	"io"
	"iter"
	"strings"

	"golang.org/x/net/html"
)

// Kind classifies a node.
type Kind int

// Valid Kind values.
const (
	OtherNode Kind = iota
	ElementNode
	TextNode
	DocumentNode
)

// Node is a node of a document tree.
//
// Implementations must be comparable: two Node values are equal iff they
// denote the same node.
type Node interface {
	Kind() Kind
	// Name returns the lower-case local name of an element, or "".
	Name() string
	// Data returns the text of a text node, or "".
	Data() string
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	// Parent returns nil for the root of the tree.
	Parent() Node
	Children() []Node
}

// IsElement reports whether n is a non-nil element.
func IsElement(n Node) bool { return n != nil && n.Kind() == ElementNode }

// IsText reports whether n is a non-nil text node.
func IsText(n Node) bool { return n != nil && n.Kind() == TextNode }

// HasAttr reports whether n carries the named attribute.
func HasAttr(n Node, name string) bool {
	_, ok := n.Attr(name)
	return ok
}

// Parse parses an HTML document and returns its document node.
func Parse(r io.Reader) (Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return FromHTML(doc), nil
}

// ParseString is like Parse for an in-memory document.
func ParseString(s string) (Node, error) {
	return Parse(strings.NewReader(s))
}

// DocumentElement returns the first element child of a document node, or n
// itself if n is already an element.
func DocumentElement(n Node) Node {
	if n == nil || IsElement(n) {
		return n
	}
	for _, c := range n.Children() {
		if IsElement(c) {
			return c
		}
	}
	return nil
}

// FromHTML wraps an html.Node. A nil node yields a nil Node.
func FromHTML(n *html.Node) Node {
	if n == nil {
		return nil
	}
	return htmlNode{n}
}

// HTML returns the html.Node underlying n, or nil if n was not created by
// FromHTML.
func HTML(n Node) *html.Node {
	if hn, ok := n.(htmlNode); ok {
		return hn.n
	}
	return nil
}

type htmlNode struct {
	n *html.Node
}

func (h htmlNode) Kind() Kind {
	switch h.n.Type {
	case html.ElementNode:
		return ElementNode
	case html.TextNode:
		return TextNode
	case html.DocumentNode:
		return DocumentNode
	}
	return OtherNode
}

func (h htmlNode) Name() string {
	if h.n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(h.n.Data)
}

func (h htmlNode) Data() string {
	if h.n.Type != html.TextNode {
		return ""
	}
	return h.n.Data
}

func (h htmlNode) Attr(name string) (string, bool) {
	for _, attr := range h.n.Attr {
		if attr.Namespace == "" && attr.Key == name {
			return attr.Val, true
		}
	}
	return "", false
}

func (h htmlNode) SetAttr(name, value string) {
	for i, attr := range h.n.Attr {
		if attr.Namespace == "" && attr.Key == name {
			h.n.Attr[i].Val = value
			return
		}
	}
	h.n.Attr = append(h.n.Attr, html.Attribute{Key: name, Val: value})
}

func (h htmlNode) Parent() Node { return FromHTML(h.n.Parent) }

func (h htmlNode) Children() []Node {
	var out []Node
	for c := h.n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, htmlNode{c})
	}
	return out
}

// All yields n and its descendants in document order.
func All(n Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		walk(n, yield)
	}
}

func walk(n Node, yield func(Node) bool) bool {
	if n == nil {
		return true
	}
	if !yield(n) {
		return false
	}
	for _, c := range n.Children() {
		if !walk(c, yield) {
			return false
		}
	}
	return true
}

// Render writes the HTML serialization of n, which must have been created by
// FromHTML.
func Render(w io.Writer, n Node) error {
	return html.Render(w, HTML(n))
}
