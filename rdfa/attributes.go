package rdfa

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/google/rdfahier/dom"
	"github.com/google/rdfahier/rdf/iri"
)

// Attributes holds the RDFa attributes of one element. A nil field means the
// attribute is absent.
type Attributes struct {
	About    *string
	Resource *string
	Vocab    *string
	Prefix   *string
	Property *string
	Typeof   *string
}

// ReadAttributes reads the recognized RDFa attributes of n. Non-element nodes
// have none.
func ReadAttributes(n dom.Node) Attributes {
	if !dom.IsElement(n) {
		return Attributes{}
	}
	get := func(name string) *string {
		if v, ok := n.Attr(name); ok {
			return &v
		}
		return nil
	}
	return Attributes{
		About:    get("about"),
		Resource: get("resource"),
		Vocab:    get("vocab"),
		Prefix:   get("prefix"),
		Property: get("property"),
		Typeof:   get("typeof"),
	}
}

// HasAttributes reports whether n carries any RDFa attribute.
func HasAttributes(n dom.Node) bool {
	a := ReadAttributes(n)
	return a.About != nil || a.Resource != nil || a.Vocab != nil ||
		a.Prefix != nil || a.Property != nil || a.Typeof != nil
}

// HasResourceAttribute reports whether n carries an about or resource
// attribute.
func HasResourceAttribute(n dom.Node) bool {
	a := ReadAttributes(n)
	return a.About != nil || a.Resource != nil
}

// HasTypeAttribute reports whether n carries a typeof attribute.
func HasTypeAttribute(n dom.Node) bool { return ReadAttributes(n).Typeof != nil }

// HasPrefixAttribute reports whether n carries a prefix attribute.
func HasPrefixAttribute(n dom.Node) bool { return ReadAttributes(n).Prefix != nil }

// HasVocabAttribute reports whether n carries a vocab attribute.
func HasVocabAttribute(n dom.Node) bool { return ReadAttributes(n).Vocab != nil }

// HasPropertyAttribute reports whether n carries a property attribute.
func HasPropertyAttribute(n dom.Node) bool { return ReadAttributes(n).Property != nil }

// ResourceIdentifier returns the about attribute of n, or its resource
// attribute when about is absent.
func ResourceIdentifier(n dom.Node) (iri.IRI, error) {
	a := ReadAttributes(n)
	v := a.About
	if v == nil {
		v = a.Resource
	}
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", ErrMissingResourceIdentifier
	}
	return iri.IRI(strings.TrimSpace(*v)), nil
}

// Kind classifies an element by the RDFa attributes it carries.
type Kind int

// Valid Kind values.
const (
	// KindPlain elements carry no resource identifier.
	KindPlain Kind = iota
	// KindContainer elements carry an identifier but no type.
	KindContainer
	// KindResource elements carry an identifier and a type.
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindContainer:
		return "container"
	case KindResource:
		return "resource"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Classify returns the kind of n. Non-element nodes are KindPlain.
func Classify(n dom.Node) Kind {
	switch {
	case !HasResourceAttribute(n):
		return KindPlain
	case HasTypeAttribute(n):
		return KindResource
	}
	return KindContainer
}

// IsContainer reports whether n carries a resource identifier.
func IsContainer(n dom.Node) bool { return HasResourceAttribute(n) }

// Container returns the nearest element, starting at n itself, that carries a
// resource identifier, or nil if there is none.
func Container(n dom.Node) dom.Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		if dom.IsElement(cur) && IsContainer(cur) {
			return cur
		}
	}
	return nil
}

// TopLevelResources returns the containers below root, root included, that
// have no container ancestor, in document order.
func TopLevelResources(root dom.Node) []dom.Node {
	var out []dom.Node
	var walk func(dom.Node)
	walk = func(n dom.Node) {
		if dom.IsElement(n) && IsContainer(n) {
			out = append(out, n)
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// MarkIgnorable marks root and every element below it whose resolved types
// include typeIRI with dom.SetIgnored. It returns the number of elements
// marked.
func MarkIgnorable(root dom.Node, typeIRI iri.IRI) int {
	return MarkIgnorableFrom(root, typeIRI, EmptyContext())
}

// MarkIgnorableFrom is like MarkIgnorable but starts from ctx instead of an
// empty context. Elements whose types fail to resolve are left alone.
func MarkIgnorableFrom(root dom.Node, typeIRI iri.IRI, ctx Context) int {
	if !dom.IsElement(root) {
		return 0
	}
	local, err := localContext(root, ctx)
	if err != nil {
		glog.Warningf("%s: %v", dom.ElementXPath(root), err)
		local = ctx
	}
	marked := 0
	if a := ReadAttributes(root); a.Typeof != nil {
		types, err := ParseTypeAttribute(*a.Typeof, local)
		if err != nil {
			glog.V(1).Infof("%s: %v", dom.ElementXPath(root), err)
		}
		for _, t := range types {
			if t == typeIRI {
				dom.SetIgnored(root)
				marked++
				break
			}
		}
	}
	for _, c := range root.Children() {
		marked += MarkIgnorableFrom(c, typeIRI, local)
	}
	return marked
}
