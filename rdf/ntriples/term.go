package ntriples

import (
	"fmt"
	"strconv"

	"github.com/google/rdfahier/rdf/iri"
)

// IRI is the IRI type used for predicates and IRI terms.
type IRI = iri.IRI

const (
	// RDFType is the rdf:type predicate.
	RDFType IRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

	// LangString is the datatype of a literal with a language tag.
	LangString IRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"

	// XMLSchemaString is the datatype of a literal without a language tag
	// or an explicit datatype.
	XMLSchemaString IRI = "http://www.w3.org/2001/XMLSchema#string"
)

// BlankNodeID is the label of a blank node, without the "_:" prefix.
//
// Labels are local to the document they were read from. Callers merging
// several documents into one graph scope them with ScopeBlankNodes.
type BlankNodeID string

// node is the identity shared by subjects and objects: an IRI or a blank
// node.
type node struct {
	iri   IRI
	blank BlankNodeID
}

// IsIRI reports if the term is an IRI.
func (n node) IsIRI() bool { return n.iri != "" }

// IsBlankNode reports if the term is a blank node.
func (n node) IsBlankNode() bool { return n.blank != "" }

// IRI returns the IRI of the term, or "" if it is not an IRI.
func (n node) IRI() IRI { return n.iri }

// BlankNodeID returns the blank node label of the term, or "" if it is not a
// blank node.
func (n node) BlankNodeID() BlankNodeID { return n.blank }

func (n node) scoped(scope string) node {
	if n.blank == "" {
		return n
	}
	return node{blank: BlankNodeID(scope) + n.blank}
}

func (n node) String() string {
	if n.blank != "" {
		return "_:" + string(n.blank)
	}
	return n.iri.String()
}

// Subject is the subject of a triple: an IRI or a blank node.
type Subject struct {
	node
}

// NewSubjectIRI returns a subject naming iri.
func NewSubjectIRI(iri IRI) *Subject { return &Subject{node{iri: iri}} }

// NewSubjectBlankNodeID returns a subject naming a blank node.
func NewSubjectBlankNodeID(id BlankNodeID) *Subject { return &Subject{node{blank: id}} }

// Equal reports whether s and other denote the same term.
func (s *Subject) Equal(other *Subject) bool { return s.node == other.node }

// Object is the object of a triple: an IRI, a blank node or a literal.
type Object struct {
	node
	lit Literal
}

// NewObjectIRI returns an object naming iri.
func NewObjectIRI(iri IRI) *Object { return &Object{node: node{iri: iri}} }

// NewObjectBlankNodeID returns an object naming a blank node.
func NewObjectBlankNodeID(id BlankNodeID) *Object { return &Object{node: node{blank: id}} }

// NewObjectLiteral returns an object holding lit.
func NewObjectLiteral(lit Literal) *Object { return &Object{lit: lit} }

// NewObjectFromSubject returns an object with the identity of s, for triples
// that point back at a node already used as a subject.
func NewObjectFromSubject(s *Subject) *Object { return &Object{node: s.node} }

// IsLiteral reports if the term is a literal.
func (o *Object) IsLiteral() bool { return !o.IsIRI() && !o.IsBlankNode() }

// Literal returns the literal held by the object. It is the zero Literal
// unless IsLiteral is true.
func (o *Object) Literal() Literal { return o.lit }

// Equal reports whether o and other denote the same term.
func (o *Object) Equal(other *Object) bool { return *o == *other }

// String returns the N-Triples form of the term.
func (o *Object) String() string {
	if o.IsLiteral() {
		return o.lit.String()
	}
	return o.node.String()
}

// Literal is an RDF literal. Two literals are equal, by ==, when their
// lexical forms, datatypes and language tags are.
type Literal struct {
	lexical  string
	datatype IRI
	lang     string
}

// NewLiteral returns a literal. langTag is only meaningful when datatype is
// LangString.
func NewLiteral(lexicalForm string, datatype IRI, langTag string) Literal {
	return Literal{lexicalForm, datatype, langTag}
}

// LexicalForm returns the unescaped text of the literal.
func (l Literal) LexicalForm() string { return l.lexical }

// Datatype returns the datatype IRI.
func (l Literal) Datatype() IRI { return l.datatype }

// LanguageTag returns the language tag, or "".
func (l Literal) LanguageTag() string { return l.lang }

// String returns the N-Triples form of the literal. The xsd:string datatype
// is left implicit.
func (l Literal) String() string {
	quoted := strconv.Quote(l.lexical)
	switch {
	case l.lang != "":
		return quoted + "@" + l.lang
	case l.datatype != "" && l.datatype != XMLSchemaString:
		return quoted + "^^" + l.datatype.String()
	}
	return quoted
}

// Triple is an RDF triple.
type Triple struct {
	subject   *Subject
	predicate IRI
	object    *Object
}

// NewTriple returns the triple (s, predicate, o).
func NewTriple(s *Subject, predicate IRI, o *Object) *Triple {
	return &Triple{s, predicate, o}
}

// Subject returns the subject of the triple.
func (t *Triple) Subject() *Subject { return t.subject }

// Predicate returns the predicate of the triple.
func (t *Triple) Predicate() IRI { return t.predicate }

// Object returns the object of the triple.
func (t *Triple) Object() *Object { return t.object }

// Equal reports whether t and other have equal terms.
func (t *Triple) Equal(other *Triple) bool {
	return t.predicate == other.predicate && t.subject.Equal(other.subject) && t.object.Equal(other.object)
}

// String returns the triple as an N-Triples line.
func (t *Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.subject, t.predicate, t.object)
}

// ScopeBlankNodes returns a copy of the triple whose blank node labels are
// prefixed with scope. Triples without blank nodes are returned unchanged.
func (t *Triple) ScopeBlankNodes(scope string) *Triple {
	if !t.subject.IsBlankNode() && !t.object.IsBlankNode() {
		return t
	}
	s := &Subject{t.subject.scoped(scope)}
	o := &Object{node: t.object.scoped(scope), lit: t.object.lit}
	return NewTriple(s, t.predicate, o)
}
