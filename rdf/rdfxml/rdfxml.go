// Package rdfxml decodes RDF graphs serialized as RDF/XML.
//
// See https://www.w3.org/TR/rdf-syntax-grammar/ for the grammar. The decoder
// covers node elements, property attributes, property elements with resource,
// literal, typed-literal and nested-node values, and the Resource and Literal
// parse types. Reification through rdf:ID on property elements and
// rdf:parseType="Collection" are rejected.
package rdfxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/golang/glog"
	"github.com/google/rdfahier/rdf/iri"
	"github.com/google/rdfahier/rdf/ntriples"
	"github.com/google/rdfahier/textpos"
)

const (
	// RDF is the base IRI for RDF terms.
	RDF iri.IRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
)

// IRIs for terms defined in https://www.w3.org/TR/rdf-syntax-grammar/.
const (
	RDFRoot        iri.IRI = RDF + "RDF"
	RDFDescription iri.IRI = RDF + "Description"
	RDFXMLLiteral  iri.IRI = RDF + "XMLLiteral"
	RDFID          iri.IRI = RDF + "ID"
	RDFNodeID      iri.IRI = RDF + "nodeID"
	RDFLI          iri.IRI = RDF + "li"
	RDFAbout       iri.IRI = RDF + "about"
	RDFResource    iri.IRI = RDF + "resource"
	RDFDatatype    iri.IRI = RDF + "datatype"
	RDFType        iri.IRI = RDF + "type"
	RDFParseType   iri.IRI = RDF + "parseType"

	xmlNS string = "http://www.w3.org/XML/1998/namespace"
)

// ErrUnsupported is returned for RDF/XML constructs the decoder does not
// handle.
var ErrUnsupported = errors.New("unsupported RDF/XML construct")

// Decode reads an RDF/XML document from r and calls receiver for each triple
// in document order. Relative IRIs are resolved against base unless the
// document sets xml:base. Syntax errors carry the position of the offending
// token as a *textpos.Error.
func Decode(r io.Reader, base iri.IRI, receiver func(*ntriples.Triple) error) error {
	return ReadTriples(xml.NewDecoder(r), base, receiver)
}

// ReadTriples decodes triples from an XML token stream. If reader is an
// *xml.Decoder, errors are attributed to a line and column.
func ReadTriples(reader xml.TokenReader, base iri.IRI, receiver func(*ntriples.Triple) error) error {
	p := &parser{reader: reader, emit: receiver}
	if pr, ok := reader.(positionReporter); ok {
		p.pos = pr
	}
	if base != "" {
		p.bases = append(p.bases, base)
	}
	started, finished := false, false
	for {
		tok, err := p.token()
		if err == io.EOF {
			if finished {
				return nil
			}
			return p.errorf("unexpected end of file while parsing RDF/XML")
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if finished {
				return p.errorf("unexpected element %s after document element", xmlNameToIRI(t.Name))
			}
			if xmlNameToIRI(t.Name) == RDFRoot {
				if started {
					return p.errorf("got second RDF root element: %+v", t.Name)
				}
				started = true
				p.enter(t)
				continue
			}
			// A lone node element may stand in for rdf:RDF.
			if _, err := p.readNodeElem(t); err != nil {
				return err
			}
			if !started {
				finished = true
			}
		case xml.EndElement:
			if xmlNameToIRI(t.Name) != RDFRoot {
				return p.errorf("unexpected end element %s", xmlNameToIRI(t.Name))
			}
			p.leave()
			finished = true
		case xml.CharData:
			if str := strings.TrimSpace(string(t)); str != "" {
				return p.errorf("unexpected non-whitespace text %q", str)
			}
		}
	}
}

// ReadAllTriples returns all of the triples decoded from reader.
func ReadAllTriples(reader xml.TokenReader, base iri.IRI) ([]*ntriples.Triple, error) {
	var all []*ntriples.Triple
	err := ReadTriples(reader, base, func(t *ntriples.Triple) error {
		all = append(all, t)
		return nil
	})
	return all, err
}

type positionReporter interface {
	InputPos() (line, column int)
}

type parser struct {
	reader xml.TokenReader
	pos    positionReporter
	emit   func(*ntriples.Triple) error

	// bases and langs hold the in-scope xml:base and xml:lang values; scopes
	// records how many entries each open element pushed.
	bases  []iri.IRI
	langs  []string
	scopes []scope

	nextBlankNodeID int
}

type scope struct {
	pushedBase, pushedLang bool
}

func (p *parser) token() (xml.Token, error) {
	tok, err := p.reader.Token()
	if err == io.EOF {
		return nil, err
	}
	if err != nil {
		return nil, p.errorf("XML error: %w", err)
	}
	return xml.CopyToken(tok), nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	if p.pos == nil {
		return err
	}
	var posErr *textpos.Error
	if errors.As(err, &posErr) {
		return err
	}
	line, col := p.pos.InputPos()
	return &textpos.Error{Pos: textpos.MakeLineColumn(textpos.LineFromOrdinal(line), textpos.ColumnFromOrdinal(col)), Err: err}
}

// enter updates the in-scope base and language from the generic attributes
// of elem. Every call must be paired with leave.
func (p *parser) enter(elem xml.StartElement) {
	var s scope
	for _, attr := range elem.Attr {
		if attr.Name.Space != xmlNS {
			continue
		}
		switch attr.Name.Local {
		case "base":
			base, err := p.resolve(attr.Value)
			if err != nil {
				glog.Warningf("ignoring xml:base %q: %v", attr.Value, err)
				continue
			}
			p.bases = append(p.bases, base)
			s.pushedBase = true
		case "lang":
			p.langs = append(p.langs, attr.Value)
			s.pushedLang = true
		}
	}
	p.scopes = append(p.scopes, s)
}

func (p *parser) leave() {
	s := p.scopes[len(p.scopes)-1]
	p.scopes = p.scopes[:len(p.scopes)-1]
	if s.pushedBase {
		p.bases = p.bases[:len(p.bases)-1]
	}
	if s.pushedLang {
		p.langs = p.langs[:len(p.langs)-1]
	}
}

func (p *parser) baseIRI() iri.IRI {
	if len(p.bases) == 0 {
		return ""
	}
	return p.bases[len(p.bases)-1]
}

func (p *parser) lang() string {
	if len(p.langs) == 0 {
		return ""
	}
	return p.langs[len(p.langs)-1]
}

func (p *parser) generateBlankNodeID() ntriples.BlankNodeID {
	p.nextBlankNodeID++
	return ntriples.BlankNodeID(fmt.Sprintf("rdfxml%d", p.nextBlankNodeID))
}

func (p *parser) add(s *ntriples.Subject, pred iri.IRI, o *ntriples.Object) error {
	if err := p.emit(ntriples.NewTriple(s, pred, o)); err != nil {
		return fmt.Errorf("triple callback error: %w", err)
	}
	return nil
}

// readNodeElem handles https://www.w3.org/TR/rdf-syntax-grammar/#nodeElement
// and returns the subject the element describes.
func (p *parser) readNodeElem(start xml.StartElement) (*ntriples.Subject, error) {
	p.enter(start)
	defer p.leave()

	subject, err := p.nodeSubject(start)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		subject = ntriples.NewSubjectBlankNodeID(p.generateBlankNodeID())
	}

	if typ := xmlNameToIRI(start.Name); typ != RDFDescription {
		if err := p.add(subject, RDFType, ntriples.NewObjectIRI(typ)); err != nil {
			return nil, err
		}
	}
	if err := p.addPropertyAttrs(subject, start, RDFID, RDFNodeID, RDFAbout); err != nil {
		return nil, err
	}
	if err := p.readPropertyElems(start.Name, subject); err != nil {
		return nil, err
	}
	return subject, nil
}

// nodeSubject returns the subject named by rdf:ID, rdf:nodeID or rdf:about,
// or nil when the element has none of them.
func (p *parser) nodeSubject(start xml.StartElement) (*ntriples.Subject, error) {
	var subject *ntriples.Subject
	set := func(s *ntriples.Subject) error {
		if subject != nil {
			return p.errorf("ambiguous subject: %s and %s", subject, s)
		}
		subject = s
		return nil
	}
	for _, attr := range start.Attr {
		var err error
		switch xmlNameToIRI(attr.Name) {
		case RDFID:
			if err := checkNCName(attr.Value); err != nil {
				return nil, p.errorf("bad rdf:ID: %w", err)
			}
			id, rerr := p.resolve("#" + attr.Value)
			if rerr != nil {
				return nil, p.errorf("bad IRI for rdf:ID attribute: %w", rerr)
			}
			err = set(ntriples.NewSubjectIRI(id))
		case RDFNodeID:
			if err := checkNCName(attr.Value); err != nil {
				return nil, p.errorf("bad rdf:nodeID: %w", err)
			}
			err = set(ntriples.NewSubjectBlankNodeID(ntriples.BlankNodeID(attr.Value)))
		case RDFAbout:
			id, rerr := p.resolve(attr.Value)
			if rerr != nil {
				return nil, p.errorf("bad IRI for rdf:about attribute: %w", rerr)
			}
			err = set(ntriples.NewSubjectIRI(id))
		}
		if err != nil {
			return nil, err
		}
	}
	return subject, nil
}

// addPropertyAttrs emits a triple for every property attribute of elem.
// Attributes named in skip are handled by the caller.
func (p *parser) addPropertyAttrs(subject *ntriples.Subject, elem xml.StartElement, skip ...iri.IRI) error {
attrs:
	for _, attr := range elem.Attr {
		if !isPropertyAttr(attr.Name) {
			continue
		}
		pred := xmlNameToIRI(attr.Name)
		for _, s := range skip {
			if pred == s {
				continue attrs
			}
		}
		if pred == RDFType {
			typ, err := p.resolve(attr.Value)
			if err != nil {
				return p.errorf("bad rdf:type attribute value: %w", err)
			}
			if err := p.add(subject, RDFType, ntriples.NewObjectIRI(typ)); err != nil {
				return err
			}
			continue
		}
		if err := p.add(subject, pred, ntriples.NewObjectLiteral(p.literal(attr.Value, ""))); err != nil {
			return err
		}
	}
	return nil
}

// readPropertyElems parses the property elements of a node element up to and
// including its end element.
func (p *parser) readPropertyElems(parent xml.Name, subject *ntriples.Subject) error {
	liCounter := 1
	for {
		tok, err := p.token()
		if err == io.EOF {
			return p.errorf("unexpected EOF while reading property elements of %s", subject)
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := p.readPropertyElem(&liCounter, subject, t); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name != parent {
				return p.errorf("unexpected end element %s while reading property elements of %s", xmlNameToIRI(t.Name), subject)
			}
			return nil
		case xml.CharData:
			if str := strings.TrimSpace(string(t)); str != "" {
				return p.errorf("unexpected text %q among property elements of %s", str, subject)
			}
		}
	}
}

// readPropertyElem handles https://www.w3.org/TR/rdf-syntax-grammar/#propertyElt.
func (p *parser) readPropertyElem(liCounter *int, subject *ntriples.Subject, elem xml.StartElement) error {
	p.enter(elem)
	defer p.leave()

	pred := xmlNameToIRI(elem.Name)
	if pred == RDFLI {
		pred = iri.IRI(fmt.Sprintf("%s_%d", string(RDF), *liCounter))
		*liCounter++
	}
	if findAttr(elem, RDFID) != nil {
		return p.errorf("%w: reification with rdf:ID on property %s", ErrUnsupported, pred)
	}

	if parseType := findAttr(elem, RDFParseType); parseType != nil {
		switch parseType.Value {
		case "Resource":
			node := ntriples.NewSubjectBlankNodeID(p.generateBlankNodeID())
			if err := p.add(subject, pred, ntriples.NewObjectFromSubject(node)); err != nil {
				return err
			}
			return p.readPropertyElems(elem.Name, node)
		case "Collection":
			return p.errorf("%w: rdf:parseType=%q", ErrUnsupported, parseType.Value)
		default:
			contents, err := p.readElementContents()
			if err != nil {
				return p.errorf("failed to read literal contents of %s: %w", pred, err)
			}
			return p.add(subject, pred, ntriples.NewObjectLiteral(ntriples.NewLiteral(string(contents), RDFXMLLiteral, "")))
		}
	}

	// emptyPropertyElt: rdf:resource or rdf:nodeID names the object, and any
	// further property attributes describe it.
	if object, err := p.emptyPropertyObject(elem); err != nil {
		return err
	} else if object != nil {
		if err := p.add(subject, pred, ntriples.NewObjectFromSubject(object)); err != nil {
			return err
		}
		if err := p.addPropertyAttrs(object, elem, RDFResource, RDFNodeID, RDFDatatype); err != nil {
			return err
		}
		return p.readWhitespaceUntilEndElem()
	}

	child, err := p.readPropertyValue()
	if err != nil {
		return err
	}
	if child.nodeElemStart != nil {
		value, err := p.readNodeElem(*child.nodeElemStart)
		if err != nil {
			return p.errorf("failed to parse value of %s property of %s: %w", pred, subject, err)
		}
		if err := p.readWhitespaceUntilEndElem(); err != nil {
			return p.errorf("failed to parse value of %s property of %s: %w", pred, subject, err)
		}
		return p.add(subject, pred, ntriples.NewObjectFromSubject(value))
	}
	datatype := iri.IRI("")
	if dt := findAttr(elem, RDFDatatype); dt != nil {
		if datatype, err = p.resolve(dt.Value); err != nil {
			return p.errorf("bad rdf:datatype: %w", err)
		}
	}
	return p.add(subject, pred, ntriples.NewObjectLiteral(p.literal(child.text, datatype)))
}

// emptyPropertyObject returns the object named by rdf:resource or rdf:nodeID,
// or a fresh blank node if elem only carries property attributes. It returns
// nil when elem has none of these.
func (p *parser) emptyPropertyObject(elem xml.StartElement) (*ntriples.Subject, error) {
	if a := findAttr(elem, RDFResource); a != nil {
		id, err := p.resolve(a.Value)
		if err != nil {
			return nil, p.errorf("bad IRI for rdf:resource attribute: %w", err)
		}
		return ntriples.NewSubjectIRI(id), nil
	}
	if a := findAttr(elem, RDFNodeID); a != nil {
		if err := checkNCName(a.Value); err != nil {
			return nil, p.errorf("bad rdf:nodeID: %w", err)
		}
		return ntriples.NewSubjectBlankNodeID(ntriples.BlankNodeID(a.Value)), nil
	}
	for _, attr := range elem.Attr {
		if isPropertyAttr(attr.Name) && xmlNameToIRI(attr.Name) != RDFDatatype {
			return ntriples.NewSubjectBlankNodeID(p.generateBlankNodeID()), nil
		}
	}
	return nil, nil
}

func (p *parser) literal(text string, datatype iri.IRI) ntriples.Literal {
	if datatype != "" {
		return ntriples.NewLiteral(text, datatype, "")
	}
	if lang := p.lang(); lang != "" {
		return ntriples.NewLiteral(text, ntriples.LangString, lang)
	}
	return ntriples.NewLiteral(text, ntriples.XMLSchemaString, "")
}

// propertyValue is the content of a property element: either the start of a
// nested node element or the element's text.
type propertyValue struct {
	nodeElemStart *xml.StartElement
	text          string
}

func (p *parser) readPropertyValue() (*propertyValue, error) {
	text := &strings.Builder{}
	for {
		tok, err := p.token()
		if err == io.EOF {
			return nil, p.errorf("unexpected EOF while reading property value")
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return &propertyValue{text: text.String()}, nil
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			if str := strings.TrimSpace(text.String()); str != "" {
				return nil, p.errorf("got start element %s for property and also non-whitespace text %q", xmlNameToIRI(t.Name), str)
			}
			return &propertyValue{nodeElemStart: &t}, nil
		}
	}
}

// resolve interprets s as an IRI reference relative to the in-scope base.
//
// RDF/XML transforms a bare fragment identifier into an IRI by appending it to
// the in-scope base, and the empty string into the base itself.
func (p *parser) resolve(s string) (iri.IRI, error) {
	base := p.baseIRI()
	if s == "" {
		if base == "" {
			return "", fmt.Errorf("empty IRI reference with no base")
		}
		return base, nil
	}
	ref, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("error parsing %q as IRI: %w", s, err)
	}
	if ref.IsAbs() {
		return iri.ParseAbsolute(s)
	}
	if base == "" {
		return "", fmt.Errorf("relative IRI %q with no base", s)
	}
	baseURL, err := url.Parse(string(base))
	if err != nil {
		return "", fmt.Errorf("error parsing base IRI %q: %w", base, err)
	}
	return iri.ParseAbsolute(baseURL.ResolveReference(ref).String())
}

func xmlNameToIRI(n xml.Name) iri.IRI {
	return iri.IRI(n.Space + n.Local)
}

// isPropertyAttr reports if an attribute may carry a property. Namespace
// declarations, xml:* attributes and unqualified attributes are excluded.
func isPropertyAttr(n xml.Name) bool {
	switch {
	case n.Space == "" || n.Space == "xmlns" || n.Space == xmlNS:
		return false
	case xmlNameToIRI(n) == RDFParseType:
		return false
	}
	return true
}

func findAttr(elem xml.StartElement, name iri.IRI) *xml.Attr {
	for i, attr := range elem.Attr {
		if xmlNameToIRI(attr.Name) == name {
			return &elem.Attr[i]
		}
	}
	return nil
}

// readElementContents re-encodes the tokens up to the end element matching
// the already consumed start element.
func (p *parser) readElementContents() ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := xml.NewEncoder(buf)
	depth := 0
	for {
		tok, err := p.token()
		if err == io.EOF {
			return nil, p.errorf("unexpected EOF in literal contents")
		}
		if err != nil {
			return nil, err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				if err := enc.Flush(); err != nil {
					return nil, p.errorf("XML printing error: %w", err)
				}
				return buf.Bytes(), nil
			}
			depth--
		}
		if err := enc.EncodeToken(tok); err != nil {
			return nil, p.errorf("XML printing error: %w", err)
		}
	}
}

func (p *parser) readWhitespaceUntilEndElem() error {
	for {
		tok, err := p.token()
		if err == io.EOF {
			return p.errorf("unexpected EOF, want end element")
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.CharData:
			if nonWS := strings.TrimSpace(string(t)); nonWS != "" {
				return p.errorf("expected only whitespace in contents, got %q", nonWS)
			}
		case xml.StartElement:
			return p.errorf("expected whitespace, got start of element %s", xmlNameToIRI(t.Name))
		}
	}
}
