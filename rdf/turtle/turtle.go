// Package turtle decodes RDF graphs serialized in the Terse RDF Triple
// Language.
//
// See https://www.w3.org/TR/turtle/ for the grammar. Triples are produced
// using the term model of package ntriples, so N-Triples documents (a subset
// of Turtle) are accepted as well.
package turtle

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/rdfahier/rdf/iri"
	"github.com/google/rdfahier/rdf/ntriples"
	"github.com/google/rdfahier/textpos"
)

const (
	rdfNS  iri.IRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	xsdNS  iri.IRI = "http://www.w3.org/2001/XMLSchema#"
	rdfNil iri.IRI = rdfNS + "nil"
)

// Datatypes of numeric and boolean literals written without quotes.
const (
	XSDInteger iri.IRI = xsdNS + "integer"
	XSDDecimal iri.IRI = xsdNS + "decimal"
	XSDDouble  iri.IRI = xsdNS + "double"
	XSDBoolean iri.IRI = xsdNS + "boolean"
)

// Decode reads a Turtle document from r and calls receiver for each triple in
// document order. Relative IRIs are resolved against base unless the document
// declares its own base. Syntax errors are reported as *textpos.Error.
func Decode(r io.Reader, base iri.IRI, receiver func(*ntriples.Triple) error) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	d := &decoder{
		input:    string(data),
		base:     base,
		prefixes: map[string]iri.IRI{},
		emit:     receiver,
	}
	return d.document()
}

// ReadAllTriples returns all of the triples of the Turtle document in r.
func ReadAllTriples(r io.Reader, base iri.IRI) ([]*ntriples.Triple, error) {
	var all []*ntriples.Triple
	err := Decode(r, base, func(t *ntriples.Triple) error {
		all = append(all, t)
		return nil
	})
	return all, err
}

type decoder struct {
	input    string
	pos      int
	base     iri.IRI
	prefixes map[string]iri.IRI
	emit     func(*ntriples.Triple) error

	nextBlankNodeID int
}

// callbackError marks errors returned by the receiver so they are passed
// through without a position.
type callbackError struct{ err error }

func (e *callbackError) Error() string { return e.err.Error() }
func (e *callbackError) Unwrap() error { return e.err }

func (d *decoder) errorf(format string, args ...interface{}) error {
	return textpos.Errorf(textpos.FromByteOffset(d.input, d.pos), format, args...)
}

func (d *decoder) add(s *ntriples.Subject, p iri.IRI, o *ntriples.Object) error {
	if err := d.emit(ntriples.NewTriple(s, p, o)); err != nil {
		return &callbackError{err}
	}
	return nil
}

func (d *decoder) eof() bool { return d.pos >= len(d.input) }

func (d *decoder) peek() byte {
	if d.eof() {
		return 0
	}
	return d.input[d.pos]
}

func (d *decoder) rest() string { return d.input[d.pos:] }

// skipWS skips whitespace and comments.
func (d *decoder) skipWS() {
	for !d.eof() {
		switch d.input[d.pos] {
		case ' ', '\t', '\r', '\n':
			d.pos++
		case '#':
			if nl := strings.IndexByte(d.rest(), '\n'); nl >= 0 {
				d.pos += nl + 1
			} else {
				d.pos = len(d.input)
			}
		default:
			return
		}
	}
}

func (d *decoder) expect(ch byte) error {
	d.skipWS()
	if d.peek() != ch {
		if d.eof() {
			return d.errorf("unexpected end of document, want %q", ch)
		}
		return d.errorf("want %q, got %q", ch, d.peek())
	}
	d.pos++
	return nil
}

func (d *decoder) newBlankNode() ntriples.BlankNodeID {
	d.nextBlankNodeID++
	return ntriples.BlankNodeID(fmt.Sprintf("genid%d", d.nextBlankNodeID))
}

func (d *decoder) document() error {
	for {
		d.skipWS()
		if d.eof() {
			return nil
		}
		if err := d.statement(); err != nil {
			if cbErr, ok := err.(*callbackError); ok {
				return cbErr.err
			}
			return err
		}
	}
}

func (d *decoder) statement() error {
	switch {
	case strings.HasPrefix(d.rest(), "@prefix"):
		d.pos += len("@prefix")
		return d.prefixDirective(true)
	case strings.HasPrefix(d.rest(), "@base"):
		d.pos += len("@base")
		return d.baseDirective(true)
	case hasKeyword(d.rest(), "PREFIX"):
		d.pos += len("PREFIX")
		return d.prefixDirective(false)
	case hasKeyword(d.rest(), "BASE"):
		d.pos += len("BASE")
		return d.baseDirective(false)
	}
	if err := d.triples(); err != nil {
		return err
	}
	return d.expect('.')
}

// hasKeyword reports if s starts with the SPARQL-style directive kw, matched
// case-insensitively and followed by whitespace.
func hasKeyword(s, kw string) bool {
	if len(s) <= len(kw) || !strings.EqualFold(s[:len(kw)], kw) {
		return false
	}
	switch s[len(kw)] {
	case ' ', '\t', '\r', '\n':
		return true
	}
	return false
}

func (d *decoder) prefixDirective(dotted bool) error {
	d.skipWS()
	colon := strings.IndexByte(d.rest(), ':')
	if colon < 0 {
		return d.errorf("prefix declaration without ':'")
	}
	label := d.rest()[:colon]
	if label != "" && !pnPrefixRE.MatchString(label) {
		return d.errorf("invalid prefix label %q", label)
	}
	d.pos += colon + 1
	d.skipWS()
	ns, err := d.iriRef()
	if err != nil {
		return err
	}
	d.prefixes[label] = ns
	if dotted {
		return d.expect('.')
	}
	return nil
}

func (d *decoder) baseDirective(dotted bool) error {
	d.skipWS()
	b, err := d.iriRef()
	if err != nil {
		return err
	}
	d.base = b
	if dotted {
		return d.expect('.')
	}
	return nil
}

// triples parses a subject and its predicate-object list.
func (d *decoder) triples() error {
	d.skipWS()
	if d.peek() == '[' {
		subject, err := d.blankNodePropertyList()
		if err != nil {
			return err
		}
		d.skipWS()
		if d.peek() == '.' {
			return nil
		}
		return d.predicateObjectList(subject)
	}
	subject, err := d.subject()
	if err != nil {
		return err
	}
	return d.predicateObjectList(subject)
}

func (d *decoder) subject() (*ntriples.Subject, error) {
	d.skipWS()
	switch {
	case d.peek() == '<':
		id, err := d.iriRef()
		if err != nil {
			return nil, err
		}
		return ntriples.NewSubjectIRI(id), nil
	case strings.HasPrefix(d.rest(), "_:"):
		label, err := d.blankNodeLabel()
		if err != nil {
			return nil, err
		}
		return ntriples.NewSubjectBlankNodeID(label), nil
	case d.peek() == '(':
		head, err := d.collection()
		if err != nil {
			return nil, err
		}
		if !head.IsBlankNode() {
			return ntriples.NewSubjectIRI(head.IRI()), nil
		}
		return ntriples.NewSubjectBlankNodeID(head.BlankNodeID()), nil
	default:
		id, err := d.prefixedName()
		if err != nil {
			return nil, err
		}
		return ntriples.NewSubjectIRI(id), nil
	}
}

func (d *decoder) predicateObjectList(subject *ntriples.Subject) error {
	for {
		pred, err := d.verb()
		if err != nil {
			return err
		}
		if err := d.objectList(subject, pred); err != nil {
			return err
		}
		d.skipWS()
		if d.peek() != ';' {
			return nil
		}
		for d.peek() == ';' {
			d.pos++
			d.skipWS()
		}
		if c := d.peek(); c == '.' || c == ']' || d.eof() {
			return nil
		}
	}
}

func (d *decoder) objectList(subject *ntriples.Subject, pred iri.IRI) error {
	for {
		obj, err := d.object()
		if err != nil {
			return err
		}
		if err := d.add(subject, pred, obj); err != nil {
			return err
		}
		d.skipWS()
		if d.peek() != ',' {
			return nil
		}
		d.pos++
	}
}

func (d *decoder) verb() (iri.IRI, error) {
	d.skipWS()
	if d.peek() == 'a' && (d.pos+1 == len(d.input) || isDelimiter(d.input[d.pos+1])) {
		d.pos++
		return ntriples.RDFType, nil
	}
	if d.peek() == '<' {
		return d.iriRef()
	}
	return d.prefixedName()
}

func (d *decoder) object() (*ntriples.Object, error) {
	d.skipWS()
	if d.eof() {
		return nil, d.errorf("unexpected end of document, want object")
	}
	switch c := d.peek(); {
	case c == '<':
		id, err := d.iriRef()
		if err != nil {
			return nil, err
		}
		return ntriples.NewObjectIRI(id), nil
	case strings.HasPrefix(d.rest(), "_:"):
		label, err := d.blankNodeLabel()
		if err != nil {
			return nil, err
		}
		return ntriples.NewObjectBlankNodeID(label), nil
	case c == '[':
		s, err := d.blankNodePropertyList()
		if err != nil {
			return nil, err
		}
		return ntriples.NewObjectFromSubject(s), nil
	case c == '(':
		return d.collection()
	case c == '"' || c == '\'':
		lit, err := d.literal()
		if err != nil {
			return nil, err
		}
		return ntriples.NewObjectLiteral(lit), nil
	}
	if lit, ok := d.numericLiteral(); ok {
		return ntriples.NewObjectLiteral(lit), nil
	}
	if lit, ok := d.booleanLiteral(); ok {
		return ntriples.NewObjectLiteral(lit), nil
	}
	id, err := d.prefixedName()
	if err != nil {
		return nil, err
	}
	return ntriples.NewObjectIRI(id), nil
}

// blankNodePropertyList parses "[ predicateObjectList? ]" and returns the
// blank node it describes.
func (d *decoder) blankNodePropertyList() (*ntriples.Subject, error) {
	if err := d.expect('['); err != nil {
		return nil, err
	}
	node := ntriples.NewSubjectBlankNodeID(d.newBlankNode())
	d.skipWS()
	if d.peek() == ']' {
		d.pos++
		return node, nil
	}
	if err := d.predicateObjectList(node); err != nil {
		return nil, err
	}
	if err := d.expect(']'); err != nil {
		return nil, err
	}
	return node, nil
}

// collection parses "( object* )" into an rdf:first/rdf:rest list and
// returns its head.
func (d *decoder) collection() (*ntriples.Object, error) {
	if err := d.expect('('); err != nil {
		return nil, err
	}
	var items []*ntriples.Object
	for {
		d.skipWS()
		if d.eof() {
			return nil, d.errorf("unterminated collection")
		}
		if d.peek() == ')' {
			d.pos++
			break
		}
		item, err := d.object()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return ntriples.NewObjectIRI(rdfNil), nil
	}
	head := d.newBlankNode()
	node := head
	for i, item := range items {
		s := ntriples.NewSubjectBlankNodeID(node)
		if err := d.add(s, rdfNS+"first", item); err != nil {
			return nil, err
		}
		rest := ntriples.NewObjectIRI(rdfNil)
		if i < len(items)-1 {
			node = d.newBlankNode()
			rest = ntriples.NewObjectBlankNodeID(node)
		}
		if err := d.add(s, rdfNS+"rest", rest); err != nil {
			return nil, err
		}
	}
	return ntriples.NewObjectBlankNodeID(head), nil
}

// iriRef parses "<...>" and resolves the reference against the in-scope
// base.
func (d *decoder) iriRef() (iri.IRI, error) {
	start := d.pos
	if d.peek() != '<' {
		return "", d.errorf("want IRI reference")
	}
	end := strings.IndexByte(d.rest(), '>')
	if end < 0 {
		return "", d.errorf("unterminated IRI reference")
	}
	raw := d.input[start+1 : start+end]
	if i := strings.IndexAny(raw, " \t\r\n<\"{}|^`"); i >= 0 {
		d.pos = start + 1 + i
		return "", d.errorf("invalid character %q in IRI reference", raw[i])
	}
	ref, err := unescapeNumeric(raw)
	if err != nil {
		return "", d.errorf("%v", err)
	}
	resolved, err := d.resolve(ref)
	if err != nil {
		return "", d.errorf("%v", err)
	}
	d.pos = start + end + 1
	return resolved, nil
}

func (d *decoder) resolve(ref string) (iri.IRI, error) {
	if iri.IRI(ref).Scheme() != "" {
		return iri.ParseAbsolute(ref)
	}
	if d.base == "" {
		return "", fmt.Errorf("relative IRI %q with no base", ref)
	}
	if ref == "" {
		return d.base, nil
	}
	baseURL, err := url.Parse(string(d.base))
	if err != nil {
		return "", fmt.Errorf("bad base IRI %q: %w", d.base, err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("bad IRI reference %q: %w", ref, err)
	}
	return iri.ParseAbsolute(baseURL.ResolveReference(refURL).String())
}

// prefixedName parses "prefix:local" and expands it against the declared
// prefixes.
func (d *decoder) prefixedName() (iri.IRI, error) {
	start := d.pos
	colon := -1
	end := d.pos
	for end < len(d.input) {
		r, size := utf8.DecodeRuneInString(d.input[end:])
		if r == ':' && colon < 0 {
			colon = end
			end += size
			continue
		}
		if r == '\\' && colon >= 0 && end+1 < len(d.input) {
			end += 2
			continue
		}
		if r < utf8.RuneSelf && isDelimiter(byte(r)) && r != '.' {
			break
		}
		if !isNameRune(r) {
			break
		}
		end += size
	}
	for end > start && d.input[end-1] == '.' {
		end--
	}
	if colon < 0 || colon >= end {
		if end == start {
			return "", d.errorf("unexpected %q", d.peek())
		}
		return "", d.errorf("invalid term %q", d.input[start:end])
	}
	label := d.input[start:colon]
	ns, ok := d.prefixes[label]
	if !ok {
		return "", d.errorf("undefined prefix %q", label)
	}
	local := unescapeLocal(d.input[colon+1 : end])
	d.pos = end
	return ns + iri.IRI(local), nil
}

func (d *decoder) blankNodeLabel() (ntriples.BlankNodeID, error) {
	start := d.pos + 2
	end := start
	for end < len(d.input) {
		r, size := utf8.DecodeRuneInString(d.input[end:])
		if r == ':' || r == '%' || r == '\\' || !isNameRune(r) {
			break
		}
		end += size
	}
	for end > start && d.input[end-1] == '.' {
		end--
	}
	if end == start {
		return "", d.errorf("empty blank node label")
	}
	d.pos = end
	return ntriples.BlankNodeID(d.input[start:end]), nil
}

var (
	pnPrefixRE  = regexp.MustCompile(`^[\pL][\pL\pN_\-.]*$`)
	langTagRE   = regexp.MustCompile(`^@([a-zA-Z]+(?:-[a-zA-Z0-9]+)*)`)
	numericRE   = regexp.MustCompile(`^[+-]?(?:([0-9]+\.[0-9]*[eE][+-]?[0-9]+|\.[0-9]+[eE][+-]?[0-9]+|[0-9]+[eE][+-]?[0-9]+)|([0-9]*\.[0-9]+)|([0-9]+))`)
	booleanWord = []string{"true", "false"}
)

func (d *decoder) literal() (ntriples.Literal, error) {
	lexical, err := d.quotedString()
	if err != nil {
		return ntriples.Literal{}, err
	}
	if m := langTagRE.FindStringSubmatch(d.rest()); m != nil {
		d.pos += len(m[0])
		return ntriples.NewLiteral(lexical, ntriples.LangString, m[1]), nil
	}
	if strings.HasPrefix(d.rest(), "^^") {
		d.pos += 2
		var datatype iri.IRI
		if d.peek() == '<' {
			datatype, err = d.iriRef()
		} else {
			datatype, err = d.prefixedName()
		}
		if err != nil {
			return ntriples.Literal{}, err
		}
		return ntriples.NewLiteral(lexical, datatype, ""), nil
	}
	return ntriples.NewLiteral(lexical, ntriples.XMLSchemaString, ""), nil
}

// quotedString parses a short or long string in single or double quotes and
// returns its unescaped value.
func (d *decoder) quotedString() (string, error) {
	start := d.pos
	q := d.input[d.pos]
	long := strings.HasPrefix(d.rest(), strings.Repeat(string(q), 3))
	if long {
		d.pos += 3
	} else {
		d.pos++
	}
	var b strings.Builder
	for {
		if d.eof() {
			d.pos = start
			return "", d.errorf("unterminated string literal")
		}
		c := d.input[d.pos]
		switch {
		case c == q && !long:
			d.pos++
			return b.String(), nil
		case c == q && strings.HasPrefix(d.rest(), strings.Repeat(string(q), 3)):
			d.pos += 3
			// A long string may end with up to two extra quotes.
			for d.peek() == q {
				b.WriteByte(q)
				d.pos++
			}
			return b.String(), nil
		case (c == '\n' || c == '\r') && !long:
			return "", d.errorf("line break in short string literal")
		case c == '\\':
			r, n, err := unescapeAt(d.input, d.pos)
			if err != nil {
				return "", d.errorf("%v", err)
			}
			b.WriteRune(r)
			d.pos += n
		default:
			b.WriteByte(c)
			d.pos++
		}
	}
}

func (d *decoder) numericLiteral() (ntriples.Literal, bool) {
	m := numericRE.FindStringSubmatch(d.rest())
	if m == nil {
		return ntriples.Literal{}, false
	}
	end := d.pos + len(m[0])
	if end < len(d.input) && !isDelimiter(d.input[end]) {
		return ntriples.Literal{}, false
	}
	d.pos = end
	switch {
	case m[1] != "":
		return ntriples.NewLiteral(m[0], XSDDouble, ""), true
	case m[2] != "":
		return ntriples.NewLiteral(m[0], XSDDecimal, ""), true
	default:
		return ntriples.NewLiteral(m[0], XSDInteger, ""), true
	}
}

func (d *decoder) booleanLiteral() (ntriples.Literal, bool) {
	for _, w := range booleanWord {
		end := d.pos + len(w)
		if strings.HasPrefix(d.rest(), w) && (end == len(d.input) || isDelimiter(d.input[end])) {
			d.pos = end
			return ntriples.NewLiteral(w, XSDBoolean, ""), true
		}
	}
	return ntriples.Literal{}, false
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', ';', ',', '.', '(', ')', '[', ']', '<', '"', '\'', '#':
		return true
	}
	return false
}

func isNameRune(r rune) bool {
	switch r {
	case '_', '-', '.', ':', '%', '·':
		return true
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

var stringEscapes = map[byte]rune{
	't': '\t', 'b': '\b', 'n': '\n', 'r': '\r', 'f': '\f', '"': '"', '\'': '\'', '\\': '\\',
}

// unescapeAt decodes the escape sequence starting at s[i] and returns the
// rune and the number of bytes consumed.
func unescapeAt(s string, i int) (rune, int, error) {
	if i+1 >= len(s) {
		return 0, 0, fmt.Errorf("truncated escape sequence")
	}
	switch c := s[i+1]; c {
	case 'u', 'U':
		n := 4
		if c == 'U' {
			n = 8
		}
		if i+2+n > len(s) {
			return 0, 0, fmt.Errorf("truncated escape sequence %q", s[i:])
		}
		code, err := strconv.ParseUint(s[i+2:i+2+n], 16, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("bad escape sequence %q", s[i:i+2+n])
		}
		return rune(code), 2 + n, nil
	default:
		r, ok := stringEscapes[c]
		if !ok {
			return 0, 0, fmt.Errorf("unknown escape sequence \\%c", c)
		}
		return r, 2, nil
	}
}

// unescapeNumeric decodes \u and \U escapes, the only ones allowed in IRI
// references.
func unescapeNumeric(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] != 'u' && s[i+1] != 'U' {
			return "", fmt.Errorf("invalid escape in IRI reference %q", s)
		}
		r, n, err := unescapeAt(s, i)
		if err != nil {
			return "", err
		}
		b.WriteRune(r)
		i += n - 1
	}
	return b.String(), nil
}

// unescapeLocal removes the backslash from reserved-character escapes in the
// local part of a prefixed name.
func unescapeLocal(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
