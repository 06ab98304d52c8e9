// Package ntriples models RDF terms and triples and parses the W3C N-Triples
// format.
//
// See https://www.w3.org/TR/n-triples/ for the grammar.
package ntriples

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/rdfahier/textpos"
)

// maxLineBytes bounds a single N-Triples line.
const maxLineBytes = 16 * 1024 * 1024

// Decode reads an N-Triples document and calls receiver for each triple in
// document order. Syntax errors are reported as *textpos.Error.
func Decode(r io.Reader, receiver func(*Triple) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for line := 0; scanner.Scan(); line++ {
		t, err := ParseLine(scanner.Text())
		if err != nil {
			col := 0
			var colErr *columnError
			if errors.As(err, &colErr) {
				col = colErr.offset
			}
			return &textpos.Error{
				Pos: textpos.MakeLineColumn(textpos.LineFromOffset(line), textpos.ColumnFromOffset(col)),
				Err: err,
			}
		}
		if t == nil {
			continue
		}
		if err := receiver(t); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ParseLine parses one line of an N-Triples document. Lines holding only
// whitespace or a comment yield a nil triple.
func ParseLine(line string) (*Triple, error) {
	p := &lineParser{in: line}
	p.skipSpace()
	if p.done() || p.peek() == '#' {
		return nil, nil
	}
	s, err := p.subject()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	pred, err := p.iriRef()
	if err != nil {
		return nil, p.wrap("predicate", err)
	}
	p.skipSpace()
	o, err := p.object()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.done() || p.peek() != '.' {
		return nil, p.errorf("expected '.' after the object, got %q", p.rest())
	}
	p.pos++
	p.skipSpace()
	if !p.done() && p.peek() != '#' {
		return nil, p.errorf("unexpected text after '.': %q", p.rest())
	}
	return NewTriple(s, pred, o), nil
}

// ParseLiteral parses a literal at the start of input and returns it with
// the remaining text.
func ParseLiteral(input string) (Literal, string, error) {
	p := &lineParser{in: input}
	lit, err := p.literal()
	if err != nil {
		return Literal{}, "", err
	}
	return lit, p.rest(), nil
}

// columnError records the byte offset within the line where parsing failed.
type columnError struct {
	offset int
	err    error
}

func (e *columnError) Error() string { return e.err.Error() }

func (e *columnError) Unwrap() error { return e.err }

type lineParser struct {
	in  string
	pos int
}

func (p *lineParser) done() bool   { return p.pos >= len(p.in) }
func (p *lineParser) peek() byte   { return p.in[p.pos] }
func (p *lineParser) rest() string { return p.in[p.pos:] }

func (p *lineParser) skipSpace() {
	for !p.done() && (p.peek() == ' ' || p.peek() == '\t' || p.peek() == '\r') {
		p.pos++
	}
}

func (p *lineParser) errorf(format string, args ...any) error {
	return &columnError{p.pos, fmt.Errorf(format, args...)}
}

func (p *lineParser) wrap(what string, err error) error {
	var colErr *columnError
	if errors.As(err, &colErr) {
		return &columnError{colErr.offset, fmt.Errorf("failed to parse %s: %w", what, colErr.err)}
	}
	return p.errorf("failed to parse %s: %w", what, err)
}

func (p *lineParser) subject() (*Subject, error) {
	if p.done() {
		return nil, p.errorf("missing subject")
	}
	switch p.peek() {
	case '<':
		v, err := p.iriRef()
		if err != nil {
			return nil, p.wrap("subject", err)
		}
		return NewSubjectIRI(v), nil
	case '_':
		id, err := p.blankNode()
		if err != nil {
			return nil, p.wrap("subject", err)
		}
		return NewSubjectBlankNodeID(id), nil
	}
	return nil, p.errorf("invalid subject: %q", p.rest())
}

func (p *lineParser) object() (*Object, error) {
	if p.done() {
		return nil, p.errorf("missing object")
	}
	switch p.peek() {
	case '<':
		v, err := p.iriRef()
		if err != nil {
			return nil, p.wrap("object", err)
		}
		return NewObjectIRI(v), nil
	case '_':
		id, err := p.blankNode()
		if err != nil {
			return nil, p.wrap("object", err)
		}
		return NewObjectBlankNodeID(id), nil
	case '"':
		lit, err := p.literal()
		if err != nil {
			return nil, p.wrap("object", err)
		}
		return NewObjectLiteral(lit), nil
	}
	return nil, p.errorf("invalid object: %q", p.rest())
}

// iriRef reads IRIREF: '<' ([^#x00-#x20<>"{}|^`\] | UCHAR)* '>'.
func (p *lineParser) iriRef() (IRI, error) {
	if p.done() || p.peek() != '<' {
		return "", p.errorf("expected '<', got %q", p.rest())
	}
	start := p.pos
	p.pos++
	var b strings.Builder
	for !p.done() {
		c := p.peek()
		switch {
		case c == '>':
			p.pos++
			return IRI(b.String()), nil
		case c == '\\':
			r, err := p.uchar()
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
		case c <= 0x20 || strings.IndexByte(`<"{}|^`+"`", c) >= 0:
			return "", p.errorf("character %q not allowed in IRI", c)
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	p.pos = start
	return "", p.errorf("unterminated IRI: %q", p.rest())
}

// blankNode reads BLANK_NODE_LABEL:
// '_:' (PN_CHARS_U | [0-9]) ((PN_CHARS | '.')* PN_CHARS)?
func (p *lineParser) blankNode() (BlankNodeID, error) {
	if !strings.HasPrefix(p.rest(), "_:") {
		return "", p.errorf("expected '_:', got %q", p.rest())
	}
	p.pos += 2
	start := p.pos
	for i, r := range p.rest() {
		if r == utf8.RuneError {
			break
		}
		ok := isPNChars(r) || r == '.'
		if i == 0 {
			ok = isPNCharsU(r) || (r >= '0' && r <= '9')
		}
		if !ok {
			break
		}
		p.pos += utf8.RuneLen(r)
	}
	for p.pos > start && p.in[p.pos-1] == '.' {
		p.pos--
	}
	if p.pos == start {
		return "", p.errorf("empty blank node label")
	}
	return BlankNodeID(p.in[start:p.pos]), nil
}

// literal reads a quoted string with an optional datatype or language tag.
func (p *lineParser) literal() (Literal, error) {
	if p.done() || p.peek() != '"' {
		return Literal{}, p.errorf("expected '\"', got %q", p.rest())
	}
	start := p.pos
	p.pos++
	var b strings.Builder
	closed := false
	for !p.done() && !closed {
		switch c := p.peek(); c {
		case '"':
			p.pos++
			closed = true
		case '\\':
			if err := p.escape(&b); err != nil {
				return Literal{}, err
			}
		case '\n', '\r':
			return Literal{}, p.errorf("line break in literal")
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	if !closed {
		p.pos = start
		return Literal{}, p.errorf("unterminated literal: %q", p.rest())
	}
	lexical := b.String()
	switch {
	case strings.HasPrefix(p.rest(), "^^"):
		p.pos += 2
		dt, err := p.iriRef()
		if err != nil {
			return Literal{}, err
		}
		return NewLiteral(lexical, dt, ""), nil
	case strings.HasPrefix(p.rest(), "@"):
		p.pos++
		tag := p.langTag()
		if tag == "" {
			return Literal{}, p.errorf("empty language tag")
		}
		return NewLiteral(lexical, LangString, tag), nil
	}
	return NewLiteral(lexical, XMLSchemaString, ""), nil
}

// langTag reads [a-zA-Z]+ ('-' [a-zA-Z0-9]+)*.
func (p *lineParser) langTag() string {
	start := p.pos
	isAlpha := func(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
	for !p.done() && isAlpha(p.peek()) {
		p.pos++
	}
	if p.pos == start {
		return ""
	}
	for strings.HasPrefix(p.rest(), "-") {
		sub := p.pos + 1
		end := sub
		for end < len(p.in) && (isAlpha(p.in[end]) || (p.in[end] >= '0' && p.in[end] <= '9')) {
			end++
		}
		if end == sub {
			break
		}
		p.pos = end
	}
	return p.in[start:p.pos]
}

// echars maps the character after a backslash in ECHAR to its value.
var echars = map[byte]byte{
	't': '\t', 'b': '\b', 'n': '\n', 'r': '\r', 'f': '\f', '"': '"', '\'': '\'', '\\': '\\',
}

// escape reads ECHAR or UCHAR.
func (p *lineParser) escape(b *strings.Builder) error {
	if p.pos+1 < len(p.in) {
		if c, ok := echars[p.in[p.pos+1]]; ok {
			b.WriteByte(c)
			p.pos += 2
			return nil
		}
	}
	r, err := p.uchar()
	if err != nil {
		return err
	}
	b.WriteRune(r)
	return nil
}

// uchar reads '\u' hex{4} or '\U' hex{8}.
func (p *lineParser) uchar() (rune, error) {
	rest := p.rest()
	n := 0
	switch {
	case strings.HasPrefix(rest, `\u`):
		n = 4
	case strings.HasPrefix(rest, `\U`):
		n = 8
	default:
		return 0, p.errorf("unknown escape sequence %q", rest[:min(len(rest), 2)])
	}
	if len(rest) < 2+n {
		return 0, p.errorf("truncated escape sequence %q", rest)
	}
	code, err := strconv.ParseUint(rest[2:2+n], 16, 32)
	if err != nil {
		return 0, p.errorf("bad escape sequence %q: %w", rest[:2+n], err)
	}
	p.pos += 2 + n
	return rune(code), nil
}

// pnCharsBase lists PN_CHARS_BASE beyond ASCII letters.
var pnCharsBase = [][2]rune{
	{0xC0, 0xD6}, {0xD8, 0xF6}, {0xF8, 0x2FF}, {0x370, 0x37D},
	{0x37F, 0x1FFF}, {0x200C, 0x200D}, {0x2070, 0x218F}, {0x2C00, 0x2FEF},
	{0x3001, 0xD7FF}, {0xF900, 0xFDCF}, {0xFDF0, 0xFFFD}, {0x10000, 0xEFFFF},
}

func isPNCharsU(r rune) bool {
	if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || r == '_' || r == ':' {
		return true
	}
	for _, rr := range pnCharsBase {
		if r >= rr[0] && r <= rr[1] {
			return true
		}
	}
	return false
}

func isPNChars(r rune) bool {
	switch {
	case isPNCharsU(r), r == '-', r >= '0' && r <= '9', r == 0xB7:
		return true
	case r >= 0x300 && r <= 0x36F, r >= 0x203F && r <= 0x2040:
		return true
	}
	return false
}
