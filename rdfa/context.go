// Package rdfa extracts a hierarchy of typed resources from the RDFa
// attributes of an HTML document.
//
// Only a subset of RDFa 1.1 is recognized: the about, resource, vocab, prefix,
// property and typeof attributes. Type and property values are classified as
// absolute IRIs, prefixed names or literals and resolved against a Context
// that is threaded through the document walk.
package rdfa

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/google/rdfahier/dom"
	"github.com/google/rdfahier/rdf/iri"
)

// Errors reported while reading RDFa attributes. Returned errors wrap one of
// these and, when produced for an element, name its XPath.
var (
	ErrSyntax                    = errors.New("rdfa syntax error")
	ErrMissingResourceIdentifier = errors.New("element has no about or resource attribute")
	ErrMissingType               = errors.New("element has no typeof attribute")
	ErrUnresolvedVocabulary      = errors.New("literal used without a vocabulary in scope")
	ErrUnknownPrefix             = errors.New("unknown prefix")
)

// Context is the resolution state in effect at an element: the default
// vocabulary, the declared prefixes and the nearest enclosing resource.
//
// A Context is a value. Deriving a context for a child element never modifies
// the parent's Prefixes map.
type Context struct {
	// Vocabulary resolves literal names. "" means no vocabulary is in scope.
	Vocabulary iri.IRI
	// Prefixes maps prefix labels, without the colon, to namespace IRIs.
	Prefixes map[string]iri.IRI
	// ParentResource is the identifier of the nearest resource ancestor, or "".
	ParentResource iri.IRI
}

// EmptyContext returns the context at the root of a walk.
func EmptyContext() Context {
	return Context{Prefixes: map[string]iri.IRI{}}
}

// Clone returns a copy of c that does not share its prefix map.
func (c Context) Clone() Context {
	out := c
	out.Prefixes = make(map[string]iri.IRI, len(c.Prefixes))
	maps.Copy(out.Prefixes, c.Prefixes)
	return out
}

// CopyContext derives the context for n's children from the context of n's
// parent. The vocab attribute of n replaces the vocabulary, its prefix
// declarations are merged over the inherited ones, and ParentResource becomes
// n's identifier when n carries one.
func CopyContext(n dom.Node, parent Context) (Context, error) {
	ctx, err := localContext(n, parent)
	if err != nil {
		return Context{}, err
	}
	if id, err := ResourceIdentifier(n); err == nil {
		ctx.ParentResource = id
	}
	return ctx, nil
}

// localContext is CopyContext without the ParentResource update: the context
// in which n's own typeof and property values resolve.
func localContext(n dom.Node, parent Context) (Context, error) {
	ctx := parent.Clone()
	attrs := ReadAttributes(n)
	if attrs.Vocab != nil {
		ctx.Vocabulary = iri.IRI(strings.TrimSpace(*attrs.Vocab))
	}
	if attrs.Prefix != nil {
		prefixes, err := ParsePrefixAttribute(*attrs.Prefix)
		if err != nil {
			return Context{}, err
		}
		maps.Copy(ctx.Prefixes, prefixes)
	}
	return ctx, nil
}

// ParsePrefixAttribute parses the value of a prefix attribute, a whitespace
// separated sequence of "label:" and namespace IRI tokens. A later
// declaration of a label replaces an earlier one.
func ParsePrefixAttribute(s string) (map[string]iri.IRI, error) {
	toks := strings.Fields(s)
	if len(toks)%2 != 0 {
		return nil, fmt.Errorf("%w: prefix attribute %q has an odd number of tokens", ErrSyntax, s)
	}
	out := make(map[string]iri.IRI, len(toks)/2)
	for i := 0; i < len(toks); i += 2 {
		label, ns := toks[i], toks[i+1]
		if !IsPrefixLabel(label) {
			return nil, fmt.Errorf("%w: invalid prefix label %q in %q", ErrSyntax, label, s)
		}
		parsed, err := iri.ParseAbsolute(ns)
		if err != nil {
			return nil, fmt.Errorf("%w: prefix %s: %v", ErrSyntax, label, err)
		}
		out[strings.TrimSuffix(label, ":")] = parsed
	}
	return out, nil
}

// IsPrefixLabel reports whether tok is a prefix declaration label: a
// non-empty name followed by exactly one colon.
func IsPrefixLabel(tok string) bool {
	label, ok := strings.CutSuffix(tok, ":")
	return ok && label != "" && !strings.ContainsAny(label, ": \t\n\r\f")
}

// IsLiteral reports whether s is a bare name that resolves against the
// vocabulary.
func IsLiteral(s string) bool {
	return s != "" && !strings.Contains(s, ":")
}

// HasTypePrefix reports whether s has the shape of a prefixed name,
// "label:local". Full IRIs such as "http://example.org/x" are not prefixed.
func HasTypePrefix(s string) bool {
	return strings.Count(s, ":") == 1 && !strings.Contains(s, "://") && !strings.HasPrefix(s, ":")
}

// Single-colon values with these schemes are IRIs unless the label has been
// declared as a prefix.
var opaqueSchemes = map[string]bool{
	"urn":    true,
	"tag":    true,
	"mailto": true,
	"doi":    true,
	"data":   true,
}

func isAbsolute(s string, ctx Context) (bool, error) {
	if strings.Contains(s, "://") {
		return true, nil
	}
	switch strings.Count(s, ":") {
	case 0:
		return false, nil
	case 1:
		label, _, _ := strings.Cut(s, ":")
		_, declared := ctx.Prefixes[label]
		return opaqueSchemes[strings.ToLower(label)] && !declared, nil
	}
	parsed, err := iri.Parse(s)
	if err != nil || parsed.Scheme() == "" {
		return false, fmt.Errorf("%w: %q is neither a prefixed name nor an absolute IRI", ErrSyntax, s)
	}
	return true, nil
}

// LiteralIRI resolves a literal name against a vocabulary, inserting "#"
// unless the vocabulary ends in "#" or "/".
func LiteralIRI(s string, vocab iri.IRI) (iri.IRI, error) {
	if vocab == "" {
		return "", fmt.Errorf("%w: %q", ErrUnresolvedVocabulary, s)
	}
	return iri.JoinLocal(vocab, s), nil
}

// PrefixedIRI resolves a "label:local" name against the prefixes of ctx.
func PrefixedIRI(s string, ctx Context) (iri.IRI, error) {
	label, local, ok := strings.Cut(s, ":")
	if !ok {
		return "", fmt.Errorf("%w: %q is not a prefixed name", ErrSyntax, s)
	}
	ns, ok := ctx.Prefixes[label]
	if !ok {
		return "", fmt.Errorf("%w %q in %q", ErrUnknownPrefix, label, s)
	}
	return iri.JoinLocal(ns, local), nil
}

// ResolveIRI resolves a single typeof or property value. Absolute IRIs are
// returned unchanged, prefixed names go through ctx.Prefixes and anything
// else is a literal resolved against ctx.Vocabulary.
func ResolveIRI(s string, ctx Context) (iri.IRI, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty name", ErrSyntax)
	}
	abs, err := isAbsolute(s, ctx)
	switch {
	case err != nil:
		return "", err
	case abs:
		return iri.IRI(s), nil
	case HasTypePrefix(s), strings.HasPrefix(s, ":") && strings.Count(s, ":") == 1:
		// The empty label is never declared, so ":local" is an unknown prefix.
		return PrefixedIRI(s, ctx)
	case strings.Contains(s, ":"):
		return "", fmt.Errorf("%w: %q is not a valid name", ErrSyntax, s)
	}
	return LiteralIRI(s, ctx.Vocabulary)
}

// ParseTypeAttribute resolves each space separated value of a typeof
// attribute, keeping their order.
func ParseTypeAttribute(attr string, ctx Context) ([]iri.IRI, error) {
	return resolveAll("typeof", attr, ctx)
}

// ParsePropertyAttribute is like ParseTypeAttribute for a property attribute.
func ParsePropertyAttribute(attr string, ctx Context) ([]iri.IRI, error) {
	return resolveAll("property", attr, ctx)
}

func resolveAll(attrName, attr string, ctx Context) ([]iri.IRI, error) {
	var out []iri.IRI
	for _, tok := range strings.Fields(attr) {
		resolved, err := ResolveIRI(tok, ctx)
		if err != nil {
			return nil, fmt.Errorf("%s value %q: %w", attrName, tok, err)
		}
		out = append(out, resolved)
	}
	return out, nil
}
