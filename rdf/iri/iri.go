// Package iri contains facilities for working with Internationalized Resource
// Identifiers as specified in RFC 3987.
//
// RFC reference: https://www.ietf.org/rfc/rfc3987.html
package iri

import (
	"fmt"
	"regexp"
	"strings"
)

// An IRI (Internationalized Resource Identifier) within an RDF graph is a
// Unicode string [UNICODE] that conforms to the syntax defined in RFC 3987
// [RFC3987].
//
// The empty IRI is used throughout this module to mean "no IRI".
//
// See https://www.w3.org/TR/2014/REC-rdf11-concepts-20140225/#dfn-iri.
type IRI string

// components holds the parts of an IRI reference as split by the RFC 3986
// appendix B expression.
type components struct {
	scheme, authority, path, fragment string
	hasAuthority                      bool
}

func split(s string) (components, bool) {
	m := uriRE.FindStringSubmatch(s)
	if m == nil {
		return components{}, false
	}
	return components{
		scheme:       m[uriRESchemeGroup],
		authority:    m[uriREAuthorityGroup],
		path:         m[uriREPathGroup],
		fragment:     m[uriREFragmentGroup],
		hasAuthority: m[uriREAuthorityWithSlashSlahGroup] != "",
	}, true
}

// check validates each component against its RFC 3987 production.
func (c components) check() error {
	for _, part := range []struct {
		name, value string
		re          *regexp.Regexp
	}{
		{"scheme", c.scheme, schemeRE},
		{"authority", c.authority, iauthorityRE},
		{"path", c.path, ipathRE},
		{"fragment", c.fragment, ifragmentRE},
	} {
		if part.value != "" && !part.re.MatchString(part.value) {
			return fmt.Errorf("invalid %s %q does not match regexp %s", part.name, part.value, part.re)
		}
	}
	return nil
}

// Parse parses a string into an IRI and checks that it conforms to RFC 3987.
// Relative references are accepted.
func Parse(s string) (IRI, error) {
	c, ok := split(s)
	if !ok {
		return "", fmt.Errorf("%q is not a valid IRI - does not match regexp %s", s, uriRE)
	}
	if err := c.check(); err != nil {
		return "", fmt.Errorf("%q is not a valid IRI: %w", s, err)
	}
	return IRI(s), nil
}

// ParseAbsolute is like Parse but additionally requires a scheme.
func ParseAbsolute(s string) (IRI, error) {
	parsed, err := Parse(s)
	if err != nil {
		return "", err
	}
	if parsed.Scheme() == "" {
		return "", fmt.Errorf("%q is not an absolute IRI: missing scheme", s)
	}
	return parsed, nil
}

// Check returns an error if the IRI is invalid.
func (iri IRI) Check() error {
	_, err := Parse(string(iri))
	return err
}

// String returns the N-Triples-formatted IRI: "<" + iri + ">".
func (iri IRI) String() string {
	return fmt.Sprintf("<%s>", string(iri))
}

// Scheme returns the scheme of the IRI without the trailing colon, or the empty
// string for a relative reference.
func (iri IRI) Scheme() string {
	c, ok := split(string(iri))
	if !ok || !schemeRE.MatchString(c.scheme) {
		return ""
	}
	return c.scheme
}

// HasAuthority reports if the IRI has a "//" authority component, as in
// "http://example.org/x" but not "urn:isbn:123".
func (iri IRI) HasAuthority() bool {
	c, ok := split(string(iri))
	return ok && c.hasAuthority
}

// IsZero reports if the IRI is the empty string.
func (iri IRI) IsZero() bool { return iri == "" }

// EndsWithDelimiter reports if the IRI ends in "#" or "/", in which case local
// names are appended directly rather than after a "#".
func (iri IRI) EndsWithDelimiter() bool {
	return strings.HasSuffix(string(iri), "#") || strings.HasSuffix(string(iri), "/")
}

// JoinLocal appends a local name to a namespace IRI. A "#" is inserted unless
// the namespace already ends in "#" or "/".
func JoinLocal(namespace IRI, local string) IRI {
	if namespace.EndsWithDelimiter() {
		return namespace + IRI(local)
	}
	return namespace + "#" + IRI(local)
}

// LocalName returns the part of the IRI after the last "#" or "/", or the
// whole IRI when neither occurs.
func (iri IRI) LocalName() string {
	s := string(iri)
	if i := strings.LastIndexAny(s, "#/"); i >= 0 && i < len(s)-1 {
		return s[i+1:]
	}
	return s
}

// Regular expression const strings, mostly derived from
// https://www.ietf.org/rfc/rfc3987.html#section-2.2.
const (
	hex        = `[0-9A-Fa-f]`
	alphaChars = "[a-zA-Z]" // see https://tools.ietf.org/html/rfc5234 B.1. "ALPHA"
	digitChars = `\d`       // see https://tools.ietf.org/html/rfc5234 B.1. "DIGIT"
	ucschar    = (`[\xA0-\x{D7FF}` +
		`\x{F900}-\x{FDCF}` +
		`\x{FDF0}-\x{FFEF}` +
		`\x{10000}-\x{1FFFD}` +
		`\x{20000}-\x{2FFFD}` +
		`\x{30000}-\x{3FFFD}` +
		`\x{40000}-\x{4FFFD}` +
		`\x{50000}-\x{5FFFD}` +
		`\x{60000}-\x{6FFFD}` +
		`\x{70000}-\x{7FFFD}` +
		`\x{80000}-\x{8FFFD}` +
		`\x{90000}-\x{9FFFD}` +
		`\x{A0000}-\x{AFFFD}` +
		`\x{B0000}-\x{BFFFD}` +
		`\x{C0000}-\x{CFFFD}` +
		`\x{D0000}-\x{DFFFD}` +
		`\x{E1000}-\x{EFFFD}]`)
	unreserved  = (`(?:` + alphaChars + "|" + digitChars + `|[\-\._~]` + `)`)
	iunreserved = (`(?:` + alphaChars + "|" + digitChars + `|[\-\._~]|` + ucschar + `)`)

	subDelims  = `[!\$\&\'\(\)\*\+\,\;\=]`
	pctEncoded = `%` + hex + hex

	ipchar = "(?:" + iunreserved + "|" + pctEncoded + "|" + subDelims + `|[\:@])`

	scheme = "(?:" + alphaChars + "(?:" + alphaChars + "|" + digitChars + `|[\+\-\.])*)`

	iauthority = `(?:` + iuserinfo + "@)?" + ihost + `(?:\:` + port + `)?`
	iuserinfo  = `(?:(?:` + iunreserved + `|` + pctEncoded + `|` + subDelims + `)*)`
	port       = `(?:\d*)`
	ihost      = `(?:` + ipLiteral + `|` + iregName + `)`
	iregName   = "(?:(?:" + iunreserved + "|" + pctEncoded + "|" + subDelims + ")*)" // *( iunreserved / pctEncoded / subDelims )

	// Paths are checked loosely: any sequence of ipchar and "/".
	ipath = `(?:(?:` + ipchar + `|\/)*)`

	ifragment = `(?:(?:` + ipchar + `|` + `[\/\?]` + `)*)`

	ipLiteral = `\[[0-9A-Fa-f:\.vV]+\]`
)

var (
	schemeRE     = regexp.MustCompile("^" + scheme + "$")
	iauthorityRE = regexp.MustCompile("^" + iauthority + "$")
	ipathRE      = regexp.MustCompile("^" + ipath + "$")
	ifragmentRE  = regexp.MustCompile("^" + ifragment + "$")

	// re from RFC 3986 page 50.
	uriRE                            = regexp.MustCompile(`^(([^:/?#]+):)?(//([^/?#]*))?([^?#]*)(\?([^#]*))?(#(.*))?`)
	uriRESchemeGroup                 = 2
	uriREAuthorityWithSlashSlahGroup = 3
	uriREAuthorityGroup              = 4
	uriREPathGroup                   = 5
	uriREFragmentGroup               = 9
)
