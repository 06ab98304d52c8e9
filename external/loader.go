// Package external loads the RDF documents a page links to as alternate
// representations and merges them into one triple store.
package external

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/golang/glog"
	"github.com/google/rdfahier/rdf/iri"
	"github.com/google/rdfahier/rdf/ntriples"
	"github.com/google/rdfahier/rdf/rdfxml"
	"github.com/google/rdfahier/rdf/store"
	"github.com/google/rdfahier/rdf/turtle"
	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// ErrParse is wrapped by every error reporting that a retrieved document is
// not valid RDF. The wrapped chain also holds a *textpos.Error locating the
// problem.
var ErrParse = errors.New("parsing external document failed")

// Media types of the RDF syntaxes the loader understands.
const (
	TurtleMediaType   = "text/turtle"
	NTriplesMediaType = "application/n-triples"
	RDFXMLMediaType   = "application/rdf+xml"
)

// Policy decides what LoadExternalResources does when some documents fail to
// load.
type Policy int

// Valid Policy values.
const (
	// AllOrNothing fails the whole load on the first failure.
	AllOrNothing Policy = iota
	// BestEffort merges every document that loaded and reports the others in
	// a *LoadError.
	BestEffort
)

// LinkError is the failure to load one alternate document.
type LinkError struct {
	URL string
	Err error
}

func (e *LinkError) Error() string { return fmt.Sprintf("%s: %v", e.URL, e.Err) }

func (e *LinkError) Unwrap() error { return e.Err }

// LoadError lists the documents a BestEffort load could not merge.
type LoadError struct {
	Failures []*LinkError
}

func (e *LoadError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%d external documents failed to load: %s", len(e.Failures), strings.Join(msgs, "; "))
}

// Unwrap returns the individual failures so that errors.Is(err, ErrFetch) and
// errors.Is(err, ErrParse) work on a *LoadError.
func (e *LoadError) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f
	}
	return out
}

// Loader fetches alternate documents and parses them into triple stores.
type Loader struct {
	// Fetcher retrieves the documents. It is required; a Loader without one
	// fails every fetch with ErrFetch.
	Fetcher Fetcher
	// Base is the URL of the page. Relative alternate links are resolved
	// against it.
	Base   string
	Policy Policy
}

// ReadExternalResource fetches the document at url.
func (l *Loader) ReadExternalResource(ctx context.Context, url string) (*Response, error) {
	if l.Fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher for %s", ErrFetch, url)
	}
	resp, err := l.Fetcher.Fetch(ctx, url)
	if err != nil {
		if !errors.Is(err, ErrFetch) {
			err = fmt.Errorf("%w: %w", ErrFetch, err)
		}
		return nil, err
	}
	return resp, nil
}

// LoadExternalResource fetches the document at url and adds its triples to
// st. The syntax is chosen from the response Content-Type, defaulting to
// Turtle. Nothing is added to st unless the whole document parses.
func (l *Loader) LoadExternalResource(ctx context.Context, url string, st *store.Store) error {
	return l.load(ctx, Link{Href: url}, st)
}

func (l *Loader) load(ctx context.Context, link Link, st *store.Store) error {
	resp, err := l.ReadExternalResource(ctx, link.Href)
	if err != nil {
		return err
	}
	mediaType := link.Type
	if !isKnownMediaType(mediaType) {
		mediaType = resp.ContentType
	}
	base := resp.URL
	if base == "" {
		base = link.Href
	}
	doc, err := ParseDocument(resp.Body, mediaType, iri.IRI(base))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrParse, link.Href, err)
	}
	added := st.Merge(doc)
	glog.V(1).Infof("merged %d of %d triples from %s", added, doc.Len(), link.Href)
	return nil
}

func isKnownMediaType(contentType string) bool {
	switch mediaTypeOf(contentType) {
	case TurtleMediaType, NTriplesMediaType, RDFXMLMediaType:
		return true
	}
	return false
}

func mediaTypeOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mt
}

// ParseDocument parses body as RDF in the syntax named by contentType into a
// new store. Unknown or empty content types are parsed as Turtle. Blank node
// labels are prefixed with a random scope so that stores built from
// different documents can be merged without conflating blank nodes.
func ParseDocument(body []byte, contentType string, base iri.IRI) (*store.Store, error) {
	st := store.New()
	scope := uuid.NewString() + "-"
	receiver := func(t *ntriples.Triple) error {
		st.Add(t.ScopeBlankNodes(scope))
		return nil
	}
	var err error
	switch mediaTypeOf(contentType) {
	case NTriplesMediaType:
		err = ntriples.Decode(bytes.NewReader(body), receiver)
	case RDFXMLMediaType, "application/xml", "text/xml":
		err = rdfxml.Decode(bytes.NewReader(body), base, receiver)
	default:
		err = turtle.Decode(bytes.NewReader(body), base, receiver)
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// LoadExternalResources loads every alternate document linked from doc into
// a new store. Documents are fetched concurrently. A page without alternate
// links yields an empty store.
//
// Under BestEffort, failures are returned as a *LoadError together with the
// store holding the documents that did load.
func (l *Loader) LoadExternalResources(ctx context.Context, doc *html.Node) (*store.Store, error) {
	links := Links(doc)
	refs := make([]string, len(links))
	for i, link := range links {
		refs[i] = link.Href
	}
	resolved, err := ResolveRefs(l.Base, refs)
	if err != nil {
		return nil, err
	}
	for i := range links {
		links[i].Href = resolved[i]
	}
	glog.V(1).Infof("found %d alternate links", len(links))

	st := store.New()
	if len(links) == 0 {
		return st, nil
	}
	failures := make([]*LinkError, len(links))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, link := range links {
		eg.Go(func() error {
			err := l.load(egCtx, link, st)
			if err == nil {
				return nil
			}
			if l.Policy == AllOrNothing {
				return err
			}
			glog.Warningf("skipping alternate document %s: %v", link.Href, err)
			failures[i] = &LinkError{URL: link.Href, Err: err}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	loadErr := &LoadError{}
	for _, f := range failures {
		if f != nil {
			loadErr.Failures = append(loadErr.Failures, f)
		}
	}
	glog.Infof("loaded %d triples from %d of %d alternate documents", st.Len(), len(links)-len(loadErr.Failures), len(links))
	if len(loadErr.Failures) > 0 {
		return st, loadErr
	}
	return st, nil
}
