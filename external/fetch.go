package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang/glog"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrFetch is wrapped by every error reporting that an external document
// could not be retrieved.
var ErrFetch = errors.New("fetching external document failed")

// StatusError reports a response with a non-2xx status code.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %s returned status %d %s", ErrFetch, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap makes errors.Is(err, ErrFetch) hold for a *StatusError.
func (e *StatusError) Unwrap() error { return ErrFetch }

// Response is a retrieved document.
type Response struct {
	// URL is the final location of the document after redirects.
	URL string
	// ContentType is the media type reported for the document, possibly with
	// parameters. It may be empty.
	ContentType string
	Body        []byte
}

// Fetcher retrieves the document at a URL. Implementations report failures
// with errors wrapping ErrFetch.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (*Response, error)

// Fetch calls f(ctx, url).
func (f FetcherFunc) Fetch(ctx context.Context, url string) (*Response, error) {
	return f(ctx, url)
}

// FileFetcher returns a Fetcher that serves the path component of each URL
// from fsys. It is used to reconcile pages saved to disk together with their
// alternate documents.
func FileFetcher(fsys fs.FS) Fetcher {
	return FetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetch, err)
		}
		name := strings.TrimPrefix(u.Path, "/")
		if name == "" {
			name = strings.TrimPrefix(u.Opaque, "/")
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFetch, rawURL, err)
		}
		return &Response{URL: rawURL, ContentType: contentTypeFromExtension(name), Body: body}, nil
	})
}

func contentTypeFromExtension(name string) string {
	switch {
	case strings.HasSuffix(name, ".ttl"):
		return TurtleMediaType
	case strings.HasSuffix(name, ".nt"):
		return NTriplesMediaType
	case strings.HasSuffix(name, ".rdf"), strings.HasSuffix(name, ".owl"):
		return RDFXMLMediaType
	}
	return ""
}

// HTTPOptions configures an HTTPFetcher.
type HTTPOptions struct {
	// Timeout bounds each request, including reading the body. Zero means
	// DefaultTimeout.
	Timeout time.Duration
	// UserAgent is sent with every request when non-empty.
	UserAgent string
	// MaxBytes limits the size of a document. Zero means DefaultMaxBytes.
	MaxBytes int64
	// CacheSize is the number of successful responses kept. Zero disables
	// caching.
	CacheSize int
	// Accept is the Accept header sent with every request. Empty means
	// RDFAccept.
	Accept string
	// Transport overrides http.DefaultTransport.
	Transport http.RoundTripper
}

// Defaults applied by NewHTTPFetcher.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxBytes int64 = 16 << 20
)

// Accept headers for the two kinds of documents the program reads.
const (
	// RDFAccept lists the RDF syntaxes the loader can parse, Turtle first.
	RDFAccept = "text/turtle, application/n-triples;q=0.9, application/rdf+xml;q=0.8, */*;q=0.1"
	// HTMLAccept asks for an annotated page.
	HTMLAccept = "text/html, application/xhtml+xml;q=0.9"
)

// IsHTML reports whether contentType names an HTML or XHTML document.
func IsHTML(contentType string) bool {
	switch mediaTypeOf(contentType) {
	case "text/html", "application/xhtml+xml":
		return true
	}
	return false
}

// HTTPFetcher fetches documents over HTTP and caches successful responses by
// URL.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	accept    string
	maxBytes  int64
	cache     *lru.Cache[string, *Response]
}

// NewHTTPFetcher returns an HTTPFetcher configured by opts.
func NewHTTPFetcher(opts HTTPOptions) (*HTTPFetcher, error) {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes == 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Accept == "" {
		opts.Accept = RDFAccept
	}
	f := &HTTPFetcher{
		client:    &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
		userAgent: opts.UserAgent,
		accept:    opts.Accept,
		maxBytes:  opts.MaxBytes,
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, *Response](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create response cache: %w", err)
		}
		f.cache = cache
	}
	return f, nil
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if f.cache != nil {
		if resp, ok := f.cache.Get(rawURL); ok {
			glog.V(2).Infof("cache hit for %s", rawURL)
			return resp, nil
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", f.accept)
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	httpResp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, StatusCode: httpResp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrFetch, rawURL, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrFetch, rawURL, f.maxBytes)
	}
	resp := &Response{
		URL:         httpResp.Request.URL.String(),
		ContentType: httpResp.Header.Get("Content-Type"),
		Body:        body,
	}
	if f.cache != nil {
		f.cache.Add(rawURL, resp)
	}
	return resp, nil
}
