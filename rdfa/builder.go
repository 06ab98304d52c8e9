package rdfa

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/google/rdfahier/dom"
	"github.com/google/rdfahier/rdf/iri"
	"github.com/google/rdfahier/resource"
)

// ParseResource builds the resource declared by n. n must carry a resource
// identifier and a typeof attribute. The vocab and prefix attributes of n
// apply to its own values, and the parent is ctx.ParentResource.
func ParseResource(n dom.Node, ctx Context) (*resource.Resource, error) {
	r, err := parseResource(n, ctx)
	if err != nil {
		return nil, elementError(n, err)
	}
	return r, nil
}

func parseResource(n dom.Node, ctx Context) (*resource.Resource, error) {
	id, err := ResourceIdentifier(n)
	if err != nil {
		return nil, err
	}
	local, err := localContext(n, ctx)
	if err != nil {
		return nil, err
	}
	attrs := ReadAttributes(n)
	if attrs.Typeof == nil {
		return nil, ErrMissingType
	}
	types, err := ParseTypeAttribute(*attrs.Typeof, local)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return nil, ErrMissingType
	}
	var props []iri.IRI
	if attrs.Property != nil {
		if props, err = ParsePropertyAttribute(*attrs.Property, local); err != nil {
			return nil, err
		}
	}
	return &resource.Resource{
		ID:         id,
		Types:      types,
		Parent:     ctx.ParentResource,
		Properties: props,
	}, nil
}

func elementError(n dom.Node, err error) error {
	if xp := dom.ElementXPath(n); xp != "" {
		return fmt.Errorf("element %s: %w", xp, err)
	}
	return err
}

// Option can be passed to ParseResources and RegisterResources to alter how
// the document is walked.
type Option interface {
	apply(b *builder)
}

type simpleOption func(b *builder)

func (opt simpleOption) apply(b *builder) { opt(b) }

// SkipInvalid returns an option that reports elements whose resource cannot
// be built to handler and carries on with the walk, instead of failing on the
// first such element. A nil handler logs a warning.
//
// The children of a skipped element still see its identifier as their parent.
func SkipInvalid(handler func(n dom.Node, err error)) Option {
	if handler == nil {
		handler = func(_ dom.Node, err error) { glog.Warningf("skipping RDFa element: %v", err) }
	}
	return simpleOption(func(b *builder) {
		b.onError = handler
	})
}

// WithXPath returns an option that records the XPath of each element on the
// resource built from it.
func WithXPath(enabled bool) Option {
	return simpleOption(func(b *builder) {
		b.xpath = enabled
	})
}

type builder struct {
	onError func(dom.Node, error)
	xpath   bool
	out     []*resource.Resource
}

func newBuilder(opts []Option) *builder {
	b := &builder{}
	for _, opt := range opts {
		opt.apply(b)
	}
	return b
}

// fail returns err annotated with the element's XPath, or nil if the builder
// skips invalid elements.
func (b *builder) fail(n dom.Node, err error) error {
	err = elementError(n, err)
	if b.onError == nil {
		return err
	}
	b.onError(n, err)
	return nil
}

// ParseResources walks the subtree rooted at n in document order and returns
// a resource for every element carrying a resource identifier. Each
// resource's parent is the identifier of its nearest container ancestor
// within the walk, or ctx.ParentResource.
//
// By default the walk stops at the first element that fails to yield a
// resource. See SkipInvalid.
func ParseResources(n dom.Node, ctx Context, opts ...Option) ([]*resource.Resource, error) {
	b := newBuilder(opts)
	if err := b.walk(n, ctx); err != nil {
		return nil, err
	}
	return b.out, nil
}

func (b *builder) walk(n dom.Node, ctx Context) error {
	if !dom.IsElement(n) {
		return nil
	}
	local, ctxErr := localContext(n, ctx)
	if ctxErr != nil {
		if err := b.fail(n, ctxErr); err != nil {
			return err
		}
		local = ctx
	}
	if HasResourceAttribute(n) {
		if ctxErr == nil {
			r, err := parseResource(n, ctx)
			if err != nil {
				if err := b.fail(n, err); err != nil {
					return err
				}
			} else {
				if b.xpath {
					r.XPath = dom.ElementXPath(n)
				}
				b.out = append(b.out, r)
			}
		}
		if id, err := ResourceIdentifier(n); err == nil {
			local.ParentResource = id
		}
	}
	for _, c := range n.Children() {
		if err := b.walk(c, local); err != nil {
			return err
		}
	}
	return nil
}

// RegisterResources walks the document or element root from an empty context
// and indexes the resources found. A root that is neither yields an empty
// registry.
func RegisterResources(root dom.Node, opts ...Option) (*resource.Registry, error) {
	if root != nil && root.Kind() == dom.DocumentNode {
		root = dom.DocumentElement(root)
	}
	if !dom.IsElement(root) {
		return resource.NewRegistry(nil), nil
	}
	resources, err := ParseResources(root, EmptyContext(), opts...)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("registered %d RDFa resources under %s", len(resources), dom.ElementXPath(root))
	return resource.NewRegistry(resources), nil
}
