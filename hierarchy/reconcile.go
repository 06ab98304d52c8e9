package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/rdfahier/rdf/iri"
	"github.com/google/rdfahier/rdf/ntriples"
	"github.com/google/rdfahier/rdf/store"
	"github.com/google/rdfahier/resource"
)

var (
	// ErrInvalidStore is returned when the reconciler is given no store.
	ErrInvalidStore = errors.New("invalid triple store")
	// ErrAmbiguousHierarchy reports a resource for which the relation table
	// yields more than one parent.
	ErrAmbiguousHierarchy = errors.New("ambiguous hierarchy")
)

// Config controls reconciliation.
type Config struct {
	// Relations are the containment relations, in order of precedence.
	Relations Table
	// Representation lists the predicates linking an external resource to
	// the identifier used for it in the page, in either direction.
	Representation []iri.IRI
	// Strict turns an ambiguous parent into an error. Otherwise the first
	// match wins and a warning is logged.
	Strict bool
	// WalkDescendants also collects the resources contained in the mapped
	// ones, not only their ancestors.
	WalkDescendants bool
}

// Mapping pairs the identifier of a page resource with the identifier of its
// external counterpart.
type Mapping struct {
	Internal iri.IRI `json:"internal"`
	External iri.IRI `json:"external"`
}

// MapInternalExternal finds, for each resource in reg, the external
// resources linked to it by one of the representation predicates. Both
// (external, p, internal) and (internal, p, external) triples count.
// Resources without a counterpart are left out.
func MapInternalExternal(g *store.Store, reg *resource.Registry, representation []iri.IRI) []Mapping {
	if g == nil || reg == nil {
		return nil
	}
	var out []Mapping
	seen := map[Mapping]bool{}
	add := func(m Mapping) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	for _, id := range reg.IDs() {
		for _, p := range representation {
			for _, ext := range g.Subjects(p, id) {
				add(Mapping{Internal: id, External: ext})
			}
			for _, ext := range g.Objects(id, p) {
				add(Mapping{Internal: id, External: ext})
			}
		}
	}
	return out
}

// ParseResourceData builds the external resource id from the triples in g.
// Its types are the rdf:type objects of id. Its parent comes from the first
// relation of table with a (parent, Includes, id) or (id, IsIncludedIn,
// parent) triple.
//
// If the table yields more than one parent, the resource is returned with
// the first one together with an error wrapping ErrAmbiguousHierarchy.
func ParseResourceData(id iri.IRI, g *store.Store, table Table) (*resource.Resource, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: store is nil", ErrInvalidStore)
	}
	r := &resource.Resource{
		ID:    id,
		Types: g.Objects(id, ntriples.RDFType),
	}
	var candidates []iri.IRI
	for _, rel := range table {
		if rel.Includes != "" {
			candidates = appendNew(candidates, g.Subjects(rel.Includes, id)...)
		}
		if rel.IsIncludedIn != "" {
			candidates = appendNew(candidates, g.Objects(id, rel.IsIncludedIn)...)
		}
	}
	if len(candidates) == 0 {
		return r, nil
	}
	r.Parent = candidates[0]
	if len(candidates) > 1 {
		return r, fmt.Errorf("%w: %s has parents %v", ErrAmbiguousHierarchy, id, candidates)
	}
	return r, nil
}

// appendNew appends the values of ids missing from s, ignoring the empty
// IRI.
func appendNew(s []iri.IRI, ids ...iri.IRI) []iri.IRI {
	for _, id := range ids {
		if id == "" {
			continue
		}
		dup := false
		for _, have := range s {
			if have == id {
				dup = true
				break
			}
		}
		if !dup {
			s = append(s, id)
		}
	}
	return s
}

// children returns the resources directly contained in id according to
// table.
func children(id iri.IRI, g *store.Store, table Table) []iri.IRI {
	var out []iri.IRI
	for _, rel := range table {
		if rel.Includes != "" {
			out = appendNew(out, g.Objects(id, rel.Includes)...)
		}
		if rel.IsIncludedIn != "" {
			out = appendNew(out, g.Subjects(rel.IsIncludedIn, id)...)
		}
	}
	return out
}

// ParseHierarchy builds the external resources named by mappings, then
// follows their parents, and with cfg.WalkDescendants their children, so that
// resources only described externally are included too. Resources are
// returned in discovery order without duplicates. Resources without a type
// are kept.
func ParseHierarchy(g *store.Store, mappings []Mapping, cfg Config) ([]*resource.Resource, error) {
	return parseHierarchy(context.Background(), g, mappings, cfg)
}

func parseHierarchy(ctx context.Context, g *store.Store, mappings []Mapping, cfg Config) ([]*resource.Resource, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: store is nil", ErrInvalidStore)
	}
	var queue []iri.IRI
	for _, m := range mappings {
		queue = appendNew(queue, m.External)
	}
	seen := map[iri.IRI]bool{}
	for _, id := range queue {
		seen[id] = true
	}
	out := []*resource.Resource{}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := queue[0]
		queue = queue[1:]
		r, err := ParseResourceData(id, g, cfg.Relations)
		if err != nil {
			if cfg.Strict {
				return nil, err
			}
			glog.Warningf("using first parent %s: %v", r.Parent, err)
		}
		out = append(out, r)

		next := []iri.IRI{r.Parent}
		if cfg.WalkDescendants {
			next = append(next, children(id, g, cfg.Relations)...)
		}
		for _, n := range next {
			if n != "" && !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return out, nil
}

// ListExternalResources maps the resources of reg onto the external
// resources in g and returns the external hierarchy around them. A store
// without representation triples yields an empty list.
func ListExternalResources(ctx context.Context, g *store.Store, reg *resource.Registry, cfg Config) ([]*resource.Resource, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: store is nil", ErrInvalidStore)
	}
	if reg == nil {
		reg = resource.NewRegistry(nil)
	}
	mappings := MapInternalExternal(g, reg, cfg.Representation)
	glog.V(1).Infof("mapped %d of %d page resources to external resources", len(mappings), reg.Len())
	return parseHierarchy(ctx, g, mappings, cfg)
}

// Merge returns a registry over the resources of internal followed by
// external. A page resource wins over an external one with the same
// identifier.
func Merge(internal *resource.Registry, external []*resource.Resource) *resource.Registry {
	var all []*resource.Resource
	if internal != nil {
		all = internal.Resources()
	}
	return resource.NewRegistry(append(all, external...))
}
