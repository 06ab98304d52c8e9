// Package resource holds the resources extracted from an RDFa page or an
// external RDF document, and a read-only index over them.
package resource

import (
	"github.com/google/rdfahier/rdf/iri"
)

// Resource is one node of a resource hierarchy.
type Resource struct {
	// ID identifies the resource.
	ID iri.IRI `json:"id"`
	// Types lists the resolved types in attribute or store order. It is
	// non-empty for resources read from a typed element and may be empty for
	// external resources without an rdf:type triple.
	Types []iri.IRI `json:"types,omitempty"`
	// Parent is the identifier of the containing resource, or "" for a root.
	Parent iri.IRI `json:"parent,omitempty"`
	// Properties lists the resolved property IRIs relating the resource to
	// its parent.
	Properties []iri.IRI `json:"properties,omitempty"`
	// XPath locates the element the resource was read from. External
	// resources leave it empty.
	XPath string `json:"xpath,omitempty"`
}

// Type returns the first type, or "" if the resource is untyped.
func (r *Resource) Type() iri.IRI {
	if len(r.Types) == 0 {
		return ""
	}
	return r.Types[0]
}

// HasType reports whether t is one of the resource's types.
func (r *Resource) HasType(t iri.IRI) bool {
	for _, got := range r.Types {
		if got == t {
			return true
		}
	}
	return false
}

// IsRoot reports whether the resource has no parent.
func (r *Resource) IsRoot() bool { return r.Parent == "" }

// Registry indexes a sequence of resources by identifier and by parent.
//
// A Registry is immutable once built and safe for concurrent reads. When two
// resources share an identifier the first one wins, matching the pre-order in
// which the builder emits them.
type Registry struct {
	order    []iri.IRI
	index    map[iri.IRI]*Resource
	children map[iri.IRI][]iri.IRI
	roots    []iri.IRI
}

// NewRegistry builds a registry over resources, keeping their order.
func NewRegistry(resources []*Resource) *Registry {
	reg := &Registry{
		index:    make(map[iri.IRI]*Resource, len(resources)),
		children: make(map[iri.IRI][]iri.IRI),
	}
	for _, r := range resources {
		if r == nil {
			continue
		}
		if _, dup := reg.index[r.ID]; dup {
			continue
		}
		reg.index[r.ID] = r
		reg.order = append(reg.order, r.ID)
		if r.IsRoot() {
			reg.roots = append(reg.roots, r.ID)
			continue
		}
		reg.children[r.Parent] = append(reg.children[r.Parent], r.ID)
	}
	return reg
}

// Len returns the number of distinct resources.
func (reg *Registry) Len() int { return len(reg.order) }

// Get returns the resource with the given identifier.
func (reg *Registry) Get(id iri.IRI) (*Resource, bool) {
	r, ok := reg.index[id]
	return r, ok
}

// IDs returns the resource identifiers in registration order.
func (reg *Registry) IDs() []iri.IRI {
	return append([]iri.IRI(nil), reg.order...)
}

// Resources returns the resources in registration order.
func (reg *Registry) Resources() []*Resource {
	out := make([]*Resource, 0, len(reg.order))
	for _, id := range reg.order {
		out = append(out, reg.index[id])
	}
	return out
}

// ChildrenOf returns the identifiers of the resources whose parent is id, in
// registration order.
func (reg *Registry) ChildrenOf(id iri.IRI) []iri.IRI {
	return append([]iri.IRI(nil), reg.children[id]...)
}

// Roots returns the identifiers of resources without a parent.
func (reg *Registry) Roots() []iri.IRI {
	return append([]iri.IRI(nil), reg.roots...)
}

// Ancestors returns the chain of parent identifiers of id, nearest first.
// The chain stops at the first parent missing from the registry or at a
// cycle.
func (reg *Registry) Ancestors(id iri.IRI) []iri.IRI {
	var out []iri.IRI
	seen := map[iri.IRI]bool{id: true}
	for r, ok := reg.index[id]; ok && !r.IsRoot(); r, ok = reg.index[r.Parent] {
		if seen[r.Parent] {
			break
		}
		seen[r.Parent] = true
		out = append(out, r.Parent)
	}
	return out
}
