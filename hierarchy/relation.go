// Package hierarchy reconciles the resources found in a page with the
// containment hierarchy described by external RDF documents.
package hierarchy

import (
	"fmt"

	"github.com/google/rdfahier/rdf/iri"
)

// Relation is a pair of mutually inverse containment predicates:
//
//	parent --Includes--> child
//	child --IsIncludedIn--> parent
//
// IsIncludedIn may be empty when the relation is only stated downwards.
type Relation struct {
	Includes     iri.IRI `json:"includes"`
	IsIncludedIn iri.IRI `json:"isIncludedIn,omitempty"`
}

// Table is an ordered list of relations. Earlier relations take precedence
// when several describe the same resource.
type Table []Relation

// Includes reports whether p is the Includes member of some relation.
func (t Table) Includes(p iri.IRI) bool {
	if p == "" {
		return false
	}
	for _, r := range t {
		if r.Includes == p {
			return true
		}
	}
	return false
}

// IsIncludedIn reports whether p is the IsIncludedIn member of some
// relation.
func (t Table) IsIncludedIn(p iri.IRI) bool {
	if p == "" {
		return false
	}
	for _, r := range t {
		if r.IsIncludedIn == p {
			return true
		}
	}
	return false
}

// Inverse returns the predicate paired with p. It reports false when p is not
// in the table or its relation declares no inverse.
func (t Table) Inverse(p iri.IRI) (iri.IRI, bool) {
	if p == "" {
		return "", false
	}
	for _, r := range t {
		switch p {
		case r.Includes:
			return r.IsIncludedIn, r.IsIncludedIn != ""
		case r.IsIncludedIn:
			return r.Includes, true
		}
	}
	return "", false
}

// Validate checks that every relation has an Includes predicate and that no
// predicate is used twice.
func (t Table) Validate() error {
	seen := map[iri.IRI]bool{}
	for i, r := range t {
		if r.Includes == "" {
			return fmt.Errorf("relation %d has no includes predicate", i)
		}
		for _, p := range []iri.IRI{r.Includes, r.IsIncludedIn} {
			if p == "" {
				continue
			}
			if seen[p] {
				return fmt.Errorf("relation %d reuses predicate %s", i, p)
			}
			seen[p] = true
		}
	}
	return nil
}

// ResourceIncludes reports whether p is an Includes predicate of relations.
func ResourceIncludes(p iri.IRI, relations Table) bool { return relations.Includes(p) }

// ResourceIsIncludedIn reports whether p is an IsIncludedIn predicate of
// relations.
func ResourceIsIncludedIn(p iri.IRI, relations Table) bool { return relations.IsIncludedIn(p) }

// InverseIncludes returns the predicate paired with p, or "" if there is none.
func InverseIncludes(p iri.IRI, relations Table) iri.IRI {
	inv, _ := relations.Inverse(p)
	return inv
}
