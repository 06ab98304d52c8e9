// Package store provides an in-memory RDF graph with set semantics and
// pattern matching, filled concurrently by the external document loader.
package store

import (
	"sync"

	"github.com/google/rdfahier/rdf/iri"
	"github.com/google/rdfahier/rdf/ntriples"
)

// Store is a set of triples. Triples are kept in insertion order and indexed
// by subject and object. A Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	triples   []*ntriples.Triple
	seen      map[string]struct{}
	bySubject map[string][]int
	byObject  map[string][]int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		seen:      make(map[string]struct{}),
		bySubject: make(map[string][]int),
		byObject:  make(map[string][]int),
	}
}

// Add inserts t and reports whether it was not already present.
func (s *Store) Add(t *ntriples.Triple) bool {
	key := t.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(key, t)
}

func (s *Store) addLocked(key string, t *ntriples.Triple) bool {
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	i := len(s.triples)
	s.triples = append(s.triples, t)
	sk, objKey := t.Subject().String(), t.Object().String()
	s.bySubject[sk] = append(s.bySubject[sk], i)
	s.byObject[objKey] = append(s.byObject[objKey], i)
	return true
}

// AddAll inserts every triple under a single lock and returns how many were
// new.
func (s *Store) AddAll(triples []*ntriples.Triple) int {
	keys := make([]string, len(triples))
	for i, t := range triples {
		keys[i] = t.String()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i, t := range triples {
		if s.addLocked(keys[i], t) {
			n++
		}
	}
	return n
}

// Merge adds all triples of other to s.
func (s *Store) Merge(other *Store) int {
	return s.AddAll(other.Triples())
}

// Len returns the number of distinct triples.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.triples)
}

// Triples returns a copy of the triples in insertion order.
func (s *Store) Triples() []*ntriples.Triple {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*ntriples.Triple(nil), s.triples...)
}

// Match returns the triples matching the pattern in insertion order. A nil
// subject or object and an empty predicate match anything.
func (s *Store) Match(subject *ntriples.Subject, predicate iri.IRI, object *ntriples.Object) []*ntriples.Triple {
	var out []*ntriples.Triple
	s.each(subject, predicate, object, func(t *ntriples.Triple) bool {
		out = append(out, t)
		return true
	})
	return out
}

// Any returns the first triple matching the pattern, or nil.
func (s *Store) Any(subject *ntriples.Subject, predicate iri.IRI, object *ntriples.Object) *ntriples.Triple {
	var found *ntriples.Triple
	s.each(subject, predicate, object, func(t *ntriples.Triple) bool {
		found = t
		return false
	})
	return found
}

// Has reports whether any triple matches the pattern.
func (s *Store) Has(subject *ntriples.Subject, predicate iri.IRI, object *ntriples.Object) bool {
	return s.Any(subject, predicate, object) != nil
}

// Objects returns the IRI objects of triples (subject, predicate, ?).
func (s *Store) Objects(subject iri.IRI, predicate iri.IRI) []iri.IRI {
	var out []iri.IRI
	s.each(ntriples.NewSubjectIRI(subject), predicate, nil, func(t *ntriples.Triple) bool {
		if t.Object().IsIRI() {
			out = append(out, t.Object().IRI())
		}
		return true
	})
	return out
}

// Subjects returns the IRI subjects of triples (?, predicate, object).
func (s *Store) Subjects(predicate iri.IRI, object iri.IRI) []iri.IRI {
	var out []iri.IRI
	s.each(nil, predicate, ntriples.NewObjectIRI(object), func(t *ntriples.Triple) bool {
		if t.Subject().IsIRI() {
			out = append(out, t.Subject().IRI())
		}
		return true
	})
	return out
}

// each calls fn for matching triples until fn returns false.
func (s *Store) each(subject *ntriples.Subject, predicate iri.IRI, object *ntriples.Object, fn func(*ntriples.Triple) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := s.candidates(subject, object)
	match := func(t *ntriples.Triple) bool {
		if subject != nil && !subject.Equal(t.Subject()) {
			return false
		}
		if predicate != "" && predicate != t.Predicate() {
			return false
		}
		if object != nil && !object.Equal(t.Object()) {
			return false
		}
		return true
	}
	if candidates == nil {
		for _, t := range s.triples {
			if match(t) && !fn(t) {
				return
			}
		}
		return
	}
	for _, i := range *candidates {
		if t := s.triples[i]; match(t) && !fn(t) {
			return
		}
	}
}

// candidates returns the smaller index list for the bound terms, or nil when
// neither subject nor object is bound.
func (s *Store) candidates(subject *ntriples.Subject, object *ntriples.Object) *[]int {
	var best *[]int
	if subject != nil {
		l := s.bySubject[subject.String()]
		best = &l
	}
	if object != nil {
		l := s.byObject[object.String()]
		if best == nil || len(l) < len(*best) {
			best = &l
		}
	}
	return best
}
