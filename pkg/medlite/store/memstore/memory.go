package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cognicore/medlite/pkg/medlite/config"
	"github.com/cognicore/medlite/pkg/medlite/store"
)

// Store is an in-memory implementation of store.ConceptIndex, loaded from
// a YAML concept dictionary or filled with UpsertConcept in tests.
type Store struct {
	mu       sync.RWMutex
	concepts map[string]store.Concept // cui -> concept
	terms    map[string][]string      // term key -> cuis in insertion order
	maxLen   int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		concepts: make(map[string]store.Concept),
		terms:    make(map[string][]string),
	}
}

// FromDictionary builds a store from a parsed concept dictionary.
func FromDictionary(dict *config.ConceptDictionary) *Store {
	s := New()
	for _, e := range dict.Concepts {
		_ = s.UpsertConcept(context.Background(), FromEntry(e))
	}
	return s
}

// Open loads the YAML concept dictionary at path.
func Open(path string) (*Store, error) {
	dict, err := config.LoadConceptDictionary(path)
	if err != nil {
		return nil, err
	}
	return FromDictionary(dict), nil
}

// FromEntry converts a dictionary entry to a concept. The preferred name is
// always one of its terms.
func FromEntry(e config.ConceptEntry) store.Concept {
	c := store.Concept{
		CUI:           strings.TrimSpace(e.CUI),
		PreferredName: strings.TrimSpace(e.PreferredName),
		SemanticTypes: append([]string(nil), e.SemanticTypes...),
		Sources:       append([]string(nil), e.Sources...),
	}
	if c.PreferredName != "" {
		c.Terms = append(c.Terms, c.PreferredName)
	}
	c.Terms = append(c.Terms, e.Terms...)
	return c
}

// Close implements store.ConceptIndex.
func (s *Store) Close() error { return nil }

// UpsertConcept adds or replaces a concept and indexes its terms. Terms
// already indexed for the concept are not duplicated.
func (s *Store) UpsertConcept(ctx context.Context, c store.Concept) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.concepts[c.CUI]; ok {
		for _, term := range old.Terms {
			s.unindex(store.TermKey(term), c.CUI)
		}
	}

	c = c.Clone()
	s.concepts[c.CUI] = c
	for _, term := range c.Terms {
		key := store.TermKey(term)
		if key == "" {
			continue
		}
		if !contains(s.terms[key], c.CUI) {
			s.terms[key] = append(s.terms[key], c.CUI)
		}
		if n := store.TermLength(term); n > s.maxLen {
			s.maxLen = n
		}
	}
	return nil
}

func (s *Store) unindex(key, cui string) {
	cuis := s.terms[key]
	for i, c := range cuis {
		if c == cui {
			cuis = append(cuis[:i:i], cuis[i+1:]...)
			break
		}
	}
	if len(cuis) == 0 {
		delete(s.terms, key)
		return
	}
	s.terms[key] = cuis
}

// Lookup returns the concepts for key. Concepts whose preferred name is the
// term itself rank first, then insertion order.
func (s *Store) Lookup(ctx context.Context, key string) ([]store.Concept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cuis := s.terms[key]
	if len(cuis) == 0 {
		return nil, nil
	}
	out := make([]store.Concept, 0, len(cuis))
	for _, cui := range cuis {
		out = append(out, s.concepts[cui].Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi := store.TermKey(out[i].PreferredName) == key
		pj := store.TermKey(out[j].PreferredName) == key
		return pi && !pj
	})
	return out, nil
}

// MaxTermLength implements store.ConceptIndex.
func (s *Store) MaxTermLength() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxLen
}

// Len implements store.ConceptIndex.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.concepts)
}

// Concepts returns every concept ordered by CUI.
func (s *Store) Concepts() []store.Concept {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Concept, 0, len(s.concepts))
	for _, c := range s.concepts {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CUI < out[j].CUI })
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
