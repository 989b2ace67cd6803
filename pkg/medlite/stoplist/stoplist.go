package stoplist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Manager holds the excluded terms entity lookup must never report. An
// entry either excludes a term for every concept or only for one CUI:
//
//	# comment
//	patients
//	C0030705|patient
type Manager struct {
	terms map[string]struct{}            // excluded for any concept
	pairs map[string]map[string]struct{} // term -> excluded cuis
}

// NewManager creates a manager excluding the given terms for every concept.
func NewManager(initialTerms []string) *Manager {
	m := &Manager{
		terms: make(map[string]struct{}, len(initialTerms)),
		pairs: make(map[string]map[string]struct{}),
	}
	for _, t := range initialTerms {
		m.Add("", t)
	}
	return m
}

// Load reads an excluded-terms file.
func Load(path string) (*Manager, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses excluded terms from r.
func Read(r io.Reader) (*Manager, error) {
	m := NewManager(nil)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cui, term, found := strings.Cut(text, "|")
		if !found {
			m.Add("", text)
			continue
		}
		if strings.TrimSpace(term) == "" {
			return nil, fmt.Errorf("line %d: empty term", line)
		}
		m.Add(cui, term)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// Add excludes term for cui, or for every concept when cui is empty.
func (m *Manager) Add(cui, term string) {
	term = key(term)
	if term == "" {
		return
	}
	cui = strings.TrimSpace(cui)
	if cui == "" {
		m.terms[term] = struct{}{}
		return
	}
	if m.pairs[term] == nil {
		m.pairs[term] = make(map[string]struct{})
	}
	m.pairs[term][cui] = struct{}{}
}

// Remove drops every exclusion for term.
func (m *Manager) Remove(term string) {
	term = key(term)
	delete(m.terms, term)
	delete(m.pairs, term)
}

// IsExcluded reports whether term may not be reported as cui.
func (m *Manager) IsExcluded(cui, term string) bool {
	if m == nil {
		return false
	}
	term = key(term)
	if _, ok := m.terms[term]; ok {
		return true
	}
	_, ok := m.pairs[term][cui]
	return ok
}

// IsStop reports whether term is excluded for every concept.
func (m *Manager) IsStop(term string) bool {
	if m == nil {
		return false
	}
	_, ok := m.terms[key(term)]
	return ok
}

// All returns every entry in file form ("term" or "cui|term"), sorted.
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.terms)+len(m.pairs))
	for t := range m.terms {
		result = append(result, t)
	}
	for t, cuis := range m.pairs {
		for c := range cuis {
			result = append(result, c+"|"+t)
		}
	}
	sort.Strings(result)
	return result
}

// Len is the number of entries.
func (m *Manager) Len() int {
	n := len(m.terms)
	for _, cuis := range m.pairs {
		n += len(cuis)
	}
	return n
}

func key(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}
