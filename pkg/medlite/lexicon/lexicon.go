package lexicon

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon maps surface variants of biomedical terms to a canonical form:
// - Synonyms: different words with the same meaning (tumour ↔ tumor)
// - Variants: inflections (kidneys → kidney, diabetic → diabetes)
// - Acronyms: abbreviations (mi ↔ myocardial infarction)
//
// Entity lookup consults it when a span has no direct match in the concept
// index. Phrases are normalized as a whole first, then word by word.
type Lexicon struct {
	// canonical -> all variants (including canonical itself)
	synonyms map[string][]string

	// variant -> canonical
	reverseIndex map[string]string
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		synonyms:     make(map[string][]string),
		reverseIndex: make(map[string]string),
	}
}

// LoadFromYAML loads synonym groups from a YAML file.
//
// Expected format:
//
//	synonyms:
//	  - canonical: tumor
//	    variants: [tumour, tumors, tumours]
//	  - canonical: myocardial infarction
//	    variants: [mi, heart attack]
//
// Matching is case-insensitive and multi-word variants are allowed.
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config struct {
		Synonyms []struct {
			Canonical string   `yaml:"canonical"`
			Variants  []string `yaml:"variants"`
		} `yaml:"synonyms"`
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	lex := New()
	for _, entry := range config.Synonyms {
		if strings.TrimSpace(entry.Canonical) == "" {
			continue
		}
		lex.AddSynonymGroup(entry.Canonical, entry.Variants)
	}

	return lex, nil
}

// AddSynonymGroup adds a canonical form and its variants. The canonical
// form is always the first variant. Re-adding a canonical replaces its group.
func (l *Lexicon) AddSynonymGroup(canonical string, variants []string) {
	canonical = normalizeSpace(canonical)

	if oldVariants, exists := l.synonyms[canonical]; exists {
		for _, oldV := range oldVariants {
			delete(l.reverseIndex, oldV)
		}
	}

	normalized := make([]string, 0, len(variants)+1)
	seen := make(map[string]bool)

	normalized = append(normalized, canonical)
	seen[canonical] = true

	for _, v := range variants {
		v = normalizeSpace(v)
		if v != "" && !seen[v] {
			normalized = append(normalized, v)
			seen[v] = true
		}
	}

	l.synonyms[canonical] = normalized

	for _, v := range normalized {
		l.reverseIndex[v] = canonical
	}
}

// Normalize returns the canonical form of a term, or the lower-cased term
// itself when it is unknown.
//
//	Normalize("Heart Attack") -> "myocardial infarction"
//	Normalize("unknown")      -> "unknown"
func (l *Lexicon) Normalize(term string) string {
	term = normalizeSpace(term)
	if canonical, ok := l.reverseIndex[term]; ok {
		return canonical
	}
	return term
}

// NormalizeWords normalizes each word of a phrase independently:
//
//	NormalizeWords("renal tumours") -> "renal tumor"
func (l *Lexicon) NormalizeWords(phrase string) string {
	words := strings.Fields(strings.ToLower(phrase))
	for i, w := range words {
		if canonical, ok := l.reverseIndex[w]; ok {
			words[i] = canonical
		}
	}
	return strings.Join(words, " ")
}

// Variants returns all known variants of a term, canonical form first.
// An unknown term yields a slice holding only the term.
func (l *Lexicon) Variants(term string) []string {
	term = normalizeSpace(term)

	if variants, ok := l.synonyms[term]; ok {
		return variants
	}

	if canonical, ok := l.reverseIndex[term]; ok {
		if variants, ok := l.synonyms[canonical]; ok {
			return variants
		}
	}

	return []string{term}
}

// HasSynonyms reports whether the term belongs to a synonym group.
func (l *Lexicon) HasSynonyms(term string) bool {
	_, exists := l.reverseIndex[normalizeSpace(term)]
	return exists
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() LexiconStats {
	totalVariants := 0
	for _, variants := range l.synonyms {
		totalVariants += len(variants)
	}
	return LexiconStats{
		SynonymGroups: len(l.synonyms),
		TotalVariants: totalVariants,
	}
}

// LexiconStats holds statistics about lexicon contents.
type LexiconStats struct {
	SynonymGroups int // Number of canonical forms
	TotalVariants int // Total number of variants across all groups
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
