package store

import (
	"context"
	"strings"
	"unicode"
)

// ConceptIndex maps normalized surface terms to concepts. Implementations
// are read-only once opened and safe for concurrent lookups.
type ConceptIndex interface {
	Close() error

	// Lookup returns the concepts named by a term key (see TermKey), best
	// first. An unknown term yields no concepts and no error.
	Lookup(ctx context.Context, key string) ([]Concept, error)

	// MaxTermLength is the number of words in the longest indexed term.
	MaxTermLength() int

	// Len is the number of distinct concepts.
	Len() int
}

// Writer persists concepts and their terms.
type Writer interface {
	UpsertConcept(ctx context.Context, c Concept) error
}

// Concept is a biomedical concept with the terms that name it.
type Concept struct {
	CUI           string
	PreferredName string
	SemanticTypes []string
	Sources       []string
	Terms         []string
}

// Clone returns a copy that shares no slices with c.
func (c Concept) Clone() Concept {
	c.SemanticTypes = append([]string(nil), c.SemanticTypes...)
	c.Sources = append([]string(nil), c.Sources...)
	c.Terms = append([]string(nil), c.Terms...)
	return c
}

// HasAny reports whether any of values is in set. A nil set matches everything.
func HasAny(set map[string]struct{}, values []string) bool {
	if set == nil {
		return true
	}
	for _, v := range values {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

// TermKey normalizes a term for lookup: lower case, words separated by a
// single space, punctuation other than inner hyphens and apostrophes dropped.
//
//	TermKey("Diabetes  Mellitus, Type 2") == "diabetes mellitus type 2"
func TermKey(term string) string {
	return strings.Join(Words(term), " ")
}

// TermLength is the number of words in term.
func TermLength(term string) int {
	return len(Words(term))
}

// Words splits text into lower-cased words the same way the tokenizer
// forms word tokens.
func Words(text string) []string {
	var words []string
	var cur strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cur.WriteRune(unicode.ToLower(r))
		case (r == '-' || r == '\'') && cur.Len() > 0 && i+1 < len(runes) && isWordRune(runes[i+1]):
			cur.WriteRune(r)
		default:
			if cur.Len() > 0 {
				words = append(words, cur.String())
				cur.Reset()
			}
		}
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	return words
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}
