package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
	"github.com/cognicore/medlite/pkg/medlite/lexicon"
	"github.com/cognicore/medlite/pkg/medlite/plugin"
	"github.com/cognicore/medlite/pkg/medlite/stoplist"
	"github.com/cognicore/medlite/pkg/medlite/store"
)

// Infon keys written on concept annotations.
const (
	InfonCUI           = "cui"
	InfonPreferredName = "preferredname"
	InfonSemanticTypes = "semtypes"
	InfonSources       = "sources"
	InfonScore         = "score"
	InfonConcepts      = "concepts"
	InfonMatchedTerm   = "matchedterm"
)

// Scores for an exact term match and for a match found only after
// lexicon normalization.
const (
	ExactScore      = 1.0
	NormalizedScore = 0.9
)

// LookupOptions configures EntityLookup.
type LookupOptions struct {
	Lexicon  *lexicon.Lexicon
	Excluded *stoplist.Manager
	// SemanticTypes and Sources restrict reported concepts; nil allows all.
	SemanticTypes map[string]struct{}
	Sources       map[string]struct{}
	// ResultLength caps the concepts kept per span; <= 0 keeps all.
	ResultLength int
	// CacheSize bounds the term memo cache; <= 0 disables it.
	CacheSize int
}

// EntityLookup finds concept mentions in a sentence by greedy longest match
// over its word tokens. Spans never cross punctuation.
type EntityLookup struct {
	index store.ConceptIndex
	opts  LookupOptions
	cache *lru.Cache[string, match]
}

type match struct {
	concepts []store.Concept
	score    float64
}

type candidate struct {
	key   string
	score float64
}

// NewEntityLookup creates a lookup stage over index.
func NewEntityLookup(index store.ConceptIndex, opts LookupOptions) (*EntityLookup, error) {
	l := &EntityLookup{index: index, opts: opts}
	if opts.CacheSize > 0 {
		c, err := lru.New[string, match](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create lookup cache: %w", err)
		}
		l.cache = c
	}
	return l, nil
}

// Stage returns the lookup as a sentence stage. Sentences without tokens
// are tokenized first.
func (l *EntityLookup) Stage(name string) *plugin.FuncStage {
	return plugin.NewSentenceStage(name, l.Annotate)
}

// Close releases the concept index.
func (l *EntityLookup) Close() error {
	return l.index.Close()
}

// Annotate appends one annotation per matched span to s.
func (l *EntityLookup) Annotate(ctx context.Context, s *bioc.Sentence) (*bioc.Sentence, error) {
	if s.Tokens == nil {
		s.Tokens = Tokenize(s.Text, s.Offset)
	}

	maxLen := l.index.MaxTermLength()
	if maxLen < 1 {
		return s, nil
	}

	for _, run := range wordRuns(s.Tokens) {
		for i := 0; i < len(run); {
			matched := 0
			n := maxLen
			if rest := len(run) - i; n > rest {
				n = rest
			}
			for ; n >= 1; n-- {
				key := spanKey(run[i : i+n])
				m, err := l.find(ctx, key)
				if err != nil {
					return nil, err
				}
				if len(m.concepts) == 0 {
					continue
				}
				s.Annotations = append(s.Annotations, l.annotation(s, run[i], run[i+n-1], key, m))
				matched = n
				break
			}
			if matched == 0 {
				matched = 1
			}
			i += matched
		}
	}
	return s, nil
}

// find looks a key up directly, then through the lexicon, applying the
// configured filters. Results are memoized per key.
func (l *EntityLookup) find(ctx context.Context, key string) (match, error) {
	if l.cache != nil {
		if m, ok := l.cache.Get(key); ok {
			return m, nil
		}
	}

	m, err := l.lookup(ctx, key)
	if err != nil {
		return match{}, err
	}
	if l.cache != nil {
		l.cache.Add(key, m)
	}
	return m, nil
}

func (l *EntityLookup) lookup(ctx context.Context, key string) (match, error) {
	if l.opts.Excluded.IsStop(key) {
		return match{}, nil
	}

	candidates := []candidate{{key, ExactScore}}
	if lex := l.opts.Lexicon; lex != nil {
		if k := store.TermKey(lex.Normalize(key)); k != key {
			candidates = append(candidates, candidate{k, NormalizedScore})
		}
		if k := store.TermKey(lex.NormalizeWords(key)); k != key {
			candidates = append(candidates, candidate{k, NormalizedScore})
		}
	}

	for _, c := range candidates {
		concepts, err := l.index.Lookup(ctx, c.key)
		if err != nil {
			return match{}, fmt.Errorf("lookup %q: %w", c.key, err)
		}
		kept := l.filter(key, concepts)
		if len(kept) > 0 {
			return match{concepts: kept, score: c.score}, nil
		}
	}
	return match{}, nil
}

func (l *EntityLookup) filter(term string, concepts []store.Concept) []store.Concept {
	var kept []store.Concept
	for _, c := range concepts {
		if l.opts.Excluded.IsExcluded(c.CUI, term) {
			continue
		}
		if !store.HasAny(l.opts.SemanticTypes, c.SemanticTypes) || !store.HasAny(l.opts.Sources, c.Sources) {
			continue
		}
		kept = append(kept, c)
		if l.opts.ResultLength > 0 && len(kept) == l.opts.ResultLength {
			break
		}
	}
	return kept
}

func (l *EntityLookup) annotation(s *bioc.Sentence, first, last bioc.Token, key string, m match) *bioc.Annotation {
	begin, end := first.Offset, last.End()
	best := m.concepts[0]

	typ := "Concept"
	if len(best.SemanticTypes) > 0 {
		typ = best.SemanticTypes[0]
	}
	cuis := make([]string, len(m.concepts))
	for i, c := range m.concepts {
		cuis[i] = c.CUI
	}

	return &bioc.Annotation{
		ID:   fmt.Sprintf("E%d-%d", begin, end),
		Type: typ,
		Text: s.Text[begin-s.Offset : end-s.Offset],
		Infons: bioc.Infons{
			InfonCUI:           best.CUI,
			InfonPreferredName: best.PreferredName,
			InfonSemanticTypes: strings.Join(best.SemanticTypes, ","),
			InfonSources:       strings.Join(best.Sources, ","),
			InfonScore:         strconv.FormatFloat(m.score, 'f', 2, 64),
			InfonConcepts:      strings.Join(cuis, ","),
			InfonMatchedTerm:   key,
		},
		Locations: []bioc.Location{{Offset: begin, Length: end - begin}},
	}
}

// wordRuns groups consecutive word tokens, breaking at punctuation.
func wordRuns(tokens []bioc.Token) [][]bioc.Token {
	var runs [][]bioc.Token
	var cur []bioc.Token
	for _, t := range tokens {
		if IsWord(t) {
			cur = append(cur, t)
			continue
		}
		if len(cur) > 0 {
			runs = append(runs, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}

func spanKey(tokens []bioc.Token) string {
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = strings.ToLower(t.Text)
	}
	return strings.Join(words, " ")
}
