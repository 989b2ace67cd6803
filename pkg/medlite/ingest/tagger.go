package ingest

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
	"github.com/cognicore/medlite/pkg/medlite/plugin"
)

// closedClass holds Penn Treebank tags for function words.
var closedClass = func() map[string]string {
	m := make(map[string]string)
	for tag, words := range map[string]string{
		"DT":   "a an the this that these those each every no some all both any",
		"IN":   "of in on at by for with without from into during after before between among than versus via per whether because",
		"TO":   "to",
		"CC":   "and or but nor",
		"PRP":  "he she it they we i you him her them us",
		"PRP$": "his its their our my",
		"MD":   "can could may might must shall should will would",
		"VBZ":  "is has does",
		"VBP":  "are have do am",
		"VBD":  "was were had did",
		"VB":   "be",
		"VBN":  "been",
		"VBG":  "being",
		"RB":   "not very also",
		"WDT":  "which",
		"WP":   "who whom",
		"WP$":  "whose",
		"WRB":  "when where how why",
		"EX":   "there",
	} {
		for _, w := range strings.Fields(words) {
			m[w] = tag
		}
	}
	return m
}()

// suffixRules are tried in order; the first matching suffix wins.
var suffixRules = []struct {
	suffix string
	tag    string
}{
	{"ly", "RB"},
	{"ing", "VBG"},
	{"ed", "VBN"},
	{"ous", "JJ"},
	{"ful", "JJ"},
	{"ive", "JJ"},
	{"able", "JJ"},
	{"ible", "JJ"},
	{"ical", "JJ"},
	{"ic", "JJ"},
	{"al", "JJ"},
	{"tion", "NN"},
	{"sion", "NN"},
	{"ness", "NN"},
	{"ment", "NN"},
	{"ity", "NN"},
	{"itis", "NN"},
	{"osis", "NN"},
	{"emia", "NN"},
}

// Tagger assigns part-of-speech tags: lexicon first, then the closed-class
// table, then punctuation and number rules, then suffix heuristics.
type Tagger struct {
	lexicon map[string]string
}

// NewTagger creates a tagger. lexicon maps lower-cased words to tags and
// may be nil.
func NewTagger(lexicon map[string]string) *Tagger {
	return &Tagger{lexicon: lexicon}
}

// Stage returns the tagger as a sentence stage. Sentences without tokens
// are tokenized first.
func (t *Tagger) Stage(name string) *plugin.FuncStage {
	return plugin.NewSentenceStage(name, func(ctx context.Context, s *bioc.Sentence) (*bioc.Sentence, error) {
		if s.Tokens == nil {
			s.Tokens = Tokenize(s.Text, s.Offset)
		}
		t.TagTokens(s.Tokens)
		return s, nil
	})
}

// TagTokens fills in POS for each token in place.
func (t *Tagger) TagTokens(tokens []bioc.Token) {
	for i := range tokens {
		tokens[i].POS = t.Tag(tokens[i].Text, i == 0)
	}
}

// Tag returns the tag for one token. sentenceInitial suppresses the
// proper-noun rule for capitalized first words.
func (t *Tagger) Tag(word string, sentenceInitial bool) string {
	lower := strings.ToLower(word)
	if tag, ok := t.lexicon[lower]; ok {
		return tag
	}
	if tag, ok := closedClass[lower]; ok {
		return tag
	}

	r, size := utf8.DecodeRuneInString(word)
	if size == len(word) && !isWordRune(r) {
		return punctuationTag(r)
	}
	if isNumeric(word) {
		return "CD"
	}

	if !sentenceInitial && unicode.IsUpper(r) {
		return "NNP"
	}

	for _, rule := range suffixRules {
		if len(lower) > len(rule.suffix)+2 && strings.HasSuffix(lower, rule.suffix) {
			return rule.tag
		}
	}
	if len(lower) > 3 && strings.HasSuffix(lower, "s") &&
		!strings.HasSuffix(lower, "ss") && !strings.HasSuffix(lower, "us") && !strings.HasSuffix(lower, "is") {
		return "NNS"
	}
	return "NN"
}

func punctuationTag(r rune) string {
	switch r {
	case '.', '!', '?':
		return "."
	case ',':
		return ","
	case ':', ';':
		return ":"
	case '(', '[', '{':
		return "-LRB-"
	case ')', ']', '}':
		return "-RRB-"
	case '"', '“', '”':
		return "''"
	case '%':
		return "NN"
	}
	return "SYM"
}

func isNumeric(word string) bool {
	digits := 0
	for _, r := range word {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.' || r == ',' || r == '-':
		default:
			return false
		}
	}
	return digits > 0
}
