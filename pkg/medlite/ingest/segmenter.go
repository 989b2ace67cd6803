package ingest

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
	"github.com/cognicore/medlite/pkg/medlite/plugin"
)

// DefaultAbbreviations are lower-cased words, without their final period,
// that never end a sentence.
var DefaultAbbreviations = []string{
	"al", "approx", "ca", "cf", "dr", "e.g", "eq", "etc", "fig", "figs",
	"i.e", "inc", "jr", "ltd", "mr", "mrs", "ms", "no", "nos", "prof",
	"ref", "refs", "sr", "st", "vol", "vs",
}

// Segmenter is a rule-based sentence splitter. A sentence ends at '.', '!'
// or '?' (plus any closing quotes or brackets) followed by whitespace and
// then an upper-case letter, a digit, an opening quote or bracket, or the
// end of the text. A period after a known abbreviation or a single capital
// initial does not end a sentence.
type Segmenter struct {
	abbrevs map[string]struct{}
}

// NewSegmenter creates a segmenter using DefaultAbbreviations plus extra.
func NewSegmenter(extra ...string) *Segmenter {
	s := &Segmenter{abbrevs: make(map[string]struct{}, len(DefaultAbbreviations)+len(extra))}
	for _, a := range DefaultAbbreviations {
		s.abbrevs[a] = struct{}{}
	}
	for _, a := range extra {
		a = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(a)), ".")
		if a != "" {
			s.abbrevs[a] = struct{}{}
		}
	}
	return s
}

// Segment splits a passage into sentences with absolute offsets.
func (s *Segmenter) Segment(ctx context.Context, p *bioc.Passage) ([]*bioc.Sentence, error) {
	return s.Split(p.Text, p.Offset), nil
}

// Stage returns the segmenter as a passage stage that fills in sentences
// for passages that have none.
func (s *Segmenter) Stage(name string) *plugin.FuncStage {
	return plugin.NewPassageStage(name, func(ctx context.Context, p *bioc.Passage) (*bioc.Passage, error) {
		if len(p.Sentences) == 0 {
			p.Sentences = s.Split(p.Text, p.Offset)
		}
		return p, nil
	})
}

// Split segments text whose first byte sits at offset base.
func (s *Segmenter) Split(text string, base int) []*bioc.Sentence {
	var out []*bioc.Sentence
	start := skipSpace(text, 0)
	i := start
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isTerminator(r) {
			i += size
			continue
		}

		end := i + size
		for end < len(text) {
			r2, sz := utf8.DecodeRuneInString(text[end:])
			if !isTerminator(r2) && !isCloser(r2) {
				break
			}
			end += sz
		}

		next := skipSpace(text, end)
		if next == end && end < len(text) {
			i = end
			continue
		}
		if next < len(text) {
			nr, _ := utf8.DecodeRuneInString(text[next:])
			if !startsSentence(nr) {
				i = end
				continue
			}
		}
		if r == '.' && s.isAbbreviation(text[start:i]) {
			i = end
			continue
		}

		out = append(out, &bioc.Sentence{Offset: base + start, Text: text[start:end]})
		start, i = next, next
	}

	if start < len(text) {
		if tail := strings.TrimRightFunc(text[start:], unicode.IsSpace); tail != "" {
			out = append(out, &bioc.Sentence{Offset: base + start, Text: tail})
		}
	}
	return out
}

// isAbbreviation checks the word just before a period.
func (s *Segmenter) isAbbreviation(before string) bool {
	word := before
	if i := strings.LastIndexFunc(before, unicode.IsSpace); i >= 0 {
		word = before[i+1:]
	}
	word = strings.TrimLeft(word, "([\"'")
	if word == "" {
		return false
	}
	if r, size := utf8.DecodeRuneInString(word); size == len(word) && unicode.IsUpper(r) {
		return true
	}
	_, ok := s.abbrevs[strings.ToLower(word)]
	return ok
}

func isTerminator(r rune) bool { return r == '.' || r == '!' || r == '?' }

func isCloser(r rune) bool {
	switch r {
	case ')', ']', '"', '\'', '”', '’':
		return true
	}
	return false
}

func startsSentence(r rune) bool {
	switch r {
	case '(', '[', '"', '\'', '“', '‘':
		return true
	}
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}

func skipSpace(text string, i int) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}
