package ingest

import (
	"context"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
	"github.com/cognicore/medlite/pkg/medlite/plugin"
)

// Tokenize splits text into word and punctuation tokens. Words are runs of
// letters and digits, keeping inner hyphens and apostrophes ("non-small",
// "Crohn's"); every other non-space rune is its own token. Offsets are
// absolute: the first byte of text sits at base. Token text keeps its
// original case.
func Tokenize(text string, base int) []bioc.Token {
	var tokens []bioc.Token
	wordStart := -1

	flush := func(end int) {
		if wordStart >= 0 {
			tokens = append(tokens, bioc.Token{Text: text[wordStart:end], Offset: base + wordStart})
			wordStart = -1
		}
	}

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case isWordRune(r):
			if wordStart < 0 {
				wordStart = i
			}
		case (r == '-' || r == '\'') && wordStart >= 0 && i+size < len(text) && nextIsWordRune(text[i+size:]):
			// inner joiner, stays in the word
		case unicode.IsSpace(r):
			flush(i)
		default:
			flush(i)
			tokens = append(tokens, bioc.Token{Text: text[i : i+size], Offset: base + i})
		}
		i += size
	}
	flush(len(text))
	return tokens
}

// IsWord reports whether a token is a word rather than punctuation.
func IsWord(t bioc.Token) bool {
	r, _ := utf8.DecodeRuneInString(t.Text)
	return isWordRune(r)
}

// Tokenizer is the tokenizer capability: it replaces a sentence's tokens.
type Tokenizer struct{}

// Stage returns the tokenizer as a sentence stage.
func (Tokenizer) Stage(name string) *plugin.FuncStage {
	return plugin.NewSentenceStage(name, func(ctx context.Context, s *bioc.Sentence) (*bioc.Sentence, error) {
		s.Tokens = Tokenize(s.Text, s.Offset)
		return s, nil
	})
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

func nextIsWordRune(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return isWordRune(r)
}
