package ingest

import (
	"context"
	"reflect"
	"testing"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
)

func TestTaggerRules(t *testing.T) {
	tg := NewTagger(map[string]string{"diabetes": "NN"})
	cases := []struct {
		word    string
		initial bool
		want    string
	}{
		{"The", true, "DT"},
		{"diabetes", false, "NN"},
		{"has", false, "VBZ"},
		{"their", false, "PRP$"},
		{"whose", false, "WP$"},
		{"whom", false, "WP"},
		{"being", false, "VBG"},
		{"There", true, "EX"},
		{"between", false, "IN"},
		{"rapidly", false, "RB"},
		{"bleeding", false, "VBG"},
		{"chronic", false, "JJ"},
		{"infection", false, "NN"},
		{"lesions", false, "NNS"},
		{"Smith", false, "NNP"},
		{"Patient", true, "NN"},
		{"2.5", false, "CD"},
		{".", false, "."},
		{",", false, ","},
		{"(", false, "-LRB-"},
		{"+", false, "SYM"},
	}
	for _, tc := range cases {
		if got := tg.Tag(tc.word, tc.initial); got != tc.want {
			t.Errorf("Tag(%q, %v) = %q, want %q", tc.word, tc.initial, got, tc.want)
		}
	}
}

func TestTaggerLexiconWins(t *testing.T) {
	tg := NewTagger(map[string]string{"has": "VB-OVERRIDE"})
	if got := tg.Tag("Has", true); got != "VB-OVERRIDE" {
		t.Errorf("lexicon should override closed class, got %q", got)
	}
}

func TestTaggerStageTokenizesWhenNeeded(t *testing.T) {
	stage := NewTagger(nil).Stage("pos-tagger")
	out, err := stage.Apply(context.Background(), &bioc.Sentence{Text: "Patient has diabetes."})
	if err != nil {
		t.Fatal(err)
	}
	var tags []string
	for _, tok := range out.(*bioc.Sentence).Tokens {
		tags = append(tags, tok.POS)
	}
	if want := []string{"NN", "VBZ", "NNS", "."}; !reflect.DeepEqual(tags, want) {
		t.Errorf("tags = %v, want %v", tags, want)
	}
}
