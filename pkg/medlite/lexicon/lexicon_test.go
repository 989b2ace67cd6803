package lexicon

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	lex := New()
	lex.AddSynonymGroup("myocardial infarction", []string{"MI", "Heart  Attack"})
	lex.AddSynonymGroup("tumor", []string{"tumour", "tumours"})

	cases := map[string]string{
		"heart attack":          "myocardial infarction",
		"HEART ATTACK":          "myocardial infarction",
		"mi":                    "myocardial infarction",
		"myocardial infarction": "myocardial infarction",
		"tumours":               "tumor",
		"asthma":                "asthma",
	}
	for in, want := range cases {
		if got := lex.Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeWords(t *testing.T) {
	lex := New()
	lex.AddSynonymGroup("tumor", []string{"tumours"})
	lex.AddSynonymGroup("kidney", []string{"kidneys"})

	if got := lex.NormalizeWords("Kidneys with tumours"); got != "kidney with tumor" {
		t.Errorf("NormalizeWords = %q", got)
	}
}

func TestVariants(t *testing.T) {
	lex := New()
	lex.AddSynonymGroup("tumor", []string{"tumour", "tumor", "TUMOUR"})

	want := []string{"tumor", "tumour"}
	if got := lex.Variants("tumour"); !reflect.DeepEqual(got, want) {
		t.Errorf("Variants(tumour) = %v, want %v", got, want)
	}
	if got := lex.Variants("fever"); !reflect.DeepEqual(got, []string{"fever"}) {
		t.Errorf("Variants(fever) = %v", got)
	}
}

func TestAddSynonymGroupReplaces(t *testing.T) {
	lex := New()
	lex.AddSynonymGroup("tumor", []string{"neoplasm"})
	lex.AddSynonymGroup("tumor", []string{"tumour"})

	if lex.HasSynonyms("neoplasm") {
		t.Error("stale variant should be removed")
	}
	if !lex.HasSynonyms("tumour") {
		t.Error("new variant should be present")
	}
	if st := lex.Stats(); st.SynonymGroups != 1 || st.TotalVariants != 2 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	data := `synonyms:
  - canonical: diabetes
    variants: [diabetic, diabetes mellitus]
  - canonical: ""
    variants: [ignored]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	lex, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}
	if lex.Normalize("Diabetic") != "diabetes" {
		t.Error("diabetic should normalize to diabetes")
	}
	if lex.HasSynonyms("ignored") {
		t.Error("group without canonical should be skipped")
	}
}

func TestLoadFromYAMLMissing(t *testing.T) {
	if _, err := LoadFromYAML(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
