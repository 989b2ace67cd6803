package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
	"github.com/cognicore/medlite/pkg/medlite/lexicon"
	"github.com/cognicore/medlite/pkg/medlite/stoplist"
	"github.com/cognicore/medlite/pkg/medlite/store"
	"github.com/cognicore/medlite/pkg/medlite/store/memstore"
)

func testIndex() *memstore.Store {
	ctx := context.Background()
	s := memstore.New()
	for _, c := range []store.Concept{
		{CUI: "C0011849", PreferredName: "Diabetes Mellitus", SemanticTypes: []string{"dsyn"}, Sources: []string{"MSH"},
			Terms: []string{"diabetes mellitus", "diabetes"}},
		{CUI: "C0011860", PreferredName: "Diabetes Mellitus, Non-Insulin-Dependent", SemanticTypes: []string{"dsyn"}, Sources: []string{"MSH"},
			Terms: []string{"type 2 diabetes mellitus", "type 2 diabetes"}},
		{CUI: "C0030705", PreferredName: "Patients", SemanticTypes: []string{"podg"}, Sources: []string{"MSH"},
			Terms: []string{"patient", "patients"}},
		{CUI: "C0015967", PreferredName: "Fever", SemanticTypes: []string{"sosy"}, Sources: []string{"SNOMEDCT_US"},
			Terms: []string{"fever"}},
		{CUI: "C0027651", PreferredName: "Neoplasms", SemanticTypes: []string{"neop"}, Sources: []string{"MSH"},
			Terms: []string{"tumor"}},
	} {
		_ = s.UpsertConcept(ctx, c)
	}
	return s
}

func annotate(t *testing.T, l *EntityLookup, s *bioc.Sentence) []*bioc.Annotation {
	t.Helper()
	out, err := l.Annotate(context.Background(), s)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	return out.Annotations
}

func TestEntityLookupLongestMatch(t *testing.T) {
	l, err := NewEntityLookup(testIndex(), LookupOptions{CacheSize: 16})
	if err != nil {
		t.Fatal(err)
	}

	s := &bioc.Sentence{Offset: 10, Text: "Patient has Type 2 diabetes mellitus."}
	anns := annotate(t, l, s)
	if len(anns) != 2 {
		t.Fatalf("expected 2 annotations, got %d: %+v", len(anns), anns)
	}

	a := anns[1]
	if a.Infons[InfonCUI] != "C0011860" {
		t.Errorf("longest match should win, got %s", a.Infons[InfonCUI])
	}
	if a.Text != "Type 2 diabetes mellitus" {
		t.Errorf("annotation text = %q", a.Text)
	}
	if a.Begin() != 22 || a.End() != 46 {
		t.Errorf("span = [%d,%d)", a.Begin(), a.End())
	}
	if a.Type != "dsyn" || a.Infons[InfonScore] != "1.00" {
		t.Errorf("type/score = %s/%s", a.Type, a.Infons[InfonScore])
	}
	for _, ann := range anns {
		if ann.Begin() < s.Offset || ann.End() > s.End() {
			t.Errorf("annotation %s outside sentence", ann.ID)
		}
	}
}

func TestEntityLookupDoesNotCrossPunctuation(t *testing.T) {
	l, _ := NewEntityLookup(testIndex(), LookupOptions{})
	anns := annotate(t, l, &bioc.Sentence{Text: "Type 2, diabetes"})
	if len(anns) != 1 || anns[0].Infons[InfonCUI] != "C0011849" {
		t.Errorf("annotations = %+v", anns)
	}
}

func TestEntityLookupExclusionAndFilters(t *testing.T) {
	excluded := stoplist.NewManager(nil)
	excluded.Add("C0030705", "patient")

	l, _ := NewEntityLookup(testIndex(), LookupOptions{
		Excluded:      excluded,
		SemanticTypes: map[string]struct{}{"dsyn": {}},
	})
	anns := annotate(t, l, &bioc.Sentence{Text: "Patient with diabetes and fever."})
	if len(anns) != 1 || anns[0].Infons[InfonCUI] != "C0011849" {
		t.Errorf("annotations = %+v", anns)
	}

	l, _ = NewEntityLookup(testIndex(), LookupOptions{Sources: map[string]struct{}{"SNOMEDCT_US": {}}})
	anns = annotate(t, l, &bioc.Sentence{Text: "Patient with diabetes and fever."})
	if len(anns) != 1 || anns[0].Infons[InfonCUI] != "C0015967" {
		t.Errorf("source filter: %+v", anns)
	}
}

func TestEntityLookupLexiconFallback(t *testing.T) {
	lex := lexicon.New()
	lex.AddSynonymGroup("tumor", []string{"tumour"})
	lex.AddSynonymGroup("diabetes", []string{"diabetic"})

	l, _ := NewEntityLookup(testIndex(), LookupOptions{Lexicon: lex})
	anns := annotate(t, l, &bioc.Sentence{Text: "A diabetic with a tumour."})
	if len(anns) != 2 {
		t.Fatalf("expected 2 annotations, got %+v", anns)
	}
	if anns[0].Text != "diabetic" || anns[0].Infons[InfonCUI] != "C0011849" {
		t.Errorf("first = %+v", anns[0])
	}
	if anns[1].Infons[InfonScore] != "0.90" {
		t.Errorf("normalized match score = %s", anns[1].Infons[InfonScore])
	}
}

func TestEntityLookupResultLength(t *testing.T) {
	ctx := context.Background()
	idx := memstore.New()
	for _, cui := range []string{"C1", "C2", "C3"} {
		_ = idx.UpsertConcept(ctx, store.Concept{CUI: cui, Terms: []string{"cold"}})
	}
	l, _ := NewEntityLookup(idx, LookupOptions{ResultLength: 2})
	anns := annotate(t, l, &bioc.Sentence{Text: "cold"})
	if len(anns) != 1 || anns[0].Infons[InfonConcepts] != "C1,C2" {
		t.Errorf("annotations = %+v", anns)
	}
	if anns[0].Type != "Concept" {
		t.Errorf("concept without semantic type should be typed Concept, got %q", anns[0].Type)
	}
}

type countingIndex struct {
	*memstore.Store
	lookups int
}

func (c *countingIndex) Lookup(ctx context.Context, key string) ([]store.Concept, error) {
	c.lookups++
	return c.Store.Lookup(ctx, key)
}

func TestEntityLookupCache(t *testing.T) {
	idx := &countingIndex{Store: testIndex()}
	l, _ := NewEntityLookup(idx, LookupOptions{CacheSize: 64})

	annotate(t, l, &bioc.Sentence{Text: "fever"})
	first := idx.lookups
	annotate(t, l, &bioc.Sentence{Text: "fever"})
	if idx.lookups != first {
		t.Errorf("second run should be served from cache: %d lookups, then %d", first, idx.lookups)
	}
}

type failingIndex struct{ *memstore.Store }

func (failingIndex) Lookup(ctx context.Context, key string) ([]store.Concept, error) {
	return nil, errors.New("index offline")
}

func TestEntityLookupIndexError(t *testing.T) {
	l, _ := NewEntityLookup(failingIndex{testIndex()}, LookupOptions{})
	_, err := l.Annotate(context.Background(), &bioc.Sentence{Text: "fever"})
	if err == nil {
		t.Fatal("expected error from failing index")
	}
}

func TestEntityLookupIdempotent(t *testing.T) {
	l, _ := NewEntityLookup(testIndex(), LookupOptions{CacheSize: 8})
	a := annotate(t, l, &bioc.Sentence{Text: "Diabetes and fever."})
	b := annotate(t, l, &bioc.Sentence{Text: "Diabetes and fever."})
	if len(a) != len(b) {
		t.Fatal("annotation count differs between runs")
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Begin() != b[i].Begin() {
			t.Errorf("annotation %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
