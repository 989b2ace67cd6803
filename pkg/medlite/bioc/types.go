// Package bioc holds the hierarchical document model shared by loaders,
// pipeline stages and result writers:
//
//	Collection → Document → Passage → Sentence
//
// All offsets are byte offsets into UTF-8 text in the absolute coordinate
// space of the owning document; passage-relative offsets never appear here.
package bioc

import "sort"

// Infons is free-form key/value metadata attached to a container.
type Infons map[string]string

// Clone returns a copy of the infons. A nil map stays nil.
func (in Infons) Clone() Infons {
	if in == nil {
		return nil
	}
	out := make(Infons, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Keys returns the infon keys in sorted order.
func (in Infons) Keys() []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Collection is the top-level container produced by a loader.
type Collection struct {
	Source    string
	Date      string
	Key       string
	Infons    Infons
	Documents []*Document
}

// Document is a single input unit, e.g. one abstract.
type Document struct {
	ID        string
	Infons    Infons
	Passages  []*Passage
	Relations []*Relation
}

// Passage is a contiguous text region of a document such as a title or abstract.
type Passage struct {
	Offset      int
	Text        string
	Infons      Infons
	Sentences   []*Sentence
	Annotations []*Annotation
	Relations   []*Relation
}

// End returns the exclusive end offset of the passage text.
func (p *Passage) End() int { return p.Offset + len(p.Text) }

// Sentence is a segment of a passage. Stages attach tokens and annotations to it.
type Sentence struct {
	Offset      int
	Text        string
	Infons      Infons
	Tokens      []Token
	Annotations []*Annotation
	Relations   []*Relation
}

// End returns the exclusive end offset of the sentence.
func (s *Sentence) End() int { return s.Offset + len(s.Text) }

// Token is a word or punctuation mark found by the tokenizer. POS is filled
// in by the tagger.
type Token struct {
	Text   string
	Offset int
	POS    string
}

// End returns the exclusive end offset of the token.
func (t Token) End() int { return t.Offset + len(t.Text) }

// Location is one span of an annotation.
type Location struct {
	Offset int
	Length int
}

// End returns the exclusive end offset of the span.
func (l Location) End() int { return l.Offset + l.Length }

// Annotation marks one or more spans with a category label.
type Annotation struct {
	ID        string
	Type      string
	Text      string
	Infons    Infons
	Locations []Location
}

// Begin returns the smallest offset covered by the annotation.
func (a *Annotation) Begin() int {
	if len(a.Locations) == 0 {
		return 0
	}
	begin := a.Locations[0].Offset
	for _, l := range a.Locations[1:] {
		if l.Offset < begin {
			begin = l.Offset
		}
	}
	return begin
}

// End returns the largest exclusive end offset covered by the annotation.
func (a *Annotation) End() int {
	end := 0
	for _, l := range a.Locations {
		if l.End() > end {
			end = l.End()
		}
	}
	return end
}

// Relation connects annotations (or other relations) by reference.
// The pipeline never creates relations; loaders and writers round-trip them.
type Relation struct {
	ID     string
	Infons Infons
	Nodes  []Node
}

// Node is one member of a relation.
type Node struct {
	RefID string
	Role  string
}

// Clone returns a deep copy of the collection.
func (c *Collection) Clone() *Collection {
	if c == nil {
		return nil
	}
	out := &Collection{
		Source: c.Source,
		Date:   c.Date,
		Key:    c.Key,
		Infons: c.Infons.Clone(),
	}
	if c.Documents != nil {
		out.Documents = make([]*Document, len(c.Documents))
		for i, d := range c.Documents {
			out.Documents[i] = d.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		ID:        d.ID,
		Infons:    d.Infons.Clone(),
		Relations: cloneRelations(d.Relations),
	}
	if d.Passages != nil {
		out.Passages = make([]*Passage, len(d.Passages))
		for i, p := range d.Passages {
			out.Passages[i] = p.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the passage.
func (p *Passage) Clone() *Passage {
	if p == nil {
		return nil
	}
	out := &Passage{
		Offset:      p.Offset,
		Text:        p.Text,
		Infons:      p.Infons.Clone(),
		Annotations: cloneAnnotations(p.Annotations),
		Relations:   cloneRelations(p.Relations),
	}
	if p.Sentences != nil {
		out.Sentences = make([]*Sentence, len(p.Sentences))
		for i, s := range p.Sentences {
			out.Sentences[i] = s.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the sentence.
func (s *Sentence) Clone() *Sentence {
	if s == nil {
		return nil
	}
	out := &Sentence{
		Offset:      s.Offset,
		Text:        s.Text,
		Infons:      s.Infons.Clone(),
		Annotations: cloneAnnotations(s.Annotations),
		Relations:   cloneRelations(s.Relations),
	}
	if s.Tokens != nil {
		out.Tokens = append([]Token(nil), s.Tokens...)
	}
	return out
}

// Clone returns a deep copy of the annotation.
func (a *Annotation) Clone() *Annotation {
	if a == nil {
		return nil
	}
	out := &Annotation{
		ID:     a.ID,
		Type:   a.Type,
		Text:   a.Text,
		Infons: a.Infons.Clone(),
	}
	if a.Locations != nil {
		out.Locations = append([]Location(nil), a.Locations...)
	}
	return out
}

// Clone returns a deep copy of the relation.
func (r *Relation) Clone() *Relation {
	if r == nil {
		return nil
	}
	out := &Relation{ID: r.ID, Infons: r.Infons.Clone()}
	if r.Nodes != nil {
		out.Nodes = append([]Node(nil), r.Nodes...)
	}
	return out
}

func cloneAnnotations(in []*Annotation) []*Annotation {
	if in == nil {
		return nil
	}
	out := make([]*Annotation, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}

func cloneRelations(in []*Relation) []*Relation {
	if in == nil {
		return nil
	}
	out := make([]*Relation, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
