package bioc

// The builders accumulate processed children in order and only hand out the
// finished container from Build, so a half-processed parent is never visible.
// Metadata (infons, keys, source) is copied from the source container.

// CollectionBuilder assembles a processed collection.
type CollectionBuilder struct {
	c    Collection
	docs []*Document
}

// NewCollectionBuilder starts a collection carrying src's source, date, key and infons.
func NewCollectionBuilder(src *Collection) *CollectionBuilder {
	b := &CollectionBuilder{}
	if src != nil {
		b.c = Collection{
			Source: src.Source,
			Date:   src.Date,
			Key:    src.Key,
			Infons: src.Infons.Clone(),
		}
		b.docs = make([]*Document, 0, len(src.Documents))
	}
	return b
}

// AddDocument appends a processed document.
func (b *CollectionBuilder) AddDocument(d *Document) {
	b.docs = append(b.docs, d)
}

// Build returns the finished collection.
func (b *CollectionBuilder) Build() *Collection {
	out := b.c
	out.Documents = b.docs
	return &out
}

// DocumentBuilder assembles a processed document.
type DocumentBuilder struct {
	d        Document
	passages []*Passage
}

// NewDocumentBuilder starts a document with src's identifier, infons and relations.
func NewDocumentBuilder(src *Document) *DocumentBuilder {
	b := &DocumentBuilder{}
	if src != nil {
		b.d = Document{
			ID:        src.ID,
			Infons:    src.Infons.Clone(),
			Relations: cloneRelations(src.Relations),
		}
		b.passages = make([]*Passage, 0, len(src.Passages))
	}
	return b
}

// AddPassage appends a processed passage.
func (b *DocumentBuilder) AddPassage(p *Passage) {
	b.passages = append(b.passages, p)
}

// Build returns the finished document.
func (b *DocumentBuilder) Build() *Document {
	out := b.d
	out.Passages = b.passages
	return &out
}

// PassageBuilder assembles a processed passage. Text, offset, infons,
// passage-level annotations and relations come from the source unchanged.
type PassageBuilder struct {
	p         Passage
	sentences []*Sentence
}

// NewPassageBuilder starts a passage from src.
func NewPassageBuilder(src *Passage) *PassageBuilder {
	b := &PassageBuilder{}
	if src != nil {
		b.p = Passage{
			Offset:      src.Offset,
			Text:        src.Text,
			Infons:      src.Infons.Clone(),
			Annotations: cloneAnnotations(src.Annotations),
			Relations:   cloneRelations(src.Relations),
		}
		b.sentences = make([]*Sentence, 0, len(src.Sentences))
	}
	return b
}

// AddSentence appends a processed sentence.
func (b *PassageBuilder) AddSentence(s *Sentence) {
	b.sentences = append(b.sentences, s)
}

// Build returns the finished passage.
func (b *PassageBuilder) Build() *Passage {
	out := b.p
	out.Sentences = b.sentences
	return &out
}
