package document

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
)

// GoldSource is the "source" infon of annotations taken from corpus markup.
const GoldSource = "gold"

// ReadNCBICorpus reads the NCBI disease corpus, one abstract per line:
//
//	<id> TAB <title> TAB <abstract>
//
// Mentions are marked inline as <category="SpecificDisease">text</category>.
// The markup is removed from the passage text and kept as gold annotations.
func ReadNCBICorpus(r io.Reader, name string) ([]*bioc.Document, error) {
	var docs []*bioc.Document
	err := eachLine(r, name, func(line string, n int) error {
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			return lineError(NCBICorpus, name, n, "expected id, title and abstract separated by tabs")
		}
		id := strings.TrimSpace(fields[0])
		if id == "" {
			return lineError(NCBICorpus, name, n, "empty document id")
		}

		title, titleGold, err := stripCategories(fields[1], 0)
		if err != nil {
			return lineError(NCBICorpus, name, n, "title: "+err.Error())
		}
		abstract, abstractGold, err := stripCategories(fields[2], len(title)+1)
		if err != nil {
			return lineError(NCBICorpus, name, n, "abstract: "+err.Error())
		}

		d := titleAbstract(id, title, abstract)
		d.Passages[0].Annotations = titleGold
		d.Passages[1].Annotations = abstractGold
		seq := 0
		for _, p := range d.Passages {
			for _, a := range p.Annotations {
				seq++
				a.ID = fmt.Sprintf("G%d", seq)
			}
		}
		docs = append(docs, d)
		return nil
	})
	return docs, err
}

// stripCategories removes category markup from raw and returns the plain
// text with one annotation per marked mention, offset by base.
func stripCategories(raw string, base int) (string, []*bioc.Annotation, error) {
	z := html.NewTokenizer(strings.NewReader(raw))
	var (
		b        strings.Builder
		anns     []*bioc.Annotation
		open     = -1
		category string
	)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if !errors.Is(z.Err(), io.EOF) {
				return "", nil, z.Err()
			}
			if open >= 0 {
				return "", nil, fmt.Errorf("unclosed category %q", category)
			}
			return b.String(), anns, nil

		case html.StartTagToken:
			cat, ok := categoryOf(string(z.Raw()))
			if !ok {
				b.Write(z.Raw())
				continue
			}
			if open >= 0 {
				return "", nil, fmt.Errorf("nested category %q inside %q", cat, category)
			}
			open, category = b.Len(), cat

		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) != "category" {
				b.Write(z.Raw())
				continue
			}
			if open < 0 {
				return "", nil, errors.New("closing category without opening tag")
			}
			mention := b.String()[open:]
			anns = append(anns, &bioc.Annotation{
				Type:      category,
				Text:      mention,
				Infons:    bioc.Infons{"type": category, "source": GoldSource},
				Locations: []bioc.Location{{Offset: base + open, Length: len(mention)}},
			})
			open = -1

		default:
			b.Write(z.Raw())
		}
	}
}

// categoryOf extracts X from a raw <category="X"> or <category type="X">
// start tag.
func categoryOf(raw string) (string, bool) {
	inner := strings.TrimSuffix(strings.TrimPrefix(raw, "<"), ">")
	rest, ok := strings.CutPrefix(inner, "category")
	if !ok {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "type"))
	rest, ok = strings.CutPrefix(rest, "=")
	if !ok {
		return "", false
	}
	value := strings.Trim(strings.TrimSpace(rest), `"'`)
	return value, value != ""
}
