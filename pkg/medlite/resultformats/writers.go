package resultformats

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
	"github.com/cognicore/medlite/pkg/medlite/biocxml"
)

// Infon keys read from concept annotations.
const (
	infonCUI           = "cui"
	infonPreferredName = "preferredname"
	infonSemanticTypes = "semtypes"
	infonScore         = "score"
	infonMatchedTerm   = "matchedterm"
)

// WriteMMI writes the fielded MetaMap-style listing, one line per
// annotation:
//
//	docid|MMI|score|preferred name|cui|[semtypes]|["term"-tx-1-"text"-pos-0]|TX|begin/length|
func WriteMMI(w io.Writer, c *bioc.Collection) error {
	bw := bufio.NewWriter(w)
	for _, d := range c.Documents {
		for _, m := range Mentions(d) {
			a := m.Annotation
			term := a.Infons[infonMatchedTerm]
			if term == "" {
				term = strings.ToLower(a.Text)
			}
			fmt.Fprintf(bw, "%s|MMI|%s|%s|%s|[%s]|[\"%s\"-tx-1-\"%s\"-%s-0]|TX|%d/%d|\n",
				d.ID,
				score(a),
				a.Infons[infonPreferredName],
				a.Infons[infonCUI],
				a.Infons[infonSemanticTypes],
				term,
				a.Text,
				headPOS(m),
				a.Begin(),
				a.End()-a.Begin())
		}
	}
	return bw.Flush()
}

// WriteBRAT writes BRAT standoff: a text-bound annotation per mention and
// an AnnotatorNotes line with its concept. Numbering restarts with each
// document.
func WriteBRAT(w io.Writer, c *bioc.Collection) error {
	bw := bufio.NewWriter(w)
	for _, d := range c.Documents {
		for i, m := range Mentions(d) {
			a := m.Annotation
			n := i + 1
			fmt.Fprintf(bw, "T%d\t%s %d %d\t%s\n", n, bratType(a.Type), a.Begin(), a.End(), a.Text)
			if cui := a.Infons[infonCUI]; cui != "" {
				fmt.Fprintf(bw, "#%d\tAnnotatorNotes T%d\t%s %s\n", n, n, cui, a.Infons[infonPreferredName])
			}
		}
	}
	return bw.Flush()
}

// WriteBC writes the BioCreative evaluation listing:
//
//	docid TAB T|A:begin:end TAB rank TAB score
//
// Offsets are relative to the passage; T marks the title passage.
func WriteBC(w io.Writer, c *bioc.Collection) error {
	bw := bufio.NewWriter(w)
	for _, d := range c.Documents {
		for i, m := range Mentions(d) {
			a := m.Annotation
			section := "A"
			if isTitle(d, m.Passage) {
				section = "T"
			}
			begin := a.Begin() - m.Passage.Offset
			end := a.End() - m.Passage.Offset
			fmt.Fprintf(bw, "%s\t%s:%d:%d\t%d\t%s\n", d.ID, section, begin, end, i+1, score(a))
		}
	}
	return bw.Flush()
}

// WriteBioC writes the collection as BioC XML.
func WriteBioC(w io.Writer, c *bioc.Collection) error {
	return biocxml.Write(w, c)
}

func score(a *bioc.Annotation) string {
	if s := a.Infons[infonScore]; s != "" {
		return s
	}
	return "1.00"
}

func isTitle(d *bioc.Document, p *bioc.Passage) bool {
	if t, ok := p.Infons["type"]; ok {
		return t == "title"
	}
	return len(d.Passages) > 1 && d.Passages[0] == p
}

func bratType(t string) string {
	if t == "" {
		return "Entity"
	}
	return strings.Join(strings.Fields(t), "_")
}

// headPOS names the word class of the last token of the mention.
func headPOS(m Mention) string {
	tag := ""
	end := m.Annotation.End()
	for _, t := range m.Sentence.Tokens {
		if t.End() == end {
			tag = t.POS
			break
		}
	}
	switch {
	case strings.HasPrefix(tag, "JJ"):
		return "adj"
	case strings.HasPrefix(tag, "VB"):
		return "verb"
	case strings.HasPrefix(tag, "RB"):
		return "adv"
	default:
		return "noun"
	}
}
