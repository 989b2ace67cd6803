// Package biocxml reads and writes BioC XML collections.
//
// Reading goes through xmlquery so that unknown elements are ignored and
// element order inside a container does not matter. Writing uses
// encoding/xml with infons in sorted key order.
package biocxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
	"github.com/cognicore/medlite/pkg/medlite/internalerr"
)

const formatName = "bioc"

// Header precedes the collection element in written files.
const Header = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" + `<!DOCTYPE collection SYSTEM "BioC.dtd">` + "\n"

// ReadFile reads a BioC XML collection from path.
func ReadFile(path string) (*bioc.Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &internalerr.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	c, err := Read(f)
	var fe *internalerr.FormatError
	if errors.As(err, &fe) && fe.Path == "" {
		fe.Path = path
	}
	return c, err
}

// Read parses a BioC XML collection.
func Read(r io.Reader) (*bioc.Collection, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, &internalerr.FormatError{Format: formatName, Message: "malformed XML", Err: err}
	}
	node := xmlquery.FindOne(root, "/collection")
	if node == nil {
		return nil, &internalerr.FormatError{Format: formatName, Message: "missing collection element"}
	}

	c := &bioc.Collection{
		Source: childText(node, "source"),
		Date:   childText(node, "date"),
		Key:    childText(node, "key"),
		Infons: readInfons(node),
	}
	for _, dn := range node.SelectElements("document") {
		d, err := readDocument(dn)
		if err != nil {
			return nil, err
		}
		c.Documents = append(c.Documents, d)
	}
	return c, nil
}

func readDocument(n *xmlquery.Node) (*bioc.Document, error) {
	d := &bioc.Document{
		ID:     childText(n, "id"),
		Infons: readInfons(n),
	}
	for _, pn := range n.SelectElements("passage") {
		p, err := readPassage(d.ID, pn)
		if err != nil {
			return nil, err
		}
		d.Passages = append(d.Passages, p)
	}
	rels, err := readRelations(n)
	if err != nil {
		return nil, err
	}
	d.Relations = rels
	return d, nil
}

func readPassage(docID string, n *xmlquery.Node) (*bioc.Passage, error) {
	offset, err := intField(docID, "passage offset", childText(n, "offset"))
	if err != nil {
		return nil, err
	}
	p := &bioc.Passage{
		Offset: offset,
		Text:   childText(n, "text"),
		Infons: readInfons(n),
	}
	for _, sn := range n.SelectElements("sentence") {
		s, err := readSentence(docID, sn)
		if err != nil {
			return nil, err
		}
		p.Sentences = append(p.Sentences, s)
	}
	if p.Annotations, err = readAnnotations(docID, n); err != nil {
		return nil, err
	}
	if p.Relations, err = readRelations(n); err != nil {
		return nil, err
	}
	return p, nil
}

func readSentence(docID string, n *xmlquery.Node) (*bioc.Sentence, error) {
	offset, err := intField(docID, "sentence offset", childText(n, "offset"))
	if err != nil {
		return nil, err
	}
	s := &bioc.Sentence{
		Offset: offset,
		Text:   childText(n, "text"),
		Infons: readInfons(n),
	}
	if s.Annotations, err = readAnnotations(docID, n); err != nil {
		return nil, err
	}
	if s.Relations, err = readRelations(n); err != nil {
		return nil, err
	}
	return s, nil
}

func readAnnotations(docID string, n *xmlquery.Node) ([]*bioc.Annotation, error) {
	var out []*bioc.Annotation
	for _, an := range n.SelectElements("annotation") {
		a := &bioc.Annotation{
			ID:     an.SelectAttr("id"),
			Text:   childText(an, "text"),
			Infons: readInfons(an),
		}
		a.Type = a.Infons["type"]
		for _, ln := range an.SelectElements("location") {
			offset, err := intField(docID, "location offset", ln.SelectAttr("offset"))
			if err != nil {
				return nil, err
			}
			length, err := intField(docID, "location length", ln.SelectAttr("length"))
			if err != nil {
				return nil, err
			}
			a.Locations = append(a.Locations, bioc.Location{Offset: offset, Length: length})
		}
		out = append(out, a)
	}
	return out, nil
}

func readRelations(n *xmlquery.Node) ([]*bioc.Relation, error) {
	var out []*bioc.Relation
	for _, rn := range n.SelectElements("relation") {
		r := &bioc.Relation{ID: rn.SelectAttr("id"), Infons: readInfons(rn)}
		for _, nn := range rn.SelectElements("node") {
			r.Nodes = append(r.Nodes, bioc.Node{RefID: nn.SelectAttr("refid"), Role: nn.SelectAttr("role")})
		}
		out = append(out, r)
	}
	return out, nil
}

func readInfons(n *xmlquery.Node) bioc.Infons {
	nodes := n.SelectElements("infon")
	if len(nodes) == 0 {
		return nil
	}
	in := make(bioc.Infons, len(nodes))
	for _, inf := range nodes {
		in[inf.SelectAttr("key")] = inf.InnerText()
	}
	return in
}

func childText(n *xmlquery.Node, name string) string {
	if c := n.SelectElement(name); c != nil {
		return c.InnerText()
	}
	return ""
}

func intField(docID, field, value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil || v < 0 {
		return 0, &internalerr.FormatError{
			Format:  formatName,
			Message: fmt.Sprintf("document %q: invalid %s %q", docID, field, value),
			Err:     err,
		}
	}
	return v, nil
}

type xmlInfon struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type xmlCollection struct {
	XMLName   xml.Name      `xml:"collection"`
	Source    string        `xml:"source"`
	Date      string        `xml:"date"`
	Key       string        `xml:"key"`
	Infons    []xmlInfon    `xml:"infon"`
	Documents []xmlDocument `xml:"document"`
}

type xmlDocument struct {
	ID        string        `xml:"id"`
	Infons    []xmlInfon    `xml:"infon"`
	Passages  []xmlPassage  `xml:"passage"`
	Relations []xmlRelation `xml:"relation"`
}

type xmlPassage struct {
	Infons      []xmlInfon      `xml:"infon"`
	Offset      int             `xml:"offset"`
	Text        string          `xml:"text,omitempty"`
	Sentences   []xmlSentence   `xml:"sentence"`
	Annotations []xmlAnnotation `xml:"annotation"`
	Relations   []xmlRelation   `xml:"relation"`
}

type xmlSentence struct {
	Infons      []xmlInfon      `xml:"infon"`
	Offset      int             `xml:"offset"`
	Text        string          `xml:"text,omitempty"`
	Annotations []xmlAnnotation `xml:"annotation"`
	Relations   []xmlRelation   `xml:"relation"`
}

type xmlAnnotation struct {
	ID        string        `xml:"id,attr"`
	Infons    []xmlInfon    `xml:"infon"`
	Locations []xmlLocation `xml:"location"`
	Text      string        `xml:"text"`
}

type xmlLocation struct {
	Offset int `xml:"offset,attr"`
	Length int `xml:"length,attr"`
}

type xmlRelation struct {
	ID     string     `xml:"id,attr"`
	Infons []xmlInfon `xml:"infon"`
	Nodes  []xmlNode  `xml:"node"`
}

type xmlNode struct {
	RefID string `xml:"refid,attr"`
	Role  string `xml:"role,attr"`
}

// WriteFile writes c to path, replacing any existing file.
func WriteFile(path string, c *bioc.Collection) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return &internalerr.IOError{Op: "create", Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &internalerr.IOError{Op: "write", Path: path, Err: cerr}
		}
	}()
	if err := Write(f, c); err != nil {
		return &internalerr.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Write serializes c as an indented BioC XML document. c is not modified.
func Write(w io.Writer, c *bioc.Collection) error {
	if _, err := io.WriteString(w, Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(toXML(c)); err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func toXML(c *bioc.Collection) xmlCollection {
	out := xmlCollection{Source: c.Source, Date: c.Date, Key: c.Key, Infons: infons(c.Infons)}
	for _, d := range c.Documents {
		xd := xmlDocument{ID: d.ID, Infons: infons(d.Infons), Relations: relations(d.Relations)}
		for _, p := range d.Passages {
			xp := xmlPassage{
				Infons:      infons(p.Infons),
				Offset:      p.Offset,
				Text:        p.Text,
				Annotations: annotations(p.Annotations),
				Relations:   relations(p.Relations),
			}
			for _, s := range p.Sentences {
				xp.Sentences = append(xp.Sentences, xmlSentence{
					Infons:      infons(s.Infons),
					Offset:      s.Offset,
					Text:        s.Text,
					Annotations: annotations(s.Annotations),
					Relations:   relations(s.Relations),
				})
			}
			xd.Passages = append(xd.Passages, xp)
		}
		out.Documents = append(out.Documents, xd)
	}
	return out
}

func infons(in bioc.Infons) []xmlInfon {
	if len(in) == 0 {
		return nil
	}
	out := make([]xmlInfon, 0, len(in))
	for _, k := range in.Keys() {
		out = append(out, xmlInfon{Key: k, Value: in[k]})
	}
	return out
}

// annotations writes the annotation type as the "type" infon, the BioC
// convention for categorized annotations.
func annotations(anns []*bioc.Annotation) []xmlAnnotation {
	var out []xmlAnnotation
	for _, a := range anns {
		in := a.Infons
		if a.Type != "" && in["type"] != a.Type {
			in = in.Clone()
			if in == nil {
				in = bioc.Infons{}
			}
			in["type"] = a.Type
		}
		xa := xmlAnnotation{ID: a.ID, Infons: infons(in), Text: a.Text}
		for _, l := range a.Locations {
			xa.Locations = append(xa.Locations, xmlLocation(l))
		}
		out = append(out, xa)
	}
	return out
}

func relations(rels []*bioc.Relation) []xmlRelation {
	var out []xmlRelation
	for _, r := range rels {
		xr := xmlRelation{ID: r.ID, Infons: infons(r.Infons)}
		for _, n := range r.Nodes {
			xr.Nodes = append(xr.Nodes, xmlNode(n))
		}
		out = append(out, xr)
	}
	return out
}
