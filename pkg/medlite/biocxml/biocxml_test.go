package biocxml

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
	"github.com/cognicore/medlite/pkg/medlite/internalerr"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE collection SYSTEM "BioC.dtd">
<collection>
  <source>PubMed</source>
  <date>20240101</date>
  <key>collection.key</key>
  <infon key="project">demo</infon>
  <document>
    <id>1001</id>
    <infon key="journal">J Med</infon>
    <passage>
      <infon key="type">title</infon>
      <offset>0</offset>
      <text>Diabetes &amp; fever</text>
      <annotation id="G1">
        <infon key="type">Disease</infon>
        <location offset="0" length="8"/>
        <text>Diabetes</text>
      </annotation>
    </passage>
    <passage>
      <infon key="type">abstract</infon>
      <offset>18</offset>
      <sentence>
        <offset>18</offset>
        <text>Patient has diabetes.</text>
      </sentence>
      <relation id="R1">
        <infon key="kind">cooccurs</infon>
        <node refid="G1" role="arg1"/>
      </relation>
    </passage>
  </document>
</collection>
`

func TestRead(t *testing.T) {
	c, err := Read(strings.NewReader(sampleXML))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if c.Source != "PubMed" || c.Date != "20240101" || c.Key != "collection.key" {
		t.Errorf("collection header = %q %q %q", c.Source, c.Date, c.Key)
	}
	if c.Infons["project"] != "demo" {
		t.Errorf("collection infons = %v", c.Infons)
	}
	if len(c.Documents) != 1 {
		t.Fatalf("documents = %d", len(c.Documents))
	}

	d := c.Documents[0]
	if d.ID != "1001" || len(d.Passages) != 2 {
		t.Fatalf("document = %+v", d)
	}
	title := d.Passages[0]
	if title.Text != "Diabetes & fever" || title.Infons["type"] != "title" {
		t.Errorf("title passage = %+v", title)
	}
	if len(title.Annotations) != 1 {
		t.Fatalf("annotations = %d", len(title.Annotations))
	}
	a := title.Annotations[0]
	if a.ID != "G1" || a.Type != "Disease" || a.Begin() != 0 || a.End() != 8 {
		t.Errorf("annotation = %+v", a)
	}

	abstract := d.Passages[1]
	if abstract.Offset != 18 || len(abstract.Sentences) != 1 || abstract.Sentences[0].Text != "Patient has diabetes." {
		t.Errorf("abstract passage = %+v", abstract)
	}
	if len(abstract.Relations) != 1 || !reflect.DeepEqual(abstract.Relations[0].Nodes, []bioc.Node{{RefID: "G1", Role: "arg1"}}) {
		t.Errorf("relations = %+v", abstract.Relations)
	}
}

func TestRoundTrip(t *testing.T) {
	c, err := Read(strings.NewReader(sampleXML))
	if err != nil {
		t.Fatal(err)
	}
	before := c.Clone()

	var buf bytes.Buffer
	if err := Write(&buf, c); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !reflect.DeepEqual(c, before) {
		t.Error("Write modified its input")
	}

	again, err := Read(&buf)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if !reflect.DeepEqual(again, c) {
		t.Errorf("round trip changed the collection:\n%+v\n%+v", again, c)
	}
}

func TestWriteSortsInfonsAndAddsType(t *testing.T) {
	c := &bioc.Collection{
		Source: "s",
		Infons: bioc.Infons{"zeta": "1", "alpha": "2"},
		Documents: []*bioc.Document{{
			ID: "d1",
			Passages: []*bioc.Passage{{
				Text: "fever",
				Annotations: []*bioc.Annotation{{
					ID:        "E0-5",
					Type:      "sosy",
					Text:      "fever",
					Infons:    bioc.Infons{"cui": "C0015967"},
					Locations: []bioc.Location{{Offset: 0, Length: 5}},
				}},
			}},
		}},
	}

	var buf bytes.Buffer
	if err := Write(&buf, c); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, Header) {
		t.Error("missing XML header")
	}
	if strings.Index(out, `key="alpha"`) > strings.Index(out, `key="zeta"`) {
		t.Error("infons not written in sorted order")
	}
	if !strings.Contains(out, `<infon key="type">sosy</infon>`) {
		t.Errorf("annotation type not written as infon:\n%s", out)
	}
	if _, ok := c.Documents[0].Passages[0].Annotations[0].Infons["type"]; ok {
		t.Error("Write added an infon to the caller's annotation")
	}
}

func TestReadErrors(t *testing.T) {
	cases := map[string]string{
		"not xml":       "<collection><document></collection>",
		"no collection": "<corpus/>",
		"bad offset":    "<collection><document><id>1</id><passage><offset>x</offset></passage></document></collection>",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(input))
			if !errors.Is(err, internalerr.ErrFormat) {
				t.Errorf("expected format error, got %v", err)
			}
		})
	}
}

func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadFile(filepath.Join(dir, "missing.xml")); !errors.Is(err, internalerr.ErrIO) {
		t.Errorf("missing file: expected IO error, got %v", err)
	}

	bad := filepath.Join(dir, "bad.xml")
	if err := os.WriteFile(bad, []byte("<corpus/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadFile(bad)
	var fe *internalerr.FormatError
	if !errors.As(err, &fe) || fe.Path != bad {
		t.Errorf("expected format error naming %s, got %v", bad, err)
	}

	out := filepath.Join(dir, "out.xml")
	c := &bioc.Collection{Key: "k", Documents: []*bioc.Document{{ID: "1"}}}
	if err := WriteFile(out, c); err != nil {
		t.Fatal(err)
	}
	back, err := ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if back.Key != "k" || len(back.Documents) != 1 || back.Documents[0].ID != "1" {
		t.Errorf("read back %+v", back)
	}
}
