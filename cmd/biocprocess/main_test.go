package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
	"github.com/cognicore/medlite/pkg/medlite/biocxml"
	"github.com/cognicore/medlite/pkg/medlite/internalerr"
)

const inputXML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE collection SYSTEM "BioC.dtd">
<collection>
  <source>PubMed</source>
  <date>20240101</date>
  <key>test.key</key>
  <infon key="corpus">sample</infon>
  <document>
    <id>100</id>
    <infon key="journal">Test Journal</infon>
    <passage>
      <infon key="type">title</infon>
      <offset>0</offset>
      <text>Fever in children</text>
    </passage>
    <passage>
      <infon key="type">abstract</infon>
      <offset>18</offset>
      <text>Diabetes was absent. Fever resolved.</text>
    </passage>
  </document>
</collection>
`

func writeFixture(t *testing.T, extra ...string) (dir, props string) {
	t.Helper()
	dir = t.TempDir()
	dict := filepath.Join(dir, "concepts.yaml")
	require.NoError(t, os.WriteFile(dict, []byte(`concepts:
  - cui: C0011849
    name: Diabetes Mellitus
    semtypes: [dsyn]
    terms: [diabetes]
  - cui: C0015967
    name: Fever
    semtypes: [sosy]
    terms: [fever]
`), 0o644))

	props = filepath.Join(dir, "bioc.metamaplite.properties")
	require.NoError(t, os.WriteFile(props, []byte(strings.Join(append([]string{
		"metamaplite.plugin.tokenizer = medlite.ingest.Tokenizer",
		"metamaplite.plugin.entitylookup = medlite.ingest.EntityLookup",
		"metamaplite.pipeline.simple.sentence = tokenizer,entitylookup",
		"metamaplite.concept.dictionary = " + dict,
		"metamaplite.excluded.termsfile = " + filepath.Join(dir, "none.txt"),
		"metamaplite.log.level = error",
	}, extra...), "\n")), 0o644))
	return dir, props
}

func TestRunAnnotatesCollection(t *testing.T) {
	dir, props := writeFixture(t)
	in := filepath.Join(dir, "in.xml")
	out := filepath.Join(dir, "out.xml")
	require.NoError(t, os.WriteFile(in, []byte(inputXML), 0o644))

	cli := &CLI{Input: in, Output: out, Config: props, Workers: 2}
	require.NoError(t, cli.run(context.Background()))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), biocxml.Header))

	c, err := biocxml.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "PubMed", c.Source)
	assert.Equal(t, "20240101", c.Date)
	assert.Equal(t, "test.key", c.Key)
	assert.Equal(t, bioc.Infons{"corpus": "sample"}, c.Infons)
	require.Len(t, c.Documents, 1)

	d := c.Documents[0]
	assert.Equal(t, bioc.Infons{"journal": "Test Journal"}, d.Infons)
	require.Len(t, d.Passages, 2)
	title := d.Passages[0]
	require.Len(t, title.Sentences, 1)
	require.Len(t, title.Sentences[0].Annotations, 1)
	assert.Equal(t, 0, title.Sentences[0].Annotations[0].Begin())
	assert.Equal(t, "sosy", title.Sentences[0].Annotations[0].Type)

	abstract := d.Passages[1]
	require.Len(t, abstract.Sentences, 2)
	first := abstract.Sentences[0].Annotations
	require.Len(t, first, 1)
	assert.Equal(t, 18, first[0].Begin())
	assert.Equal(t, "C0011849", first[0].Infons["cui"])
	require.NoError(t, d.Validate())
}

func TestRunRejectsMalformedInput(t *testing.T) {
	dir, props := writeFixture(t)
	in := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(in, []byte("<collection><document><offset>x</offset></collection>"), 0o644))

	cli := &CLI{Input: in, Output: filepath.Join(dir, "out.xml"), Config: props}
	assert.Error(t, cli.run(context.Background()))
	_, err := os.Stat(cli.Output)
	assert.True(t, os.IsNotExist(err), "no output on failure")
}

func TestRunReportsConfigurationBeforeLoading(t *testing.T) {
	dir, props := writeFixture(t, "metamaplite.plugin.tokenizer = no.such.Implementation")
	in := filepath.Join(dir, "in.xml")
	require.NoError(t, os.WriteFile(in, []byte(inputXML[:len(inputXML)/2]), 0o644))

	cli := &CLI{Input: in, Output: filepath.Join(dir, "out.xml"), Config: props}
	err := cli.run(context.Background())
	assert.True(t, errors.Is(err, internalerr.ErrConfiguration), "got %v", err)
	assert.False(t, errors.Is(err, internalerr.ErrFormat), "input must not be read: %v", err)
}

func TestRunValidatesInput(t *testing.T) {
	cases := map[string]string{
		"duplicate ids": `<collection>
  <document><id>1</id><passage><offset>0</offset><text>Fever.</text></passage></document>
  <document><id>1</id><passage><offset>0</offset><text>Fever.</text></passage></document>
</collection>`,
		"sentence outside passage": `<collection>
  <document><id>1</id><passage><offset>0</offset><text>Fever.</text>
    <sentence><offset>50</offset><text>Fever.</text></sentence>
  </passage></document>
</collection>`,
	}
	for name, xml := range cases {
		t.Run(name, func(t *testing.T) {
			dir, props := writeFixture(t)
			in := filepath.Join(dir, "in.xml")
			require.NoError(t, os.WriteFile(in, []byte(xml), 0o644))

			cli := &CLI{Input: in, Output: filepath.Join(dir, "out.xml"), Config: props}
			err := cli.run(context.Background())
			var fe *internalerr.FormatError
			require.True(t, errors.As(err, &fe), "got %v", err)
			_, statErr := os.Stat(cli.Output)
			assert.True(t, os.IsNotExist(statErr), "no output on invalid input")
		})
	}
}

func TestUsageExitsNonZero(t *testing.T) {
	var codes []int
	exit = func(code int) { codes = append(codes, code) }
	t.Cleanup(func() { exit = os.Exit })

	var cli CLI
	parser, err := kong.New(&cli, append(options(), kong.Writers(io.Discard, io.Discard))...)
	require.NoError(t, err)
	_, _ = parser.Parse([]string{"--help"})
	require.NotEmpty(t, codes)
	assert.Equal(t, 1, codes[0])
}
