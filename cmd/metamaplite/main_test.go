package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/medlite/pkg/medlite/config"
	"github.com/cognicore/medlite/pkg/medlite/document"
	"github.com/cognicore/medlite/pkg/medlite/internalerr"
	"github.com/cognicore/medlite/pkg/medlite/resultformats"
)

const testDictionary = `concepts:
  - cui: C0011849
    name: Diabetes Mellitus
    semtypes: [dsyn]
    sources: [MSH]
    terms: [diabetes, diabetes mellitus]
  - cui: C0015967
    name: Fever
    semtypes: [sosy]
    sources: [MSH]
    terms: [fever]
`

// writeFixture lays out a properties file and dictionary under a temp dir
// and returns the properties path.
func writeFixture(t *testing.T) (dir, props string) {
	t.Helper()
	dir = t.TempDir()
	dict := filepath.Join(dir, "concepts.yaml")
	require.NoError(t, os.WriteFile(dict, []byte(testDictionary), 0o644))

	props = filepath.Join(dir, "metamaplite.properties")
	text := strings.Join([]string{
		"metamaplite.plugin.tokenizer = medlite.ingest.Tokenizer",
		"metamaplite.plugin.postagger = medlite.ingest.PartOfSpeechTagger",
		"metamaplite.plugin.entitylookup = medlite.ingest.EntityLookup",
		"metamaplite.pipeline.simple.sentence = tokenizer,postagger,entitylookup",
		"metamaplite.concept.dictionary = " + dict,
		"metamaplite.excluded.termsfile = " + filepath.Join(dir, "specialterms.txt"),
		"metamaplite.log.level = error",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(props, []byte(text), 0o644))
	return dir, props
}

func parse(t *testing.T, args ...string) *CLI {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("metamaplite"), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	_, err = parser.Parse(args)
	require.NoError(t, err)
	return &cli
}

func TestRunFreeTextToMMI(t *testing.T) {
	dir, props := writeFixture(t)
	in := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(in, []byte("Patient has diabetes and fever."), 0o644))

	cli := parse(t, "--config", props, in)
	var out bytes.Buffer
	require.NoError(t, cli.run(context.Background(), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "00000000.tx|MMI|"), lines[0])
	assert.Contains(t, out.String(), "|C0011849|[dsyn]|")
	assert.Contains(t, out.String(), "|C0015967|[sosy]|")
}

func TestRunChemDNERToBRATFile(t *testing.T) {
	dir, props := writeFixture(t)
	in := filepath.Join(dir, "abstracts.txt")
	require.NoError(t, os.WriteFile(in, []byte("123\tFever\tNo diabetes.\n"), 0o644))
	outPath := filepath.Join(dir, "out.ann")
	statsPath := filepath.Join(dir, "stats.json")

	cli := parse(t, "--config", props, "--chemdner", "--BRAT", "-o", outPath, "--stats-json", statsPath, in)
	var stdout bytes.Buffer
	require.NoError(t, cli.run(context.Background(), &stdout))
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "T1\tsosy 0 5\tFever")
	assert.Contains(t, string(data), "AnnotatorNotes T1\tC0015967 Fever")

	raw, err := os.ReadFile(statsPath)
	require.NoError(t, err)
	var rep report
	require.NoError(t, json.Unmarshal(raw, &rep))
	assert.EqualValues(t, 1, rep.TotalDocs)
	assert.EqualValues(t, 2, rep.Annotations)
	require.Len(t, rep.Concepts, 2)
	assert.Equal(t, "C0011849", rep.Concepts[0].CUI)
}

func TestRunBioCOutput(t *testing.T) {
	dir, props := writeFixture(t)
	in := filepath.Join(dir, "lines.txt")
	require.NoError(t, os.WriteFile(in, []byte("p1|Fever again.\n"), 0o644))

	cli := parse(t, "--config", props, "--sli", "--bioc", in)
	var out bytes.Buffer
	require.NoError(t, cli.run(context.Background(), &out))
	assert.Contains(t, out.String(), "<collection>")
	assert.Contains(t, out.String(), "<id>p1</id>")
	assert.Contains(t, out.String(), `<infon key="cui">C0015967</infon>`)
}

func TestOverridesReachConfig(t *testing.T) {
	_, props := writeFixture(t)
	cli := parse(t, "--config", props, "--luceneresultlen", "3", "--workers", "2", "in.txt")

	cfg, err := config.LoadFile(props)
	require.NoError(t, err)
	require.NoError(t, cli.applyOverrides(cfg))
	assert.Equal(t, "3", cfg.String(config.KeyResultLength, ""))
	assert.Equal(t, "2", cfg.String(config.KeyWorkers, ""))
	assert.Equal(t, document.FreeText, cli.inputFormat(cfg))
	assert.Equal(t, resultformats.MMI, cli.outputFormat(cfg))
}

func TestRunErrors(t *testing.T) {
	dir, props := writeFixture(t)

	cli := parse(t, "--config", filepath.Join(dir, "missing.properties"), "in.txt")
	err := cli.run(context.Background(), &bytes.Buffer{})
	assert.True(t, errors.Is(err, internalerr.ErrConfiguration), "got %v", err)

	cli = parse(t, "--config", props, filepath.Join(dir, "nope.txt"))
	err = cli.run(context.Background(), &bytes.Buffer{})
	var ioErr *internalerr.IOError
	assert.True(t, errors.As(err, &ioErr), "got %v", err)
}

func TestFormatFlagsAreExclusive(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("metamaplite"), kong.Exit(func(int) {}))
	require.NoError(t, err)

	_, err = parser.Parse([]string{"--mmi", "--brat", "in.txt"})
	assert.Error(t, err)
	_, err = parser.Parse([]string{"--sli", "--chemdner", "in.txt"})
	assert.Error(t, err)
}

func TestFormatAliases(t *testing.T) {
	_, props := writeFixture(t)
	for _, args := range [][]string{{"--mmilike"}, {"--cdi"}, {"--bc-evaluate"}} {
		cli := parse(t, append([]string{"--config", props}, append(args, "in.txt")...)...)
		assert.True(t, cli.MMI || cli.BC, "flags %v", args)
	}
}

func TestOutputDirectoryUsesExtension(t *testing.T) {
	dir, props := writeFixture(t)
	in := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(in, []byte("Fever."), 0o644))
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(outDir, 0o755))

	cli := parse(t, "--config", props, "--brat", "-o", outDir, in)
	require.NoError(t, cli.run(context.Background(), &bytes.Buffer{}))
	data, err := os.ReadFile(filepath.Join(outDir, "note.ann"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "T1\tsosy 0 5\tFever")

	cfg, err := config.LoadFile(props)
	require.NoError(t, err)
	require.NoError(t, cfg.Set(config.KeyOutputExtension, ".txt"))
	assert.Equal(t, filepath.Join(outDir, "note.txt"), cli.outputPath(cfg, resultformats.BRAT))

	cli = parse(t, "--config", props, "-o", filepath.Join(dir, "plain.mmi"), in)
	assert.Equal(t, filepath.Join(dir, "plain.mmi"), cli.outputPath(cfg, resultformats.MMI))
}
