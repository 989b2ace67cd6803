// Package document loads input corpora into the bioc document model.
//
// Every loader produces documents with absolute passage offsets and unique
// IDs, or fails with a FormatError (bad content) or IOError (unreadable
// file).
package document

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
	"github.com/cognicore/medlite/pkg/medlite/biocxml"
	"github.com/cognicore/medlite/pkg/medlite/internalerr"
)

// Input formats.
const (
	FreeText     = "freetext"
	ChemDNER     = "chemdner"
	ChemDNERSLDI = "chemdnersldi"
	NCBICorpus   = "ncbicorpus"
	SLI          = "sli"
	BioC         = "bioc"
)

// Passage type infon values.
const (
	PassageTitle    = "title"
	PassageAbstract = "abstract"
)

// A Loader parses one input stream. name is used for error messages.
type Loader func(r io.Reader, name string) ([]*bioc.Document, error)

var loaders = map[string]Loader{
	FreeText:     ReadFreeText,
	ChemDNER:     ReadChemDNER,
	ChemDNERSLDI: ReadChemDNERSLDI,
	NCBICorpus:   ReadNCBICorpus,
	SLI:          ReadSLI,
	BioC:         readBioC,
}

// Formats returns the supported input formats in sorted order.
func Formats() []string {
	out := make([]string, 0, len(loaders))
	for f := range loaders {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// LoaderFor returns the loader for format.
func LoaderFor(format string) (Loader, error) {
	l, ok := loaders[strings.ToLower(format)]
	if !ok {
		return nil, &internalerr.ConfigurationError{
			Key:     "input format",
			Message: fmt.Sprintf("unknown input format %q (supported: %s)", format, strings.Join(Formats(), ", ")),
		}
	}
	return l, nil
}

// Load reads the documents of one file.
func Load(format, path string) ([]*bioc.Document, error) {
	l, err := LoaderFor(format)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &internalerr.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	docs, err := l(f, path)
	if err != nil {
		return nil, err
	}
	if err := checkDocuments(format, path, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// LoadCollection reads one or more files into a single collection. A BioC
// input keeps its collection header; other formats get the first path as
// source.
func LoadCollection(format string, paths ...string) (*bioc.Collection, error) {
	if len(paths) == 0 {
		return nil, &internalerr.ConfigurationError{Key: "input", Message: "no input files"}
	}

	c := &bioc.Collection{Source: paths[0]}
	for i, path := range paths {
		if strings.EqualFold(format, BioC) {
			in, err := biocxml.ReadFile(path)
			if err != nil {
				return nil, err
			}
			if err := checkDocuments(format, path, in.Documents); err != nil {
				return nil, err
			}
			if i == 0 {
				c.Source, c.Date, c.Key, c.Infons = in.Source, in.Date, in.Key, in.Infons
			}
			c.Documents = append(c.Documents, in.Documents...)
			continue
		}
		docs, err := Load(format, path)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(format, FreeText) {
			for _, d := range docs {
				renumberFreeText(d, i)
			}
		}
		c.Documents = append(c.Documents, docs...)
	}

	if err := c.Validate(); err != nil {
		return nil, &internalerr.FormatError{Format: format, Path: strings.Join(paths, ","), Message: "invalid collection", Err: err}
	}
	return c, nil
}

func checkDocuments(format, path string, docs []*bioc.Document) error {
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		if seen[d.ID] {
			return &internalerr.FormatError{Format: format, Path: path, Message: fmt.Sprintf("duplicate document id %q", d.ID)}
		}
		seen[d.ID] = true
		if err := d.Validate(); err != nil {
			return &internalerr.FormatError{Format: format, Path: path, Message: "invalid document " + d.ID, Err: err}
		}
	}
	return nil
}

func readBioC(r io.Reader, name string) ([]*bioc.Document, error) {
	c, err := biocxml.Read(r)
	var fe *internalerr.FormatError
	if errors.As(err, &fe) && fe.Path == "" {
		fe.Path = name
	}
	if err != nil {
		return nil, err
	}
	return c.Documents, nil
}

// eachLine calls fn with every non-blank line and its 1-based number.
func eachLine(r io.Reader, name string, fn func(line string, n int) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := fn(line, n); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return &internalerr.IOError{Op: "read", Path: name, Err: err}
	}
	return nil
}

func lineError(format, name string, line int, msg string) error {
	return &internalerr.FormatError{Format: format, Path: name, Line: line, Message: msg}
}

// titleAbstract builds the two-passage document shared by the corpus
// formats. The abstract starts one byte after the title.
func titleAbstract(id, title, abstract string) *bioc.Document {
	d := &bioc.Document{ID: id}
	d.Passages = append(d.Passages, &bioc.Passage{
		Offset: 0,
		Text:   title,
		Infons: bioc.Infons{"type": PassageTitle},
	})
	d.Passages = append(d.Passages, &bioc.Passage{
		Offset: len(title) + 1,
		Text:   abstract,
		Infons: bioc.Infons{"type": PassageAbstract},
	})
	return d
}
