// Package resultformats serializes processed documents. Writers never
// modify the values they are given.
package resultformats

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
	"github.com/cognicore/medlite/pkg/medlite/internalerr"
)

// Output formats.
const (
	MMI  = "mmi"
	BRAT = "brat"
	BC   = "bc"
	BioC = "bioc"
)

// Writer serializes a processed collection.
type Writer func(w io.Writer, c *bioc.Collection) error

type format struct {
	write     Writer
	extension string
}

var formats = map[string]format{
	MMI:  {write: WriteMMI, extension: ".mmi"},
	BRAT: {write: WriteBRAT, extension: ".ann"},
	BC:   {write: WriteBC, extension: ".bc"},
	BioC: {write: WriteBioC, extension: ".xml"},
}

var aliases = map[string]string{
	"mmi":         MMI,
	"mmilike":     MMI,
	"brat":        BRAT,
	"bc":          BC,
	"bc-evaluate": BC,
	"cdi":         BC,
	"bioc":        BioC,
}

// Canonical maps a format name or alias (case-insensitive) to its format.
func Canonical(name string) (string, error) {
	f, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", &internalerr.ConfigurationError{
			Key:     "output format",
			Message: fmt.Sprintf("unknown output format %q (supported: %s)", name, strings.Join(Names(), ", ")),
		}
	}
	return f, nil
}

// Names returns the accepted format names and aliases in sorted order.
func Names() []string {
	out := make([]string, 0, len(aliases))
	for a := range aliases {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Extension returns the conventional file extension for a format.
func Extension(name string) string {
	f, err := Canonical(name)
	if err != nil {
		return ""
	}
	return formats[f].extension
}

// Write serializes c in the named format.
func Write(name string, w io.Writer, c *bioc.Collection) error {
	f, err := Canonical(name)
	if err != nil {
		return err
	}
	return formats[f].write(w, c)
}

// Mention is one annotation found by the pipeline together with the
// containers it belongs to.
type Mention struct {
	Passage    *bioc.Passage
	Sentence   *bioc.Sentence
	Annotation *bioc.Annotation
}

// Mentions lists the sentence-level annotations of d in document order.
// Passage-level annotations (such as gold markup from the input) are not
// pipeline results and are left out.
func Mentions(d *bioc.Document) []Mention {
	var out []Mention
	for _, p := range d.Passages {
		for _, s := range p.Sentences {
			for _, a := range s.Annotations {
				out = append(out, Mention{Passage: p, Sentence: s, Annotation: a})
			}
		}
	}
	return out
}
