package document

import (
	"io"
	"strings"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
)

// ReadChemDNER reads CHEMDNER abstracts, one per line:
//
//	<id> TAB <title> TAB <abstract>
func ReadChemDNER(r io.Reader, name string) ([]*bioc.Document, error) {
	var docs []*bioc.Document
	err := eachLine(r, name, func(line string, n int) error {
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			return lineError(ChemDNER, name, n, "expected id, title and abstract separated by tabs")
		}
		id := strings.TrimSpace(fields[0])
		if id == "" {
			return lineError(ChemDNER, name, n, "empty document id")
		}
		docs = append(docs, titleAbstract(id, fields[1], fields[2]))
		return nil
	})
	return docs, err
}

// ReadChemDNERSLDI reads the SLDI variant of CHEMDNER, one abstract per line:
//
//	<id>|<title> TAB <abstract>
func ReadChemDNERSLDI(r io.Reader, name string) ([]*bioc.Document, error) {
	var docs []*bioc.Document
	err := eachLine(r, name, func(line string, n int) error {
		head, abstract, ok := strings.Cut(line, "\t")
		if !ok {
			return lineError(ChemDNERSLDI, name, n, "expected a tab between title and abstract")
		}
		id, title, ok := strings.Cut(head, "|")
		if !ok {
			return lineError(ChemDNERSLDI, name, n, "expected id|title")
		}
		id = strings.TrimSpace(id)
		if id == "" {
			return lineError(ChemDNERSLDI, name, n, "empty document id")
		}
		docs = append(docs, titleAbstract(id, title, abstract))
		return nil
	})
	return docs, err
}
