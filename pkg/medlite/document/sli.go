package document

import (
	"io"
	"strconv"
	"strings"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
)

// ReadSLI reads single-line input: every non-blank line is one document.
// A line of the form "<id>|<text>" names its document; otherwise the line
// number is the id.
func ReadSLI(r io.Reader, name string) ([]*bioc.Document, error) {
	var docs []*bioc.Document
	err := eachLine(r, name, func(line string, n int) error {
		id, text, ok := strings.Cut(line, "|")
		id = strings.TrimSpace(id)
		if !ok || id == "" || strings.ContainsAny(id, " \t") {
			id, text = strconv.Itoa(n), line
		}
		if strings.TrimSpace(text) == "" {
			return lineError(SLI, name, n, "document "+id+" has no text")
		}
		docs = append(docs, &bioc.Document{
			ID: id,
			Passages: []*bioc.Passage{{
				Offset: 0,
				Text:   text,
				Infons: bioc.Infons{"docid": id},
			}},
		})
		return nil
	})
	return docs, err
}
