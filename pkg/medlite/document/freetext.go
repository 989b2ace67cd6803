package document

import (
	"fmt"
	"io"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
	"github.com/cognicore/medlite/pkg/medlite/internalerr"
)

// FreeTextID is the identifier given to a single free-text document.
const FreeTextID = "00000000.tx"

// ReadFreeText turns the whole input into one document with a single
// passage at offset 0.
func ReadFreeText(r io.Reader, name string) ([]*bioc.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &internalerr.IOError{Op: "read", Path: name, Err: err}
	}
	d := &bioc.Document{
		ID: FreeTextID,
		Passages: []*bioc.Passage{{
			Offset: 0,
			Text:   string(data),
			Infons: bioc.Infons{"docid": FreeTextID, "freetext": "freetext"},
		}},
	}
	return []*bioc.Document{d}, nil
}

// renumberFreeText gives the i-th free-text file of a run its own ID.
func renumberFreeText(d *bioc.Document, i int) {
	d.ID = fmt.Sprintf("%08d.tx", i)
	for _, p := range d.Passages {
		if p.Infons != nil {
			p.Infons["docid"] = d.ID
		}
	}
}
