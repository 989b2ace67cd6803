package main

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/cognicore/medlite/pkg/medlite/analytics"
	"github.com/cognicore/medlite/pkg/medlite/bioc"
	"github.com/cognicore/medlite/pkg/medlite/internalerr"
)

const reportLimit = 20

type report struct {
	TotalDocs   int64          `json:"total_docs"`
	Passages    int64          `json:"passages"`
	Sentences   int64          `json:"sentences"`
	Annotations int64          `json:"annotations"`
	Types       []typeEntry    `json:"types"`
	Concepts    []conceptEntry `json:"top_concepts"`
	Pairs       []pairEntry    `json:"top_pairs"`
}

type typeEntry struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

type conceptEntry struct {
	CUI           string  `json:"cui"`
	PreferredName string  `json:"preferred_name"`
	DF            int64   `json:"df"`
	DFPercent     float64 `json:"df_percent"`
	Entropy       float64 `json:"type_entropy"`
}

type pairEntry struct {
	A       string  `json:"a"`
	B       string  `json:"b"`
	PMI     float64 `json:"pmi"`
	Support int64   `json:"support"`
}

func buildReport(c *bioc.Collection) report {
	a := analytics.NewAnalyzer()
	a.ProcessCollection(c)
	stats := a.Snapshot()

	rep := report{
		TotalDocs:   stats.TotalDocs,
		Passages:    stats.Passages,
		Sentences:   stats.Sentences,
		Annotations: stats.Annotations,
		Types:       []typeEntry{},
		Concepts:    []conceptEntry{},
		Pairs:       []pairEntry{},
	}
	for _, t := range stats.TypesByCount() {
		rep.Types = append(rep.Types, typeEntry{Type: t.Type, Count: t.Count})
	}
	for _, cs := range stats.TopConcepts(reportLimit) {
		rep.Concepts = append(rep.Concepts, conceptEntry{
			CUI:           cs.CUI,
			PreferredName: cs.PreferredName,
			DF:            cs.DF,
			DFPercent:     cs.DFPercent,
			Entropy:       cs.TypeEntropy,
		})
	}
	for _, p := range stats.TopPairs(reportLimit, 0) {
		rep.Pairs = append(rep.Pairs, pairEntry{A: p.A, B: p.B, PMI: p.PMI, Support: p.Support})
	}
	return rep
}

func logReport(log *slog.Logger, rep report) {
	log.Info("run statistics",
		"documents", rep.TotalDocs,
		"passages", rep.Passages,
		"sentences", rep.Sentences,
		"annotations", rep.Annotations,
		"types", len(rep.Types))
	for _, c := range rep.Concepts {
		log.Info("concept", "cui", c.CUI, "name", c.PreferredName, "df", c.DF, "df_percent", c.DFPercent)
	}
}

func writeReport(path string, rep report) error {
	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return &internalerr.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
