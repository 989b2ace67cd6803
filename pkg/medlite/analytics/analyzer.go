// Package analytics aggregates run statistics over processed documents:
// structure counts, annotations per type, concept document frequency and
// concept co-occurrence.
package analytics

import (
	"math"
	"sort"

	"github.com/cognicore/medlite/pkg/medlite/bioc"
)

// Analyzer aggregates document-level concept statistics.
type Analyzer struct {
	totalDocs    int64
	passages     int64
	sentences    int64
	annotations  int64
	typeCounts   map[string]int64
	conceptDF    map[string]int64
	conceptTypes map[string]map[string]int64
	conceptNames map[string]string
	pairCounts   map[pair]int64 // document-level co-occurrence
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		typeCounts:   make(map[string]int64),
		conceptDF:    make(map[string]int64),
		conceptTypes: make(map[string]map[string]int64),
		conceptNames: make(map[string]string),
		pairCounts:   make(map[pair]int64),
	}
}

// ProcessCollection consumes every document of c.
func (a *Analyzer) ProcessCollection(c *bioc.Collection) {
	for _, d := range c.Documents {
		a.Process(d)
	}
}

// Process consumes one processed document. Only sentence-level annotations
// count as concept mentions.
func (a *Analyzer) Process(d *bioc.Document) {
	a.totalDocs++

	seen := make(map[string]struct{})
	for _, p := range d.Passages {
		a.passages++
		for _, s := range p.Sentences {
			a.sentences++
			for _, ann := range s.Annotations {
				a.annotations++
				a.typeCounts[ann.Type]++

				cui := ann.Infons["cui"]
				if cui == "" {
					continue
				}
				if _, ok := a.conceptNames[cui]; !ok {
					a.conceptNames[cui] = ann.Infons["preferredname"]
				}
				if _, ok := seen[cui]; ok {
					continue
				}
				seen[cui] = struct{}{}
				a.conceptDF[cui]++
				if ann.Type != "" {
					if a.conceptTypes[cui] == nil {
						a.conceptTypes[cui] = make(map[string]int64)
					}
					a.conceptTypes[cui][ann.Type]++
				}
			}
		}
	}

	unique := make([]string, 0, len(seen))
	for cui := range seen {
		unique = append(unique, cui)
	}
	sort.Strings(unique)
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			a.pairCounts[newPair(unique[i], unique[j])]++
		}
	}
}

// Stats exposes the aggregated counts.
type Stats struct {
	TotalDocs    int64
	Passages     int64
	Sentences    int64
	Annotations  int64
	TypeCounts   map[string]int64
	ConceptDF    map[string]int64
	ConceptTypes map[string]map[string]int64
	ConceptNames map[string]string
	PairCounts   map[pair]int64
}

// Snapshot returns a copy of the accumulated statistics.
func (a *Analyzer) Snapshot() Stats {
	copyTypes := make(map[string]map[string]int64, len(a.conceptTypes))
	for cui, types := range a.conceptTypes {
		copyTypes[cui] = make(map[string]int64, len(types))
		for t, count := range types {
			copyTypes[cui][t] = count
		}
	}
	copyPairs := make(map[pair]int64, len(a.pairCounts))
	for p, count := range a.pairCounts {
		copyPairs[p] = count
	}
	return Stats{
		TotalDocs:    a.totalDocs,
		Passages:     a.passages,
		Sentences:    a.sentences,
		Annotations:  a.annotations,
		TypeCounts:   copyCounts(a.typeCounts),
		ConceptDF:    copyCounts(a.conceptDF),
		ConceptTypes: copyTypes,
		ConceptNames: copyNames(a.conceptNames),
		PairCounts:   copyPairs,
	}
}

// ConceptStat describes how widely a concept occurs across the run.
type ConceptStat struct {
	CUI           string
	PreferredName string
	DF            int64
	DFPercent     float64
	IDF           float64
	TypeEntropy   float64 // 0 when a concept is always reported with one type
}

// TopConcepts returns concepts ordered by document frequency, then CUI.
func (s Stats) TopConcepts(limit int) []ConceptStat {
	if s.TotalDocs == 0 {
		return nil
	}
	out := make([]ConceptStat, 0, len(s.ConceptDF))
	for cui, df := range s.ConceptDF {
		out = append(out, ConceptStat{
			CUI:           cui,
			PreferredName: s.ConceptNames[cui],
			DF:            df,
			DFPercent:     100 * (float64(df) / float64(s.TotalDocs)),
			IDF:           math.Log(float64(s.TotalDocs) / (1 + float64(df))),
			TypeEntropy:   entropy(s.ConceptTypes[cui]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DF == out[j].DF {
			return out[i].CUI < out[j].CUI
		}
		return out[i].DF > out[j].DF
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TypeCount is the number of annotations carrying one type.
type TypeCount struct {
	Type  string
	Count int64
}

// TypesByCount returns annotation types ordered by count, then name.
func (s Stats) TypesByCount() []TypeCount {
	out := make([]TypeCount, 0, len(s.TypeCounts))
	for t, c := range s.TypeCounts {
		out = append(out, TypeCount{Type: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Type < out[j].Type
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// PairStat describes how strongly two concepts co-occur in documents.
type PairStat struct {
	A       string
	B       string
	PMI     float64
	Support int64 // documents mentioning both
}

// TopPairs returns concept pairs with PMI >= minPMI, strongest first.
func (s Stats) TopPairs(limit int, minPMI float64) []PairStat {
	if s.TotalDocs == 0 {
		return nil
	}
	var stats []PairStat
	for p, count := range s.PairCounts {
		if count == 0 {
			continue
		}
		pmi := computePMI(count, s.ConceptDF[p.A], s.ConceptDF[p.B], s.TotalDocs)
		if pmi < minPMI {
			continue
		}
		stats = append(stats, PairStat{A: p.A, B: p.B, PMI: pmi, Support: count})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].PMI == stats[j].PMI {
			if stats[i].Support == stats[j].Support {
				return stats[i].A+stats[i].B < stats[j].A+stats[j].B
			}
			return stats[i].Support > stats[j].Support
		}
		return stats[i].PMI > stats[j].PMI
	})

	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

func computePMI(pairCount, dfA, dfB, totalDocs int64) float64 {
	if dfA == 0 || dfB == 0 || totalDocs == 0 {
		return 0
	}
	smooth := 1.0
	numerator := (float64(pairCount) + smooth) / float64(totalDocs)
	denominator := ((float64(dfA) + smooth) / float64(totalDocs)) * ((float64(dfB) + smooth) / float64(totalDocs))
	return math.Log(numerator / denominator)
}

func entropy(counts map[string]int64) float64 {
	if len(counts) == 0 {
		return 0
	}
	var total float64
	for _, c := range counts {
		total += float64(c)
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, c := range counts {
		p := float64(c) / total
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h / math.Log2(float64(len(counts))+1)
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyNames(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type pair struct {
	A string
	B string
}

func newPair(a, b string) pair {
	if a > b {
		a, b = b, a
	}
	return pair{A: a, B: b}
}
