package enrich

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/dithap/dithap-explorer/internal/ontology"
)

// Alpha is the corrected p-value cut-off for reported terms.
const Alpha = 0.05

// ErrInvalidInput is returned when the background gene set is empty.
var ErrInvalidInput = errors.New("invalid input: background gene set is empty")

// Engine runs term enrichment studies. Counts are not propagated to
// ancestor terms: a gene counts only toward the terms it is directly
// annotated with.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates an engine.
func NewEngine() *Engine {
	return &Engine{logger: zap.NewNop()}
}

// SetLogger sets the logger for warnings.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Run tests every term annotated by at least one background gene and
// returns the significantly enriched ones, ordered by namespace then term
// ID. An empty query yields no records; an empty background is an error.
func (e *Engine) Run(query, background []string, dag *ontology.DAG, assoc *ontology.Associations) ([]Record, error) {
	all, err := e.Study(query, background, dag, assoc)
	if err != nil {
		return nil, err
	}
	var sig []Record
	for _, r := range all {
		if r.Significant() {
			sig = append(sig, r)
		}
	}
	return sig, nil
}

// RunStore is Run against a loaded ontology store.
func (e *Engine) RunStore(query, background []string, s *ontology.Store) ([]Record, error) {
	return e.Run(query, background, s.DAG, s.Associations)
}

// Study returns the records of every tested term, enriched or not, with
// corrected p-values pooled across all namespaces tested in the call.
func (e *Engine) Study(query, background []string, dag *ontology.DAG, assoc *ontology.Associations) ([]Record, error) {
	pop := toSet(background)
	if len(pop) == 0 {
		return nil, ErrInvalidInput
	}
	study := toSet(query)
	if len(study) == 0 {
		return nil, nil
	}

	outside := 0
	for g := range study {
		if _, ok := pop[g]; !ok {
			outside++
		}
	}
	if outside > 0 {
		e.logger.Warn("query genes absent from background",
			zap.Int("absent", outside),
			zap.Int("query", len(study)),
			zap.Int("background", len(pop)))
	}

	studyN, popN := len(study), len(pop)
	var records []Record

	for _, ns := range assoc.Namespaces() {
		popItems := map[string][]string{} // term -> background genes
		for gene, terms := range assoc.Genes(ns) {
			if _, ok := pop[gene]; !ok {
				continue
			}
			for _, t := range terms {
				popItems[t] = append(popItems[t], gene)
			}
		}

		termIDs := make([]string, 0, len(popItems))
		for t := range popItems {
			termIDs = append(termIDs, t)
		}
		sort.Strings(termIDs)

		for _, id := range termIDs {
			pg := popItems[id]
			sort.Strings(pg)
			var sg []string
			for _, g := range pg {
				if _, ok := study[g]; ok {
					sg = append(sg, g)
				}
			}

			rec := Record{
				TermID:     id,
				Namespace:  ns,
				StudyCount: len(sg),
				PopCount:   len(pg),
				StudyN:     studyN,
				PopN:       popN,
				StudyItems: sg,
				PopItems:   pg,
			}
			if t, ok := dag.Term(id); ok {
				rec.Name = t.Name
			}
			rec.Direction, rec.PUncorrected = test(rec.StudyCount, rec.StudyN, rec.PopCount, rec.PopN)
			records = append(records, rec)
		}
	}

	p := make([]float64, len(records))
	for i := range records {
		p[i] = records[i].PUncorrected
	}
	for i, q := range benjaminiHochberg(p) {
		records[i].PFDR = q
	}
	return records, nil
}

// test classifies a term and returns its one-sided Fisher p-value in the
// direction of the difference.
func test(studyCount, studyN, popCount, popN int) (Direction, float64) {
	a := studyCount
	b := studyN - studyCount
	c := popCount - studyCount
	d := max(0, popN-popCount-b)

	left, right := fisherTails(a, b, c, d)
	if float64(studyCount)/float64(studyN) > float64(popCount)/float64(popN) {
		return Enriched, right
	}
	return Depleted, left
}

func toSet(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}
