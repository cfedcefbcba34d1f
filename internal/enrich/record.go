// Package enrich tests ontology terms for over-representation in a query
// gene set relative to a background gene set.
package enrich

import (
	"fmt"
)

// Direction says whether a term is over- or under-represented in the query.
type Direction string

const (
	Enriched Direction = "e"
	Depleted Direction = "p"
)

// Record is the test result for one term against a fixed
// (query, background, namespace) triple.
type Record struct {
	TermID       string
	Namespace    string
	Direction    Direction
	Name         string
	PFDR         float64 // Benjamini-Hochberg corrected
	PUncorrected float64
	StudyCount   int // query genes annotated with the term
	PopCount     int // background genes annotated with the term
	StudyN       int // query size
	PopN         int // background size
	StudyItems   []string
	PopItems     []string
}

// RatioInStudy returns "study_count/study_n".
func (r *Record) RatioInStudy() string {
	return fmt.Sprintf("%d/%d", r.StudyCount, r.StudyN)
}

// RatioInPop returns "pop_count/pop_n".
func (r *Record) RatioInPop() string {
	return fmt.Sprintf("%d/%d", r.PopCount, r.PopN)
}

// Significant reports whether the record passes the enrichment filter.
func (r *Record) Significant() bool {
	return r.Direction == Enriched && r.PFDR < Alpha
}
