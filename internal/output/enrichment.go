// Package output formats enrichment results for display.
package output

import (
	"math"
	"sort"
	"strings"

	"github.com/dithap/dithap-explorer/internal/enrich"
)

// EnrichmentColumns is the fixed column order of an enrichment table.
var EnrichmentColumns = []string{
	"Term ID",
	"NS",
	"enrichment",
	"name",
	"p_fdr_bh",
	"p_uncorrected",
	"study_count",
	"pop_count",
	"study_n",
	"pop_n",
	"ratio_in_study",
	"ratio_in_pop",
	"coverage_frac",
	"study_items",
	"missing_items",
	"pop_items",
}

// EnrichmentRow is one presentation row of an enrichment result.
type EnrichmentRow struct {
	TermID       string  `json:"term_id"`
	Namespace    string  `json:"ns"`
	Enrichment   string  `json:"enrichment"`
	Name         string  `json:"name"`
	PFDR         float64 `json:"p_fdr_bh"`
	PUncorrected float64 `json:"p_uncorrected"`
	StudyCount   int     `json:"study_count"`
	PopCount     int     `json:"pop_count"`
	StudyN       int     `json:"study_n"`
	PopN         int     `json:"pop_n"`
	RatioInStudy string  `json:"ratio_in_study"`
	RatioInPop   string  `json:"ratio_in_pop"`
	CoverageFrac float64 `json:"coverage_frac"`
	StudyItems   string  `json:"study_items"`
	MissingItems string  `json:"missing_items"`
	PopItems     string  `json:"pop_items"`
}

// FormatEnrichment turns records into presentation rows sorted by corrected
// p-value. Rows with equal corrected p-values keep the record order.
// Gene IDs are rendered as display names, falling back to the ID.
func FormatEnrichment(records []enrich.Record, idToName map[string]string) []EnrichmentRow {
	rows := make([]EnrichmentRow, 0, len(records))
	for i := range records {
		rows = append(rows, formatRecord(&records[i], idToName))
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].PFDR < rows[j].PFDR })
	return rows
}

func formatRecord(r *enrich.Record, idToName map[string]string) EnrichmentRow {
	inStudy := make(map[string]bool, len(r.StudyItems))
	for _, g := range r.StudyItems {
		inStudy[g] = true
	}
	var missing []string
	for _, g := range r.PopItems {
		if !inStudy[g] {
			missing = append(missing, g)
		}
	}

	return EnrichmentRow{
		TermID:       r.TermID,
		Namespace:    r.Namespace,
		Enrichment:   string(r.Direction),
		Name:         r.Name,
		PFDR:         r.PFDR,
		PUncorrected: r.PUncorrected,
		StudyCount:   r.StudyCount,
		PopCount:     r.PopCount,
		StudyN:       r.StudyN,
		PopN:         r.PopN,
		RatioInStudy: r.RatioInStudy(),
		RatioInPop:   r.RatioInPop(),
		CoverageFrac: coverage(r.StudyCount, r.PopCount),
		StudyItems:   joinNames(r.StudyItems, idToName),
		MissingItems: joinNames(missing, idToName),
		PopItems:     joinNames(r.PopItems, idToName),
	}
}

func coverage(study, pop int) float64 {
	if pop == 0 {
		return 0
	}
	return math.Round(float64(study)/float64(pop)*1000) / 1000
}

func joinNames(ids []string, idToName map[string]string) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		if n, ok := idToName[id]; ok && n != "" {
			names[i] = n
		} else {
			names[i] = id
		}
	}
	return strings.Join(names, ", ")
}
