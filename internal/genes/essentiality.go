package genes

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// EssentialitySheet is the worksheet holding per-gene deletion phenotypes.
const EssentialitySheet = "All genes"

// Essentiality workbook columns.
const (
	ColEssSystematicID   = "Systematic ID"
	ColEssPhenotype      = "Deletion mutant phenotype description"
	ColEssClassification = "Phenotypic classification used for analysis"
	ColEssDispensability = "Gene dispensability. This study"
	ColEssCategory       = "Category"
	ColEssBasicPhenotype = "One or multi basic phenotypes"
)

// Essentiality holds the deletion-collection phenotype of a gene
// (Hayles et al. 2013).
type Essentiality struct {
	DeletionPhenotype string `json:"deletion_phenotype"`
	Classification    string `json:"classification"`
	Dispensability    string `json:"dispensability"`
	Category          string `json:"category"`
	BasicPhenotypes   string `json:"basic_phenotypes"`
}

// LoadEssentiality reads the essentiality workbook and returns records
// keyed by systematic ID.
func LoadEssentiality(path string) (map[string]Essentiality, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open essentiality workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(EssentialitySheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", EssentialitySheet, err)
	}
	if len(rows) == 0 {
		return nil, &DataLoadError{File: path, Column: ColEssSystematicID}
	}

	idx := map[string]int{}
	for i, col := range rows[0] {
		idx[strings.TrimSpace(col)] = i
	}
	required := []string{
		ColEssSystematicID, ColEssPhenotype, ColEssClassification,
		ColEssDispensability, ColEssCategory, ColEssBasicPhenotype,
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, &DataLoadError{File: path, Column: col}
		}
	}

	cell := func(row []string, col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make(map[string]Essentiality, len(rows)-1)
	for _, row := range rows[1:] {
		id := cell(row, ColEssSystematicID)
		if id == "" {
			continue
		}
		records[id] = Essentiality{
			DeletionPhenotype: cell(row, ColEssPhenotype),
			Classification:    cell(row, ColEssClassification),
			Dispensability:    cell(row, ColEssDispensability),
			Category:          cell(row, ColEssCategory),
			BasicPhenotypes:   cell(row, ColEssBasicPhenotype),
		}
	}
	return records, nil
}
