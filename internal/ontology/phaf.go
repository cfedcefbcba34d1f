package ontology

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dithap/dithap-explorer/internal/genes"
)

// PHAF columns read when converting phenotype annotations.
const (
	PHAFGene       = "Gene systematic ID"
	PHAFTermID     = "FYPO ID"
	PHAFAlleleType = "Allele type"
	PHAFCondition  = "Condition"
)

// LossOfFunctionCondition is the experimental condition a phenotype
// annotation must carry to be kept: standard rich medium.
const LossOfFunctionCondition = "FYECO:0000005"

var lossOfFunctionAlleles = map[string]bool{
	"deletion":   true,
	"disruption": true,
}

// ReadPHAF reads a PomBase phenotype annotation file and converts it to
// gene-to-term associations. Only deletion and disruption alleles scored
// under LossOfFunctionCondition are kept; other rows count as Excluded.
// Terms resolve against dag as in ReadGAF, and terms without a namespace
// fall under NSPhenotype.
func ReadPHAF(r io.Reader, dag *DAG) (*Associations, GAFStats, error) {
	var stats GAFStats
	byNS := map[string]map[string][]string{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), scannerBufferSize)
	lineNo := 0

	var idx map[string]int
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")

		if idx == nil {
			idx = make(map[string]int, len(fields))
			for i, col := range fields {
				idx[strings.TrimSpace(col)] = i
			}
			for _, col := range []string{PHAFGene, PHAFTermID, PHAFAlleleType, PHAFCondition} {
				if _, ok := idx[col]; !ok {
					return nil, stats, &genes.DataLoadError{Column: col}
				}
			}
			continue
		}
		stats.Rows++

		cell := func(col string) string {
			i := idx[col]
			if i >= len(fields) {
				return ""
			}
			return strings.TrimSpace(fields[i])
		}

		if !lossOfFunctionAlleles[cell(PHAFAlleleType)] ||
			!strings.Contains(cell(PHAFCondition), LossOfFunctionCondition) {
			stats.Excluded++
			continue
		}
		term, ok := dag.Term(cell(PHAFTermID))
		if !ok {
			stats.UnknownTerm++
			continue
		}
		if term.Obsolete {
			stats.Obsolete++
			continue
		}
		gene := cell(PHAFGene)
		if gene == "" {
			continue
		}

		ns := NamespaceAbbrev(term.Namespace)
		if ns == "" {
			ns = NSPhenotype
		}
		byGene, ok := byNS[ns]
		if !ok {
			byGene = map[string][]string{}
			byNS[ns] = byGene
		}
		byGene[gene] = append(byGene[gene], term.ID)
		stats.Kept++
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("read phaf line %d: %w", lineNo, err)
	}
	if idx == nil {
		return nil, stats, &genes.DataLoadError{Column: PHAFGene}
	}

	return NewAssociations(byNS), stats, nil
}
